package models

import (
	"encoding/json"
	"reflect"
	"time"
)

// Type represents the declared type of an inbound webhook message.
type Type string

const (
	// TypeReservationUpdate represents a reservation state change.
	TypeReservationUpdate Type = "reservation_update"
	// TypePromo represents a promotional campaign notification.
	TypePromo Type = "promo"
	// TypeUserInfo represents a user profile update.
	TypeUserInfo Type = "user_info"
)

// Timestamp is a time.Time whose JSON form additionally accepts zone-less
// values, interpreted as UTC. Senders migrated from naive-datetime stacks
// routinely omit the offset.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{time.RFC3339, "2006-01-02T15:04:05"}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &json.UnmarshalTypeError{Value: "non-string", Type: reflect.TypeOf(time.Time{}), Field: "timestamp"}
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return &json.UnmarshalTypeError{Value: "string", Type: reflect.TypeOf(time.Time{}), Field: "timestamp"}
}

// WebhookMessage is the envelope every inbound payload must decode to.
// Type and Content are mandatory; per-type requirements on Metadata are
// enforced by the validation package before dispatch.
type WebhookMessage struct {
	Type      Type           `json:"type" validate:"required"`
	Content   string         `json:"content" validate:"required"`
	UserID    string         `json:"user_id,omitempty"`
	Timestamp *Timestamp     `json:"timestamp,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`

	// DeliveryID is assigned at receipt and is not part of the wire format.
	DeliveryID string `json:"-"`
}

// MessageID returns the sender-declared message ID from metadata, falling
// back to the receipt-assigned delivery ID.
func (m *WebhookMessage) MessageID() string {
	if id, ok := m.Metadata["id"].(string); ok && id != "" {
		return id
	}
	return m.DeliveryID
}

// MetadataString returns the named metadata field as a string, with found
// reporting whether the field exists and holds a non-empty string.
func (m *WebhookMessage) MetadataString(key string) (string, bool) {
	v, ok := m.Metadata[key].(string)
	return v, ok && v != ""
}

// WebhookResponse is the JSON body returned for every accepted or rejected
// request. It is written exactly once per request.
type WebhookResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// AgentRequest is the body of a direct agent query.
type AgentRequest struct {
	Message string         `json:"message" validate:"required"`
	UserID  string         `json:"user_id,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ConversationRecord is a persisted agent query/response pair.
type ConversationRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageRecord is the audit/history row derived from a dispatched message
// and handed to the persistence collaborator.
type MessageRecord struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	Content    string         `json:"content"`
	UserID     string         `json:"user_id,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	ReceivedAt time.Time      `json:"received_at"`
}
