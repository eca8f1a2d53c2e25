package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/meridianstays/booking-webhook-app/internal/models"
)

// FieldError reports a payload that is structurally valid JSON but fails
// schema validation. Field names the offending field for client debugging.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid payload: field %q %s", e.Field, e.Reason)
}

// UnknownTypeError reports a message whose declared type has no registered
// processor. Whether it is a rejection is a policy decision taken upstream.
type UnknownTypeError struct {
	Type models.Type
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown message type: %q", e.Type)
}

// requiredMetadata lists the metadata fields each known message type must carry.
var requiredMetadata = map[models.Type][]string{
	models.TypeReservationUpdate: {"reservation_id", "status"},
	models.TypePromo:             {"promo_id", "valid_until", "discount"},
	models.TypeUserInfo:          nil,
}

// KnownType reports whether t carries per-type validation rules.
func KnownType(t models.Type) bool {
	_, ok := requiredMetadata[t]
	return ok
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseMessage decodes the raw body into a WebhookMessage and enforces the
// generic schema plus the per-type metadata rules. The size gate runs at
// the pipeline boundary before the body reaches this function. An absent
// timestamp is normalized to receivedAt. A structurally valid message of
// an unknown type is returned together with an UnknownTypeError so the
// caller can apply the unknown-type policy.
func ParseMessage(body []byte, receivedAt time.Time) (*models.WebhookMessage, error) {
	var msg models.WebhookMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return nil, &FieldError{Field: typeErr.Field, Reason: "is invalid"}
		}
		return nil, &FieldError{Field: "body", Reason: "is not well-formed JSON"}
	}

	if err := validate.Struct(&msg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, &FieldError{Field: verrs[0].Field(), Reason: "is required"}
		}
		return nil, &FieldError{Field: "body", Reason: "failed validation"}
	}

	if msg.Timestamp == nil {
		msg.Timestamp = &models.Timestamp{Time: receivedAt}
	}

	required, known := requiredMetadata[msg.Type]
	if !known {
		// The message passed generic validation; whether an unknown type is a
		// rejection or a no-op dispatch is decided at the pipeline boundary.
		return &msg, &UnknownTypeError{Type: msg.Type}
	}
	for _, field := range required {
		if !metadataPresent(&msg, field) {
			return nil, &FieldError{Field: field, Reason: fmt.Sprintf("is required for type %q", msg.Type)}
		}
	}

	return &msg, nil
}

func metadataPresent(msg *models.WebhookMessage, field string) bool {
	v, ok := msg.Metadata[field]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString && s == "" {
		return false
	}
	return true
}
