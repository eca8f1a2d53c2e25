// Package store provides the REST client for the persistence collaborator.
// Records are appended to named tables for audit and history; the schema is
// owned by the collaborator.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/meridianstays/booking-webhook-app/internal/helpers"
	"github.com/meridianstays/booking-webhook-app/internal/models"
)

const (
	tableMessages      = "webhook_messages"
	tableConversations = "conversations"
)

// Controller appends rows to the persistence collaborator over its REST surface.
type Controller struct {
	logger  *slog.Logger
	client  *http.Client
	baseURL string
	apiKey  string
}

// Option defines a function type used to configure an instance of the Controller struct.
type Option func(*Controller)

// NewController creates a store Controller. A base URL is required; the API
// key authenticates every call and is never logged.
func NewController(baseURL, apiKey string, opts ...Option) (*Controller, error) {
	if baseURL == "" {
		return nil, errors.New("a store URL is required")
	}
	_inst := &Controller{baseURL: baseURL, apiKey: apiKey}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	_inst.logger = _inst.logger.With("controller", "store")
	if _inst.client == nil {
		_inst.client = &http.Client{Timeout: 10 * time.Second}
	}
	return _inst, nil
}

// SaveMessage appends the audit record derived from a dispatched message.
func (s *Controller) SaveMessage(ctx context.Context, record models.MessageRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	return s.insert(ctx, tableMessages, record)
}

// SaveConversation appends an agent query/response pair to the history table.
func (s *Controller) SaveConversation(ctx context.Context, record models.ConversationRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	return s.insert(ctx, tableConversations, record)
}

func (s *Controller) insert(ctx context.Context, table string, row any) error {
	body, err := json.Marshal(row)
	if err != nil {
		return errors.Wrap(err, "failed to marshal record")
	}

	url := fmt.Sprintf("%s/rest/v1/%s", s.baseURL, table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to build store request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Prefer", "return=minimal")

	s.logger.Debug("inserting record...", slog.String("table", table))
	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "store call failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("store returned status %d for table %s", resp.StatusCode, table)
	}
	return nil
}
