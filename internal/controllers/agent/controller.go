// Package agent provides the HTTP client for the conversational-agent
// collaborator. The agent's internals are out of scope; this controller
// only implements the invocation contract consumed by the processors.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/meridianstays/booking-webhook-app/internal/helpers"
	"github.com/meridianstays/booking-webhook-app/internal/models"
)

// Controller invokes the conversational agent over HTTP.
type Controller struct {
	logger  *slog.Logger
	client  *http.Client
	baseURL string
}

// Option defines a function type used to configure an instance of the Controller struct.
type Option func(*Controller)

// NewController creates an agent Controller. A base URL is required.
func NewController(baseURL string, opts ...Option) (*Controller, error) {
	if baseURL == "" {
		return nil, errors.New("an agent URL is required")
	}
	_inst := &Controller{baseURL: baseURL}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	_inst.logger = _inst.logger.With("controller", "agent")
	if _inst.client == nil {
		_inst.client = &http.Client{Timeout: 30 * time.Second}
	}
	return _inst, nil
}

type invocation struct {
	Message string         `json:"message"`
	UserID  string         `json:"user_id,omitempty"`
	Webhook any            `json:"webhook,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

type acknowledgement struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// ProcessWebhook forwards a validated webhook message to the agent and
// returns its acknowledgement.
func (a *Controller) ProcessWebhook(ctx context.Context, msg *models.WebhookMessage) (string, error) {
	return a.invoke(ctx, "/agent/webhook", invocation{
		Message: msg.Content,
		UserID:  msg.UserID,
		Webhook: msg,
	})
}

// ProcessMessage sends a direct user message to the agent and returns its reply.
func (a *Controller) ProcessMessage(ctx context.Context, message, userID string) (string, error) {
	return a.invoke(ctx, "/agent/message", invocation{
		Message: message,
		UserID:  userID,
	})
}

func (a *Controller) invoke(ctx context.Context, path string, payload invocation) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal agent invocation")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to build agent request")
	}
	req.Header.Set("Content-Type", "application/json")

	a.logger.Debug("invoking agent...", slog.String("path", path))
	resp, err := a.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "agent invocation failed")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Wrap(err, "failed to read agent response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("agent returned status %d", resp.StatusCode)
	}

	var ack acknowledgement
	if err := json.Unmarshal(respBody, &ack); err != nil {
		return "", errors.Wrap(err, "failed to decode agent response")
	}
	if ack.Error != "" {
		return "", fmt.Errorf("agent error: %s", ack.Error)
	}
	return ack.Response, nil
}
