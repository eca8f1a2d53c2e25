package processor

import (
	"context"
	"log/slog"

	"github.com/meridianstays/booking-webhook-app/internal/helpers"
	"github.com/meridianstays/booking-webhook-app/internal/models"
)

// NoopAgent acknowledges every invocation without calling out. It stands in
// for the agent collaborator when none is configured.
type NoopAgent struct {
	Logger *slog.Logger
}

func (n NoopAgent) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return helpers.NewNoopLogger()
}

// ProcessWebhook acknowledges the message without invoking an agent.
func (n NoopAgent) ProcessWebhook(_ context.Context, msg *models.WebhookMessage) (string, error) {
	n.logger().Info("agent not configured, acknowledging webhook", slog.String("type", string(msg.Type)))
	return "acknowledged", nil
}

// ProcessMessage acknowledges the query without invoking an agent.
func (n NoopAgent) ProcessMessage(_ context.Context, _, userID string) (string, error) {
	n.logger().Info("agent not configured, acknowledging query", slog.String("userId", userID))
	return "acknowledged", nil
}

// NoopRecorder drops every record. It stands in for the persistence
// collaborator when none is configured.
type NoopRecorder struct {
	Logger *slog.Logger
}

// SaveMessage drops the record.
func (n NoopRecorder) SaveMessage(_ context.Context, record models.MessageRecord) error {
	if n.Logger != nil {
		n.Logger.Info("store not configured, dropping record", slog.String("id", record.ID))
	}
	return nil
}
