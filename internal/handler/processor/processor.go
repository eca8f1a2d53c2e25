// Package processor provides the per-message-type business handlers a
// validated webhook message is dispatched to.
package processor

import (
	"context"
	"log/slog"
	"time"

	"github.com/meridianstays/booking-webhook-app/internal/models"
)

// Option is a function that applies an option to a Processor.
type Option = func(Processor)

// Processor is the business handler for one message category. Process is
// invoked off the request path; its error never reaches the original caller.
// SetLogger is construction-time wiring only: processors are shared across
// concurrent deliveries, and per-delivery loggers travel on the context.
type Processor interface {
	SetLogger(logger *slog.Logger)
	Process(ctx context.Context, msg *models.WebhookMessage) error
}

type loggerContextKey struct{}

// ContextWithLogger attaches a per-delivery logger to a dispatch context.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// LoggerFromContext returns the per-delivery logger attached to ctx, or
// fallback when none is attached.
func LoggerFromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok {
		return logger
	}
	return fallback
}

// AgentInvoker is the conversational-agent collaborator contract.
type AgentInvoker interface {
	ProcessWebhook(ctx context.Context, msg *models.WebhookMessage) (string, error)
	ProcessMessage(ctx context.Context, message, userID string) (string, error)
}

// Recorder is the persistence collaborator contract for audit/history records.
type Recorder interface {
	SaveMessage(ctx context.Context, record models.MessageRecord) error
}

// Registry maps message types to their processors, with a fallback entry
// for unknown types. Dispatch depends only on the message type.
type Registry struct {
	processors map[models.Type]Processor
	fallback   Processor
}

// NewRegistry creates a Registry with the given fallback processor.
func NewRegistry(fallback Processor) *Registry {
	return &Registry{
		processors: make(map[models.Type]Processor),
		fallback:   fallback,
	}
}

// Register binds a processor to a message type, replacing any previous binding.
func (r *Registry) Register(t models.Type, p Processor) {
	r.processors[t] = p
}

// Lookup returns the processor registered for t, or the fallback when none is.
func (r *Registry) Lookup(t models.Type) (Processor, bool) {
	if p, ok := r.processors[t]; ok {
		return p, true
	}
	return r.fallback, false
}

// Types returns the registered message types.
func (r *Registry) Types() []models.Type {
	types := make([]models.Type, 0, len(r.processors))
	for t := range r.processors {
		types = append(types, t)
	}
	return types
}

func applyOpts(p Processor, opts ...Option) {
	for _, opt := range opts {
		opt(p)
	}
}

// WithLogger sets the logger on a processor at construction time.
func WithLogger(logger *slog.Logger) Option {
	return func(p Processor) {
		p.SetLogger(logger)
	}
}

// record derives the audit row persisted for every processed message.
func record(msg *models.WebhookMessage) models.MessageRecord {
	return models.MessageRecord{
		ID:         msg.MessageID(),
		Type:       msg.Type,
		Content:    msg.Content,
		UserID:     msg.UserID,
		Timestamp:  msg.Timestamp.Time,
		Metadata:   msg.Metadata,
		ReceivedAt: time.Now().UTC(),
	}
}
