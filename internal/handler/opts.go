package handler

import (
	"context"
	"log/slog"

	"github.com/meridianstays/booking-webhook-app/internal/handler/processor"
	"github.com/meridianstays/booking-webhook-app/internal/models"
	"github.com/meridianstays/booking-webhook-app/internal/ratelimit"
	"github.com/meridianstays/booking-webhook-app/internal/validation"
)

// WithLogger sets the logger instance for the handler.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithContext sets the context for the handler.
func WithContext(ctx context.Context) Option {
	return func(h *Handler) {
		h.ctx = ctx
	}
}

// WithWebhookSecret configures the handler with the shared secret used to
// validate inbound payload signatures.
func WithWebhookSecret(secret string) Option {
	return func(h *Handler) {
		h.secret = validation.NewWebhookSecret(secret)
	}
}

// WithRateLimiter sets the rate limiter instance owned by the handler's pipeline.
func WithRateLimiter(limiter *ratelimit.Limiter) Option {
	return func(h *Handler) {
		h.limiter = limiter
	}
}

// WithRegistry sets the processor registry messages are dispatched through.
func WithRegistry(registry *processor.Registry) Option {
	return func(h *Handler) {
		h.registry = registry
	}
}

// WithAgent sets the agent collaborator used by the direct query endpoint.
func WithAgent(agent processor.AgentInvoker) Option {
	return func(h *Handler) {
		h.agent = agent
	}
}

// WithArchiver enables best-effort archiving of accepted raw payloads.
func WithArchiver(archiver Archiver) Option {
	return func(h *Handler) {
		h.archiver = archiver
	}
}

// WithConversationLog enables best-effort persistence of agent query
// conversations.
func WithConversationLog(log ConversationLog) Option {
	return func(h *Handler) {
		h.conversations = log
	}
}

// WithMaxPayloadSize sets the maximum accepted request body size in bytes.
func WithMaxPayloadSize(size int64) Option {
	return func(h *Handler) {
		if size > 0 {
			h.maxPayloadSize = size
		}
	}
}

// WithAcceptUnknownTypes routes messages with an unregistered type to the
// registry fallback instead of rejecting them.
func WithAcceptUnknownTypes(accept bool) Option {
	return func(h *Handler) {
		h.acceptUnknownTypes = accept
	}
}

// WithStageObserver registers an instrumentation hook invoked at every
// pipeline stage transition.
func WithStageObserver(observer func(Stage)) Option {
	return func(h *Handler) {
		h.stageObserver = observer
	}
}

// WithAfterDispatch registers a hook invoked when a dispatched processor
// finishes, with its outcome.
func WithAfterDispatch(fn func(msg *models.WebhookMessage, err error)) Option {
	return func(h *Handler) {
		h.afterDispatch = fn
	}
}
