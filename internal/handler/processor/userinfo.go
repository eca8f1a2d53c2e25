package processor

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/meridianstays/booking-webhook-app/internal/helpers"
	"github.com/meridianstays/booking-webhook-app/internal/models"
)

type userInfoProcessor struct {
	logger *slog.Logger
	agent  AgentInvoker
	store  Recorder
}

// NewUserInfoProcessor creates the processor for user_info messages.
func NewUserInfoProcessor(agent AgentInvoker, store Recorder, opts ...Option) Processor {
	_inst := &userInfoProcessor{agent: agent, store: store, logger: helpers.NewNoopLogger()}
	applyOpts(_inst, opts...)
	return _inst
}

func (p *userInfoProcessor) SetLogger(logger *slog.Logger) {
	p.logger = logger
}

func (p *userInfoProcessor) Process(ctx context.Context, msg *models.WebhookMessage) error {
	logger := LoggerFromContext(ctx, p.logger).WithGroup("processor:user_info").
		With(slog.String("userId", msg.UserID))
	logger.Debug("processing user info...")

	ack, err := p.agent.ProcessWebhook(ctx, msg)
	if err != nil {
		return errors.Wrap(err, "agent invocation failed")
	}
	logger.Info("agent acknowledged user info", slog.String("ack", helpers.Truncate(ack, 100)))

	if err := p.store.SaveMessage(ctx, record(msg)); err != nil {
		return errors.Wrap(err, "failed to persist user info")
	}
	return nil
}
