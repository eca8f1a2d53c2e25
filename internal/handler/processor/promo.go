package processor

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/meridianstays/booking-webhook-app/internal/helpers"
	"github.com/meridianstays/booking-webhook-app/internal/models"
)

type promoProcessor struct {
	logger *slog.Logger
	agent  AgentInvoker
	store  Recorder
}

// NewPromoProcessor creates the processor for promo messages.
func NewPromoProcessor(agent AgentInvoker, store Recorder, opts ...Option) Processor {
	_inst := &promoProcessor{agent: agent, store: store, logger: helpers.NewNoopLogger()}
	applyOpts(_inst, opts...)
	return _inst
}

func (p *promoProcessor) SetLogger(logger *slog.Logger) {
	p.logger = logger
}

func (p *promoProcessor) Process(ctx context.Context, msg *models.WebhookMessage) error {
	promoID, _ := msg.MetadataString("promo_id")
	logger := LoggerFromContext(ctx, p.logger).WithGroup("processor:promo").
		With(slog.String("promoId", promoID))
	logger.Debug("processing promo...")

	ack, err := p.agent.ProcessWebhook(ctx, msg)
	if err != nil {
		return errors.Wrap(err, "agent invocation failed")
	}
	logger.Info("agent acknowledged promo", slog.String("ack", helpers.Truncate(ack, 100)))

	if err := p.store.SaveMessage(ctx, record(msg)); err != nil {
		return errors.Wrap(err, "failed to persist promo")
	}
	return nil
}
