package processor

import (
	"context"
	"log/slog"

	"github.com/meridianstays/booking-webhook-app/internal/helpers"
	"github.com/meridianstays/booking-webhook-app/internal/models"
)

type discardProcessor struct {
	logger *slog.Logger
}

// NewDiscardProcessor creates the fallback processor used when the
// accept-unknown-types policy is enabled. It acknowledges the message and
// performs no business action.
func NewDiscardProcessor(opts ...Option) Processor {
	_inst := &discardProcessor{logger: helpers.NewNoopLogger()}
	applyOpts(_inst, opts...)
	return _inst
}

func (p *discardProcessor) SetLogger(logger *slog.Logger) {
	p.logger = logger
}

func (p *discardProcessor) Process(ctx context.Context, msg *models.WebhookMessage) error {
	logger := LoggerFromContext(ctx, p.logger).WithGroup("processor:discard")
	logger.Info("discarding message of unregistered type", slog.String("type", string(msg.Type)))
	return nil
}
