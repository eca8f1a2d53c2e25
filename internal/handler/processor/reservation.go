package processor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/meridianstays/booking-webhook-app/internal/helpers"
	"github.com/meridianstays/booking-webhook-app/internal/models"
)

// refMutex is a mutex whose map entry is reclaimed once the last holder
// releases it.
type refMutex struct {
	sync.Mutex
	refs int
}

type reservationUpdateProcessor struct {
	logger *slog.Logger
	agent  AgentInvoker
	store  Recorder

	mu    sync.Mutex
	locks map[string]*refMutex
}

// NewReservationUpdateProcessor creates the processor for reservation_update
// messages. Work is serialised per reservation_id so two racing updates to
// the same reservation apply in dequeue order; unrelated reservations are
// never serialised against each other.
func NewReservationUpdateProcessor(agent AgentInvoker, store Recorder, opts ...Option) Processor {
	_inst := &reservationUpdateProcessor{
		agent:  agent,
		store:  store,
		logger: helpers.NewNoopLogger(),
		locks:  make(map[string]*refMutex),
	}
	applyOpts(_inst, opts...)
	return _inst
}

func (p *reservationUpdateProcessor) SetLogger(logger *slog.Logger) {
	p.logger = logger
}

func (p *reservationUpdateProcessor) Process(ctx context.Context, msg *models.WebhookMessage) error {
	reservationID, ok := msg.MetadataString("reservation_id")
	if !ok {
		return errors.New("reservation_id missing from metadata")
	}
	status, _ := msg.MetadataString("status")

	logger := LoggerFromContext(ctx, p.logger).WithGroup("processor:reservation_update").
		With(slog.String("reservationId", reservationID), slog.String("status", status))
	logger.Debug("processing reservation update...")

	unlock := p.lockReservation(reservationID)
	defer unlock()

	ack, err := p.agent.ProcessWebhook(ctx, msg)
	if err != nil {
		return errors.Wrap(err, "agent invocation failed")
	}
	logger.Info("agent acknowledged reservation update", slog.String("ack", helpers.Truncate(ack, 100)))

	if err := p.store.SaveMessage(ctx, record(msg)); err != nil {
		return errors.Wrap(err, "failed to persist reservation update")
	}
	return nil
}

// lockReservation serialises work per reservation_id. The returned func
// releases the lock and deletes the map entry when no other delivery holds
// or awaits it, so the map does not grow with the lifetime reservation set.
func (p *reservationUpdateProcessor) lockReservation(reservationID string) func() {
	p.mu.Lock()
	lock, found := p.locks[reservationID]
	if !found {
		lock = &refMutex{}
		p.locks[reservationID] = lock
	}
	lock.refs++
	p.mu.Unlock()

	lock.Lock()
	return func() {
		lock.Unlock()
		p.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(p.locks, reservationID)
		}
		p.mu.Unlock()
	}
}
