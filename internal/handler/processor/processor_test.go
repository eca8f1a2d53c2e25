package processor

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianstays/booking-webhook-app/internal/models"
)

type fakeProcessor struct {
	name string
}

func (p *fakeProcessor) SetLogger(_ *slog.Logger) {}

func (p *fakeProcessor) Process(_ context.Context, _ *models.WebhookMessage) error {
	return nil
}

func TestRegistry(t *testing.T) {
	fallback := &fakeProcessor{name: "fallback"}
	reservation := &fakeProcessor{name: "reservation"}
	promo := &fakeProcessor{name: "promo"}

	registry := NewRegistry(fallback)
	registry.Register(models.TypeReservationUpdate, reservation)
	registry.Register(models.TypePromo, promo)

	p, known := registry.Lookup(models.TypeReservationUpdate)
	assert.True(t, known)
	assert.Same(t, reservation, p)

	p, known = registry.Lookup(models.Type("mystery"))
	assert.False(t, known)
	assert.Same(t, fallback, p)

	// Re-registering replaces the previous binding.
	replacement := &fakeProcessor{name: "replacement"}
	registry.Register(models.TypePromo, replacement)
	p, known = registry.Lookup(models.TypePromo)
	assert.True(t, known)
	assert.Same(t, replacement, p)

	assert.ElementsMatch(t, []models.Type{models.TypeReservationUpdate, models.TypePromo}, registry.Types())
}

type journalAgent struct {
	mu      sync.Mutex
	applied []string
	delay   time.Duration
}

func (a *journalAgent) ProcessWebhook(_ context.Context, msg *models.WebhookMessage) (string, error) {
	if a.delay > 0 {
		time.Sleep(a.delay)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	status, _ := msg.MetadataString("status")
	a.applied = append(a.applied, status)
	return "ok", nil
}

func (a *journalAgent) ProcessMessage(_ context.Context, _, _ string) (string, error) {
	return "ok", nil
}

type memoryRecorder struct {
	mu      sync.Mutex
	records []models.MessageRecord
}

func (r *memoryRecorder) SaveMessage(_ context.Context, record models.MessageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

func reservationMessage(reservationID, status string) *models.WebhookMessage {
	return &models.WebhookMessage{
		Type:      models.TypeReservationUpdate,
		Content:   "Reservation " + status,
		Timestamp: &models.Timestamp{Time: time.Now().UTC()},
		Metadata: map[string]any{
			"reservation_id": reservationID,
			"status":         status,
		},
	}
}

func TestReservationUpdateProcessor(t *testing.T) {
	agent := &journalAgent{}
	store := &memoryRecorder{}
	proc := NewReservationUpdateProcessor(agent, store)

	msg := reservationMessage("res_1", "confirmed")
	require.NoError(t, proc.Process(context.Background(), msg))

	assert.Equal(t, []string{"confirmed"}, agent.applied)
	require.Len(t, store.records, 1)
	assert.Equal(t, models.TypeReservationUpdate, store.records[0].Type)
	assert.Equal(t, msg.Content, store.records[0].Content)
}

func TestReservationUpdateProcessor_MissingReservationID(t *testing.T) {
	proc := NewReservationUpdateProcessor(&journalAgent{}, &memoryRecorder{})

	msg := reservationMessage("res_1", "confirmed")
	delete(msg.Metadata, "reservation_id")

	err := proc.Process(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reservation_id")
}

// Concurrent updates for the same reservation must apply one at a time.
// The slow agent makes an unserialised implementation interleave the two
// applied entries, which the per-reservation lock forbids.
func TestReservationUpdateProcessor_SerialisesPerReservation(t *testing.T) {
	agent := &journalAgent{delay: 10 * time.Millisecond}
	store := &memoryRecorder{}
	proc := NewReservationUpdateProcessor(agent, store)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = proc.Process(context.Background(), reservationMessage("res_contended", "confirmed"))
		}()
	}
	wg.Wait()

	assert.Len(t, agent.applied, 8)
	assert.Len(t, store.records, 8)

	// Released locks are evicted; the map must not grow with the lifetime
	// set of reservation IDs.
	impl := proc.(*reservationUpdateProcessor)
	impl.mu.Lock()
	assert.Empty(t, impl.locks)
	impl.mu.Unlock()
}

func TestReservationUpdateProcessor_LockMapReclaimed(t *testing.T) {
	proc := NewReservationUpdateProcessor(&journalAgent{}, &memoryRecorder{})

	for i := 0; i < 4; i++ {
		msg := reservationMessage("res_"+string(rune('a'+i)), "confirmed")
		require.NoError(t, proc.Process(context.Background(), msg))
	}

	impl := proc.(*reservationUpdateProcessor)
	impl.mu.Lock()
	assert.Empty(t, impl.locks, "uncontended locks are deleted on release")
	impl.mu.Unlock()
}

func TestDiscardProcessor(t *testing.T) {
	proc := NewDiscardProcessor()
	msg := &models.WebhookMessage{
		Type:      models.Type("mystery"),
		Content:   "???",
		Timestamp: &models.Timestamp{Time: time.Now().UTC()},
	}
	assert.NoError(t, proc.Process(context.Background(), msg))
}
