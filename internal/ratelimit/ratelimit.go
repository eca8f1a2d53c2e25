// Package ratelimit implements a per-identity sliding-window request limiter.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/meridianstays/booking-webhook-app/internal/helpers"
)

// Option defines a function type used to configure an instance of the Limiter struct.
type Option func(*Limiter)

// WithLogger sets a custom slog.Logger instance for the Limiter.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

// WithClock overrides the limiter's time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// window holds the accepted-request timestamps of a single identity.
// Each window has its own lock so unrelated identities never contend.
// dead marks a window evicted by Sweep; a request that raced the eviction
// must not record into it or the timestamp would be lost.
type window struct {
	mu     sync.Mutex
	stamps []time.Time
	dead   bool
}

// Limiter throttles requests per client identity using sliding-window
// counting: a request is allowed iff fewer than limit requests were
// accepted within the trailing window. Rejected requests are not recorded.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu      sync.Mutex
	windows map[string]*window
}

// NewLimiter creates a Limiter allowing limit requests per identity within
// the given trailing window.
func NewLimiter(limit int, windowSize time.Duration, opts ...Option) *Limiter {
	_inst := &Limiter{
		limit:   limit,
		window:  windowSize,
		now:     time.Now,
		windows: make(map[string]*window),
	}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	return _inst
}

// Allow reports whether a request from identity is within the limit, and
// records it if so. Stale timestamps are pruned lazily on access.
func (l *Limiter) Allow(identity string) bool {
	now := l.now()

	w := l.lockWindow(identity)
	defer w.mu.Unlock()

	w.prune(now.Add(-l.window))
	if len(w.stamps) >= l.limit {
		helpers.OnceAMinute.Do(func() {
			l.logger.Warn("rate limit exceeded", slog.String("identity", identity))
		})
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

// lockWindow returns identity's live window with its lock held. A window
// evicted between the map fetch and the lock acquisition is retried so the
// caller never records into an orphaned window.
func (l *Limiter) lockWindow(identity string) *window {
	for {
		l.mu.Lock()
		w, found := l.windows[identity]
		if !found {
			w = &window{}
			l.windows[identity] = w
		}
		l.mu.Unlock()

		w.mu.Lock()
		if !w.dead {
			return w
		}
		w.mu.Unlock()
	}
}

// Sweep evicts identities with no accepted requests within the trailing
// window, reclaiming their memory.
func (l *Limiter) Sweep() {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()
	for identity, w := range l.windows {
		w.mu.Lock()
		w.prune(cutoff)
		if len(w.stamps) == 0 {
			w.dead = true
			delete(l.windows, identity)
		}
		w.mu.Unlock()
	}
}

// Start runs a background janitor that sweeps stale identities once per
// window until ctx is cancelled.
func (l *Limiter) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(l.window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Sweep()
			}
		}
	}()
}

func (w *window) prune(cutoff time.Time) {
	keep := w.stamps[:0]
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			keep = append(keep, ts)
		}
	}
	w.stamps = keep
}
