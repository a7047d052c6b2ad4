// Package timers provides a keyed registry of cancellable one-shot timers
// for background work tied to an entity's lifecycle: queue no-show timers,
// reservation reminders, confirmation timeouts. Registering the work here
// instead of firing loose goroutines means a status change can cancel the
// pending task deterministically.
package timers

import (
	"log/slog"
	"sync"
	"time"

	"github.com/juju/clock"
)

// Registry schedules callbacks keyed by an entity-scoped name. At most one
// timer exists per key; scheduling again replaces the pending one.
type Registry struct {
	mu      sync.Mutex
	clock   clock.Clock
	pending map[string]clock.Timer
	stopped bool
}

// NewRegistry creates an empty registry driven by the given clock.
func NewRegistry(clk clock.Clock) *Registry {
	return &Registry{
		clock:   clk,
		pending: make(map[string]clock.Timer),
	}
}

// Schedule runs fn after d, replacing any timer already registered under
// key. The callback recovers panics and deregisters itself once fired.
func (r *Registry) Schedule(key string, d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}
	if t, ok := r.pending[key]; ok {
		t.Stop()
	}
	r.pending[key] = r.clock.AfterFunc(d, func() {
		r.mu.Lock()
		delete(r.pending, key)
		r.mu.Unlock()

		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("Scheduled task panicked", "key", key, "panic", rec)
			}
		}()
		fn()
	})
}

// Cancel stops the timer under key, reporting whether one was pending.
func (r *Registry) Cancel(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.pending[key]
	if !ok {
		return false
	}
	t.Stop()
	delete(r.pending, key)
	return true
}

// Pending counts timers that have not fired or been cancelled.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Stop cancels every pending timer and refuses further scheduling. Used at
// shutdown so no background task outlives the process services.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopped = true
	for key, t := range r.pending {
		t.Stop()
		delete(r.pending, key)
	}
}
