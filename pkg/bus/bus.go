// Package bus provides the in-process publish/subscribe fabric for
// domain events (queue transitions, reservation lifecycle, ingestion).
package bus

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Event is a named domain event with an arbitrary payload.
type Event struct {
	Topic      string
	Payload    any
	OccurredAt time.Time
}

// Handler consumes one event. Handlers run synchronously on the
// publisher's goroutine; per-topic ordering from a single publisher is
// therefore the publish order.
type Handler func(Event)

// Bus fans events out to topic subscribers. A panicking subscriber is
// recovered and logged so the remaining subscribers still run.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[int]Handler
	nextID int
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[string]map[int]Handler)}
}

// Subscribe registers a handler for a topic and returns its unsubscribe
// function. Unsubscribing twice is harmless.
func (b *Bus) Subscribe(topic string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]Handler)
	}
	b.subs[topic][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if handlers, ok := b.subs[topic]; ok {
			delete(handlers, id)
			if len(handlers) == 0 {
				delete(b.subs, topic)
			}
		}
	}
}

// Publish delivers the payload to every subscriber of the topic, in
// subscription order, on the calling goroutine.
func (b *Bus) Publish(topic string, payload any) {
	// Snapshot handlers under the lock, then release before invoking so
	// a handler can subscribe or unsubscribe without deadlocking.
	b.mu.RLock()
	ids := make([]int, 0, len(b.subs[topic]))
	for id := range b.subs[topic] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, b.subs[topic][id])
	}
	b.mu.RUnlock()

	evt := Event{Topic: topic, Payload: payload, OccurredAt: time.Now().UTC()}
	for _, h := range handlers {
		b.invoke(topic, h, evt)
	}
}

func (b *Bus) invoke(topic string, h Handler, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Event subscriber panicked", "topic", topic, "panic", r)
		}
	}()
	h(evt)
}
