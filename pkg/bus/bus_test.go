package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishFanOut(t *testing.T) {
	b := New()

	var first, second []string
	b.Subscribe("queue.entry_added", func(e Event) {
		first = append(first, e.Payload.(string))
	})
	b.Subscribe("queue.entry_added", func(e Event) {
		second = append(second, e.Payload.(string))
	})

	b.Publish("queue.entry_added", "a")
	b.Publish("queue.entry_added", "b")

	assert.Equal(t, []string{"a", "b"}, first)
	assert.Equal(t, []string{"a", "b"}, second)
}

func TestTopicIsolation(t *testing.T) {
	b := New()

	calls := 0
	b.Subscribe("reservation.created", func(Event) { calls++ })

	b.Publish("queue.entry_added", nil)
	assert.Zero(t, calls)

	b.Publish("reservation.created", nil)
	assert.Equal(t, 1, calls)
}

func TestUnsubscribe(t *testing.T) {
	b := New()

	calls := 0
	unsubscribe := b.Subscribe("x", func(Event) { calls++ })

	b.Publish("x", nil)
	unsubscribe()
	b.Publish("x", nil)
	unsubscribe() // second call is a no-op

	assert.Equal(t, 1, calls)
}

func TestPanickingSubscriberDoesNotStopOthers(t *testing.T) {
	b := New()

	var delivered bool
	b.Subscribe("x", func(Event) { panic("boom") })
	b.Subscribe("x", func(Event) { delivered = true })

	assert.NotPanics(t, func() { b.Publish("x", nil) })
	assert.True(t, delivered)
}

func TestSubscribeFromHandler(t *testing.T) {
	// A handler may register more subscriptions without deadlocking.
	b := New()

	lateCalls := 0
	b.Subscribe("x", func(Event) {
		b.Subscribe("x", func(Event) { lateCalls++ })
	})

	b.Publish("x", nil)
	assert.Zero(t, lateCalls) // registered after the snapshot
	b.Publish("x", nil)
	assert.Equal(t, 1, lateCalls)
}
