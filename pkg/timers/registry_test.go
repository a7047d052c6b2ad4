package timers

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*Registry, *testclock.Clock) {
	t.Helper()
	clk := testclock.NewClock(time.Date(2026, 8, 24, 18, 0, 0, 0, time.UTC))
	return NewRegistry(clk), clk
}

func waitForValue(t *testing.T, counter *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for counter.Load() != want {
		select {
		case <-deadline:
			t.Fatalf("counter stuck at %d, want %d", counter.Load(), want)
		case <-time.After(time.Millisecond):
		}
	}
}

func TestScheduleFires(t *testing.T) {
	r, clk := newTestRegistry(t)
	var fired atomic.Int32

	r.Schedule("queue-noshow:e1", 15*time.Minute, func() { fired.Add(1) })
	require.Equal(t, 1, r.Pending())

	clk.Advance(14 * time.Minute)
	assert.Equal(t, int32(0), fired.Load())

	clk.Advance(time.Minute)
	waitForValue(t, &fired, 1)
	assert.Equal(t, 0, r.Pending())
}

func TestScheduleReplacesExisting(t *testing.T) {
	r, clk := newTestRegistry(t)
	var first, second atomic.Int32

	r.Schedule("reminder:r1", 10*time.Minute, func() { first.Add(1) })
	r.Schedule("reminder:r1", 30*time.Minute, func() { second.Add(1) })
	require.Equal(t, 1, r.Pending())

	// The original deadline passes without firing the replaced callback.
	clk.Advance(20 * time.Minute)
	assert.Equal(t, int32(0), first.Load())

	clk.Advance(10 * time.Minute)
	waitForValue(t, &second, 1)
	assert.Equal(t, int32(0), first.Load())
}

func TestCancel(t *testing.T) {
	r, clk := newTestRegistry(t)
	var fired atomic.Int32

	r.Schedule("queue-noshow:e1", time.Minute, func() { fired.Add(1) })
	assert.True(t, r.Cancel("queue-noshow:e1"))
	assert.False(t, r.Cancel("queue-noshow:e1"), "second cancel finds nothing")

	clk.Advance(2 * time.Minute)
	assert.Equal(t, int32(0), fired.Load())
}

func TestCallbackPanicIsRecovered(t *testing.T) {
	r, clk := newTestRegistry(t)
	var after atomic.Int32

	r.Schedule("bad", time.Second, func() { panic("boom") })
	r.Schedule("good", 2*time.Second, func() { after.Add(1) })

	clk.Advance(time.Second)
	// Wait until the panicking callback has run and deregistered itself.
	deadline := time.After(2 * time.Second)
	for r.Pending() != 1 {
		select {
		case <-deadline:
			t.Fatal("panicking timer never deregistered")
		case <-time.After(time.Millisecond):
		}
	}

	clk.Advance(time.Second)
	waitForValue(t, &after, 1)
}

func TestStopCancelsEverything(t *testing.T) {
	r, clk := newTestRegistry(t)
	var fired atomic.Int32

	r.Schedule("a", time.Minute, func() { fired.Add(1) })
	r.Schedule("b", time.Minute, func() { fired.Add(1) })
	r.Stop()
	assert.Equal(t, 0, r.Pending())

	// Scheduling after Stop is a no-op.
	r.Schedule("c", time.Minute, func() { fired.Add(1) })
	assert.Equal(t, 0, r.Pending())

	clk.Advance(2 * time.Minute)
	assert.Equal(t, int32(0), fired.Load())
}
