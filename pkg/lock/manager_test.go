package lock

import (
	"errors"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *testclock.Clock) {
	t.Helper()
	clk := testclock.NewClock(time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC))
	return NewManager(clk, DefaultLockTimeout), clk
}

func TestAcquireLock(t *testing.T) {
	t.Run("grants a fresh lease", func(t *testing.T) {
		m, _ := newTestManager(t)

		res := m.AcquireLock("reservation", "r1", "alice", 3, "term-1")
		require.True(t, res.Success)
		assert.Len(t, res.LockID, 16)
		assert.Equal(t, 1, m.ActiveLeases())
	})

	t.Run("denies a different user and reports the holder", func(t *testing.T) {
		m, _ := newTestManager(t)

		first := m.AcquireLock("reservation", "r1", "alice", 3, "term-1")
		require.True(t, first.Success)

		res := m.AcquireLock("reservation", "r1", "bob", 3, "term-2")
		assert.False(t, res.Success)
		assert.Equal(t, "alice", res.LockedBy)
		assert.Equal(t, "term-1", res.TerminalID)
		require.NotNil(t, res.LockedAt)
	})

	t.Run("same user renews their own lease", func(t *testing.T) {
		m, clk := newTestManager(t)

		m.AcquireLock("reservation", "r1", "alice", 3, "term-1")
		clk.Advance(4 * time.Minute)

		res := m.AcquireLock("reservation", "r1", "alice", 4, "term-1")
		require.True(t, res.Success)

		// The refreshed lease survives past the original expiry
		clk.Advance(4 * time.Minute)
		info := m.GetLockInfo("reservation", "r1")
		assert.True(t, info.Locked)
		assert.Equal(t, 4, info.Version)
	})

	t.Run("expired lease is swept and reacquired", func(t *testing.T) {
		m, clk := newTestManager(t)

		m.AcquireLock("reservation", "r1", "alice", 3, "term-1")
		clk.Advance(DefaultLockTimeout + time.Second)

		res := m.AcquireLock("reservation", "r1", "bob", 3, "term-2")
		assert.True(t, res.Success)

		info := m.GetLockInfo("reservation", "r1")
		assert.Equal(t, "bob", info.UserID)
	})

	t.Run("different entities lock independently", func(t *testing.T) {
		m, _ := newTestManager(t)

		assert.True(t, m.AcquireLock("reservation", "r1", "alice", 1, "").Success)
		assert.True(t, m.AcquireLock("reservation", "r2", "bob", 1, "").Success)
		assert.True(t, m.AcquireLock("queue", "r1", "carol", 1, "").Success)
	})
}

func TestValidateVersion(t *testing.T) {
	t.Run("matching versions pass", func(t *testing.T) {
		m, _ := newTestManager(t)
		assert.NoError(t, m.ValidateVersion("reservation", "r1", 3, 3, "alice"))
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		m, _ := newTestManager(t)

		err := m.ValidateVersion("reservation", "r1", 3, 4, "bob")
		var vc *VersionConflictError
		require.True(t, errors.As(err, &vc))
		assert.Equal(t, "reservation:r1", vc.EntityKey)
		assert.Equal(t, 3, vc.ClientVersion)
		assert.Equal(t, 4, vc.CurrentVersion)
	})

	t.Run("lease holder may keep writing at the lease version", func(t *testing.T) {
		m, _ := newTestManager(t)

		m.AcquireLock("reservation", "r1", "alice", 3, "term-1")
		// Server moved to 4 (by alice's own first step); alice still at 3
		assert.NoError(t, m.ValidateVersion("reservation", "r1", 3, 4, "alice"))
		// A different user gets no such exception
		assert.Error(t, m.ValidateVersion("reservation", "r1", 3, 4, "bob"))
	})

	t.Run("expired lease grants no exception", func(t *testing.T) {
		m, clk := newTestManager(t)

		m.AcquireLock("reservation", "r1", "alice", 3, "term-1")
		clk.Advance(DefaultLockTimeout + time.Second)
		assert.Error(t, m.ValidateVersion("reservation", "r1", 3, 4, "alice"))
	})
}

func TestReleaseLock(t *testing.T) {
	t.Run("owner releases", func(t *testing.T) {
		m, _ := newTestManager(t)

		res := m.AcquireLock("reservation", "r1", "alice", 3, "")
		assert.True(t, m.ReleaseLock("reservation", "r1", "alice", res.LockID))
		assert.False(t, m.GetLockInfo("reservation", "r1").Locked)
	})

	t.Run("non-owner cannot release", func(t *testing.T) {
		m, _ := newTestManager(t)

		m.AcquireLock("reservation", "r1", "alice", 3, "")
		assert.False(t, m.ReleaseLock("reservation", "r1", "bob", ""))
		assert.True(t, m.GetLockInfo("reservation", "r1").Locked)
	})

	t.Run("mismatched lock id is refused", func(t *testing.T) {
		m, _ := newTestManager(t)

		m.AcquireLock("reservation", "r1", "alice", 3, "")
		assert.False(t, m.ReleaseLock("reservation", "r1", "alice", "deadbeefdeadbeef"))
	})

	t.Run("omitted lock id releases by ownership alone", func(t *testing.T) {
		m, _ := newTestManager(t)

		m.AcquireLock("reservation", "r1", "alice", 3, "")
		assert.True(t, m.ReleaseLock("reservation", "r1", "alice", ""))
	})
}

func TestGetLockInfo(t *testing.T) {
	m, clk := newTestManager(t)

	assert.False(t, m.GetLockInfo("reservation", "r1").Locked)

	m.AcquireLock("reservation", "r1", "alice", 7, "term-3")
	info := m.GetLockInfo("reservation", "r1")
	require.True(t, info.Locked)
	assert.Equal(t, "alice", info.UserID)
	assert.Equal(t, "term-3", info.TerminalID)
	assert.Equal(t, 7, info.Version)
	require.NotNil(t, info.ExpiresAt)
	assert.Equal(t, info.AcquiredAt.Add(DefaultLockTimeout), *info.ExpiresAt)

	clk.Advance(DefaultLockTimeout + time.Second)
	assert.False(t, m.GetLockInfo("reservation", "r1").Locked)
}
