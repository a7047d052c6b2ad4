// Package lock implements optimistic concurrency control for shared
// entities: per-entity version validation, short-lived advisory editing
// leases, and conflict-resolution strategies.
package lock

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/juju/clock"
)

// DefaultLockTimeout is how long an editing lease stays valid without a
// refresh.
const DefaultLockTimeout = 5 * time.Minute

// Lease is an advisory editing lock on one entity. At most one valid
// lease exists per (entity_type, entity_id); the holder may renew it.
type Lease struct {
	LockID     string    `json:"lock_id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	UserID     string    `json:"user_id"`
	TerminalID string    `json:"terminal_id,omitempty"`
	Version    int       `json:"version"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// AcquireResult reports the outcome of an acquisition attempt. A denial
// is not an error: Success is false and the holder fields are set.
type AcquireResult struct {
	Success   bool      `json:"success"`
	LockID    string    `json:"lock_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`

	LockedBy   string     `json:"locked_by,omitempty"`
	LockedAt   *time.Time `json:"locked_at,omitempty"`
	TerminalID string     `json:"terminal_id,omitempty"`
}

// Info is the read-only view of an entity's lock state.
type Info struct {
	Locked     bool       `json:"locked"`
	UserID     string     `json:"user_id,omitempty"`
	TerminalID string     `json:"terminal_id,omitempty"`
	AcquiredAt *time.Time `json:"acquired_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Version    int        `json:"version,omitempty"`
}

// VersionConflictError is the recoverable client error for a stale write.
// The router maps it to HTTP 409 with the version pair and entity key.
type VersionConflictError struct {
	EntityKey      string
	ClientVersion  int
	CurrentVersion int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict on %s: client has %d, current is %d",
		e.EntityKey, e.ClientVersion, e.CurrentVersion)
}

// Manager is the in-process lease registry. Expired leases are swept
// lazily on every acquisition.
type Manager struct {
	mu      sync.Mutex
	leases  map[string]*Lease
	timeout time.Duration
	clock   clock.Clock
}

// NewManager creates a lease registry with the given lease timeout.
func NewManager(clk clock.Clock, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &Manager{
		leases:  make(map[string]*Lease),
		timeout: timeout,
		clock:   clk,
	}
}

func entityKey(entityType, entityID string) string {
	return entityType + ":" + entityID
}

// lockID derives the short opaque lease token. It is deterministic over
// (entity key, user, acquisition instant) and only meaningful to the
// issuing process.
func lockID(key, userID string, acquiredAt time.Time) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%s|%d", key, userID, acquiredAt.UnixNano())))
	return hex.EncodeToString(sum[:])[:16]
}

// AcquireLock attempts to take (or renew) the editing lease of an entity.
// A lease held by another user denies the acquisition and reports the
// holder; a lease held by the caller is refreshed.
func (m *Manager) AcquireLock(entityType, entityID, userID string, currentVersion int, terminalID string) AcquireResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now().UTC()
	m.sweepExpired(now)

	key := entityKey(entityType, entityID)
	if held, ok := m.leases[key]; ok {
		if held.UserID != userID {
			lockedAt := held.AcquiredAt
			return AcquireResult{
				Success:    false,
				LockedBy:   held.UserID,
				LockedAt:   &lockedAt,
				TerminalID: held.TerminalID,
			}
		}
		// Same user: refresh the lease
		held.AcquiredAt = now
		held.Version = currentVersion
		held.TerminalID = terminalID
		held.LockID = lockID(key, userID, now)
		return AcquireResult{Success: true, LockID: held.LockID, ExpiresAt: now.Add(m.timeout)}
	}

	lease := &Lease{
		LockID:     lockID(key, userID, now),
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     userID,
		TerminalID: terminalID,
		Version:    currentVersion,
		AcquiredAt: now,
	}
	m.leases[key] = lease
	return AcquireResult{Success: true, LockID: lease.LockID, ExpiresAt: now.Add(m.timeout)}
}

// ValidateVersion checks a client write against the persisted version.
// A matching version passes. A stale version passes only when the caller
// holds a valid lease taken at that version, which permits multi-step
// edits within one lease; anything else is a VersionConflictError.
func (m *Manager) ValidateVersion(entityType, entityID string, clientVersion, currentVersion int, userID string) error {
	if clientVersion == currentVersion {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := entityKey(entityType, entityID)
	if held, ok := m.leases[key]; ok && m.valid(held, m.clock.Now().UTC()) {
		if userID != "" && held.UserID == userID && held.Version == clientVersion {
			return nil
		}
	}

	return &VersionConflictError{
		EntityKey:      key,
		ClientVersion:  clientVersion,
		CurrentVersion: currentVersion,
	}
}

// ReleaseLock releases the entity's lease if the caller owns it and, when
// a lockID is supplied, it matches the issued token.
func (m *Manager) ReleaseLock(entityType, entityID, userID, lockIDToken string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := entityKey(entityType, entityID)
	held, ok := m.leases[key]
	if !ok || held.UserID != userID {
		return false
	}
	if lockIDToken != "" && held.LockID != lockIDToken {
		return false
	}
	delete(m.leases, key)
	return true
}

// GetLockInfo returns the current lock state of an entity. An expired
// lease reads as unlocked.
func (m *Manager) GetLockInfo(entityType, entityID string) Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	held, ok := m.leases[entityKey(entityType, entityID)]
	if !ok || !m.valid(held, m.clock.Now().UTC()) {
		return Info{Locked: false}
	}

	acquiredAt := held.AcquiredAt
	expiresAt := held.AcquiredAt.Add(m.timeout)
	return Info{
		Locked:     true,
		UserID:     held.UserID,
		TerminalID: held.TerminalID,
		AcquiredAt: &acquiredAt,
		ExpiresAt:  &expiresAt,
		Version:    held.Version,
	}
}

// ActiveLeases counts currently valid leases.
func (m *Manager) ActiveLeases() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now().UTC()
	n := 0
	for _, l := range m.leases {
		if m.valid(l, now) {
			n++
		}
	}
	return n
}

func (m *Manager) valid(l *Lease, now time.Time) bool {
	return l.AcquiredAt.Add(m.timeout).After(now)
}

// sweepExpired removes lapsed leases. Callers hold m.mu.
func (m *Manager) sweepExpired(now time.Time) {
	for key, l := range m.leases {
		if !m.valid(l, now) {
			delete(m.leases, key)
		}
	}
}
