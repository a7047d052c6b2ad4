// Package models defines the domain entities shared by the services,
// store, hub, and API layers.
package models

import "time"

// Entity carries the fields every mutable record has: identity, tenant
// binding, and the optimistic-concurrency pair (version, updated_at).
// Version starts at 1 and is incremented on every persisted mutation.
type Entity struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"store_id"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Init stamps a freshly created entity: version 1, created == updated.
func (e *Entity) Init(id, storeID string, now time.Time) {
	e.ID = id
	e.StoreID = storeID
	e.Version = 1
	e.CreatedAt = now
	e.UpdatedAt = now
}

// Touch records a persisted mutation.
func (e *Entity) Touch(now time.Time) {
	e.Version++
	e.UpdatedAt = now
}

// EntityID returns the record id.
func (e *Entity) EntityID() string { return e.ID }

// CurrentVersion returns the optimistic-concurrency version.
func (e *Entity) CurrentVersion() int { return e.Version }

// Store returns the owning tenant.
func (e *Entity) Store() string { return e.StoreID }

// Versioned is satisfied by every entity embedding Entity. Used where a
// caller only needs the concurrency fields, not the concrete record.
type Versioned interface {
	EntityID() string
	CurrentVersion() int
}

// StoreScoped is satisfied by records bound to a tenant.
type StoreScoped interface {
	Store() string
}
