// Package services implements the domain operations of the coordination
// core: waiting list, reservations, command cards, remote orders,
// coupons, and the table registry. Services validate input, enforce the
// business rules, persist through the document store, and couple every
// mutation to sync fan-out, audit, and domain events.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/posfloor/maitre/pkg/audit"
	"github.com/posfloor/maitre/pkg/models"
	"github.com/posfloor/maitre/pkg/store"
)

// SyncPublisher broadcasts an entity mutation to every other terminal.
// Satisfied by *hub.Hub.
type SyncPublisher interface {
	Publish(fromTerminal, fromUser string, msg models.SyncMessage)
}

// AuditTrail records domain actions on the append-only audit log.
// Satisfied by *audit.Logger.
type AuditTrail interface {
	Log(e audit.Entry)
}

// Actor identifies who performs an operation and from which terminal.
// Every mutating service call carries one.
type Actor struct {
	StoreID    string
	UserID     string
	TerminalID string
}

// Validate checks the tenant binding every operation needs.
func (a Actor) Validate() error {
	if a.StoreID == "" {
		return NewValidationError("store_id", "required")
	}
	return nil
}

// getDoc loads one document into a typed record. A missing document maps
// to ErrNotFound.
func getDoc(ctx context.Context, st store.Store, collection, id string, v any) error {
	doc, err := st.Get(ctx, collection, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load %s/%s: %w", collection, id, err)
	}
	return store.FromDocument(doc, v)
}

// putDoc persists a typed record under its id.
func putDoc(ctx context.Context, st store.Store, collection, id string, v any) error {
	doc, err := store.ToDocument(v)
	if err != nil {
		return err
	}
	if err := st.Upsert(ctx, collection, id, doc); err != nil {
		return fmt.Errorf("failed to persist %s/%s: %w", collection, id, err)
	}
	return nil
}

// syncData converts a record into the data payload of a sync message.
// A record that fails to encode syncs as an id-only message rather than
// blocking the mutation.
func syncData(v any) map[string]any {
	doc, err := store.ToDocument(v)
	if err != nil {
		return nil
	}
	return doc
}
