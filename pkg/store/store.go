// Package store provides the key-document persistence interface used by
// every service, plus in-memory, bbolt, and PostgreSQL backends.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when no document exists under the id.
var ErrNotFound = errors.New("document not found")

// Document is a schemaless record. Values follow JSON conventions:
// numbers are float64, timestamps are RFC3339 strings.
type Document = map[string]any

// Store is the key-document interface. Semantics: read-your-writes within
// a single logical thread; no cross-document transactions.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Upsert(ctx context.Context, collection, id string, doc Document) error
	Query(ctx context.Context, collection string, filter Filter) ([]Document, error)
	Delete(ctx context.Context, collection, id string) (bool, error)
	Close() error
}

// Collection names for all persisted state.
const (
	ColQueueEntries          = "queue_entries"
	ColQueueNotifications    = "queue_notifications"
	ColCommandCards          = "command_cards"
	ColCommandSessions       = "command_sessions"
	ColCommandItems          = "command_items"
	ColCommandTransfers      = "command_transfers"
	ColReservations          = "reservations"
	ColReservationTables     = "reservation_tables"
	ColReservationHistory    = "reservation_history"
	ColBlockedSlots          = "blocked_slots"
	ColRemoteOrders          = "remote_orders"
	ColRemoteOrderItems      = "remote_order_items"
	ColRemotePlatformConfigs = "remote_platform_configs"
	ColTableLayouts          = "table_layouts"
	ColTableLayoutConfigs    = "table_layout_configs"
	ColCoupons               = "coupons"
	ColCouponRedemptions     = "coupon_redemptions"
)

// ToDocument converts a typed record into its document form via its JSON
// encoding, so stored shapes match the wire shapes exactly.
func ToDocument(v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// FromDocument decodes a document into a typed record.
func FromDocument(doc Document, v any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}
