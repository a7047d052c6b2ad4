package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/posfloor/maitre/pkg/audit"
	"github.com/posfloor/maitre/pkg/models"
	"github.com/posfloor/maitre/pkg/store"
)

// testStart is the frozen wall time every service test begins at.
var testStart = time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

func testActor() Actor {
	return Actor{StoreID: "store-1", UserID: "ana", TerminalID: "terminal-1"}
}

// recordingSync captures every sync message a service publishes.
type recordingSync struct {
	mu   sync.Mutex
	msgs []models.SyncMessage
}

func (r *recordingSync) Publish(fromTerminal, fromUser string, msg models.SyncMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingSync) messages() []models.SyncMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.SyncMessage(nil), r.msgs...)
}

func (r *recordingSync) countOfType(t models.SyncMessageType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.msgs {
		if m.Type == t {
			n++
		}
	}
	return n
}

// recordingAudit captures audit entries without buffering or files.
type recordingAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *recordingAudit) Log(e audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *recordingAudit) byAction(action string) []audit.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []audit.Entry
	for _, e := range r.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// seedTable puts a table straight into the registry collection.
func seedTable(t *testing.T, st store.Store, id string, number, capacity int, features ...models.TablePreference) *models.Table {
	t.Helper()
	tbl := &models.Table{
		Number:   number,
		Capacity: capacity,
		Features: features,
		Status:   models.TableAvailable,
	}
	tbl.Init(id, "store-1", testStart)
	require.NoError(t, putDoc(context.Background(), st, store.ColReservationTables, id, tbl))
	return tbl
}
