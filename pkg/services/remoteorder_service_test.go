package services

import (
	"context"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posfloor/maitre/pkg/audit"
	"github.com/posfloor/maitre/pkg/bus"
	"github.com/posfloor/maitre/pkg/models"
	"github.com/posfloor/maitre/pkg/store"
)

type remoteOrderFixture struct {
	svc   *RemoteOrderService
	store store.Store
	clock *testclock.Clock
	sync  *recordingSync
	audit *recordingAudit
}

func newRemoteOrderFixture(t *testing.T) *remoteOrderFixture {
	t.Helper()

	st := store.NewMemoryStore()
	t.Cleanup(func() { _ = st.Close() })

	clk := testclock.NewClock(testStart)
	sync := &recordingSync{}
	trail := &recordingAudit{}

	return &remoteOrderFixture{
		svc:   NewRemoteOrderService(st, clk, bus.New(), trail, sync),
		store: st,
		clock: clk,
		sync:  sync,
		audit: trail,
	}
}

func deliveryOrder(externalID string) models.IngestRemoteOrderRequest {
	return models.IngestRemoteOrderRequest{
		Platform:     models.PlatformIfood,
		ExternalID:   externalID,
		CustomerName: "Marina Costa",
		Items: []models.RemoteOrderItemInput{
			{Name: "X-Salada", Quantity: 2, UnitPrice: 25},
			{Name: "Guarana", Quantity: 1, UnitPrice: 8},
		},
	}
}

func TestIngestRemoteOrder(t *testing.T) {
	f := newRemoteOrderFixture(t)
	ctx := context.Background()

	order, err := f.svc.Ingest(ctx, testActor(), deliveryOrder("ifood-4711"))
	require.NoError(t, err)
	assert.Equal(t, models.RemoteReceived, order.Status)
	assert.Equal(t, "ifood-4711", order.ExternalID)
	assert.Equal(t, 58.0, order.TotalAmount)
	assert.Equal(t, testStart, order.ReceivedAt)

	items, err := f.svc.ListItems(ctx, "store-1", order.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Guarana", items[0].Name)
	assert.Equal(t, "X-Salada", items[1].Name)
	assert.Equal(t, order.ID, items[0].OrderID)

	require.Len(t, f.audit.byAction("REMOTE_ORDER_INGEST"), 1)
	assert.Equal(t, 1, f.sync.countOfType(models.SyncCreate))
}

func TestIngestRemoteOrderValidation(t *testing.T) {
	f := newRemoteOrderFixture(t)
	ctx := context.Background()

	for _, tc := range []struct {
		name   string
		mutate func(*models.IngestRemoteOrderRequest)
	}{
		{"unknown platform", func(r *models.IngestRemoteOrderRequest) { r.Platform = "UBEREATS" }},
		{"missing external id", func(r *models.IngestRemoteOrderRequest) { r.ExternalID = " " }},
		{"no items", func(r *models.IngestRemoteOrderRequest) { r.Items = nil }},
		{"unnamed item", func(r *models.IngestRemoteOrderRequest) { r.Items[0].Name = "" }},
		{"zero quantity", func(r *models.IngestRemoteOrderRequest) { r.Items[1].Quantity = 0 }},
		{"negative price", func(r *models.IngestRemoteOrderRequest) { r.Items[0].UnitPrice = -5 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := deliveryOrder("ifood-1")
			tc.mutate(&req)
			_, err := f.svc.Ingest(ctx, testActor(), req)
			assert.True(t, IsValidationError(err), "got %v", err)
		})
	}
}

func TestIngestIdempotent(t *testing.T) {
	f := newRemoteOrderFixture(t)
	ctx := context.Background()

	first, err := f.svc.Ingest(ctx, testActor(), deliveryOrder("ifood-4711"))
	require.NoError(t, err)

	// A webhook retry must not create a second order or more items.
	replay, err := f.svc.Ingest(ctx, testActor(), deliveryOrder("ifood-4711"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, replay.ID)
	assert.Equal(t, 1, f.sync.countOfType(models.SyncCreate))

	items, err := f.svc.ListItems(ctx, "store-1", first.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	// The same external id on another platform is a different order.
	other := deliveryOrder("ifood-4711")
	other.Platform = models.PlatformRappi
	second, err := f.svc.Ingest(ctx, testActor(), other)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestIngestPlatformPolicy(t *testing.T) {
	f := newRemoteOrderFixture(t)
	ctx := context.Background()

	cfg, err := f.svc.SetPlatformConfig(ctx, testActor(), models.PlatformIfood, false, false)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Version)

	_, err = f.svc.Ingest(ctx, testActor(), deliveryOrder("ifood-1"))
	require.True(t, IsBusinessError(err))
	assert.Contains(t, err.Error(), "disabled")

	// Re-enabling with auto-confirm skips the manual RECEIVED step.
	cfg, err = f.svc.SetPlatformConfig(ctx, testActor(), models.PlatformIfood, true, true)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Version)

	order, err := f.svc.Ingest(ctx, testActor(), deliveryOrder("ifood-1"))
	require.NoError(t, err)
	assert.Equal(t, models.RemoteConfirmed, order.Status)

	// Platforms without a stored policy ingest as plain RECEIVED.
	rappi := deliveryOrder("rappi-1")
	rappi.Platform = models.PlatformRappi
	order, err = f.svc.Ingest(ctx, testActor(), rappi)
	require.NoError(t, err)
	assert.Equal(t, models.RemoteReceived, order.Status)

	_, err = f.svc.SetPlatformConfig(ctx, testActor(), "UBEREATS", true, false)
	assert.True(t, IsValidationError(err))
}

func TestRemoteOrderStatusChain(t *testing.T) {
	f := newRemoteOrderFixture(t)
	ctx := context.Background()

	order, err := f.svc.Ingest(ctx, testActor(), deliveryOrder("ifood-1"))
	require.NoError(t, err)

	// Kitchen must confirm before preparing.
	_, err = f.svc.UpdateStatus(ctx, testActor(), order.ID, models.RemoteReady)
	require.True(t, IsBusinessError(err))

	for _, next := range []models.RemoteOrderStatus{
		models.RemoteConfirmed,
		models.RemotePreparing,
		models.RemoteReady,
		models.RemoteDispatched,
		models.RemoteDelivered,
	} {
		order, err = f.svc.UpdateStatus(ctx, testActor(), order.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, order.Status)
	}

	// Delivered orders are final.
	_, err = f.svc.UpdateStatus(ctx, testActor(), order.ID, models.RemoteCancelled)
	assert.True(t, IsBusinessError(err))

	_, err = f.svc.UpdateStatus(ctx, testActor(), order.ID, "LOST_IN_TRANSIT")
	assert.True(t, IsValidationError(err))

	// Any live order can be cancelled, and cancellations stand out in the log.
	second, err := f.svc.Ingest(ctx, testActor(), deliveryOrder("ifood-2"))
	require.NoError(t, err)
	second, err = f.svc.UpdateStatus(ctx, testActor(), second.ID, models.RemoteCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.RemoteCancelled, second.Status)

	var cancelEntry *audit.Entry
	for _, e := range f.audit.byAction("REMOTE_ORDER_STATUS") {
		if e.EntityID == second.ID {
			entry := e
			cancelEntry = &entry
		}
	}
	require.NotNil(t, cancelEntry)
	assert.Equal(t, audit.SeverityWarning, cancelEntry.Severity)
}

func TestListRemoteOrders(t *testing.T) {
	f := newRemoteOrderFixture(t)
	ctx := context.Background()

	a, err := f.svc.Ingest(ctx, testActor(), deliveryOrder("ifood-1"))
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	rappi := deliveryOrder("rappi-1")
	rappi.Platform = models.PlatformRappi
	b, err := f.svc.Ingest(ctx, testActor(), rappi)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	c, err := f.svc.Ingest(ctx, testActor(), deliveryOrder("ifood-2"))
	require.NoError(t, err)

	all, err := f.svc.ListOrders(ctx, "store-1", "", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, c.ID, all[0].ID)
	assert.Equal(t, a.ID, all[2].ID)

	ifood, err := f.svc.ListOrders(ctx, "store-1", models.PlatformIfood, "")
	require.NoError(t, err)
	assert.Len(t, ifood, 2)

	_, err = f.svc.UpdateStatus(ctx, testActor(), b.ID, models.RemoteConfirmed)
	require.NoError(t, err)
	confirmed, err := f.svc.ListOrders(ctx, "store-1", "", models.RemoteConfirmed)
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, b.ID, confirmed[0].ID)

	_, err = f.svc.GetOrder(ctx, "store-2", a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
