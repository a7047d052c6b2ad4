package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posfloor/maitre/pkg/models"
)

func ifoodOrder(externalID string) models.IngestRemoteOrderRequest {
	return models.IngestRemoteOrderRequest{
		Platform:     models.PlatformIfood,
		ExternalID:   externalID,
		CustomerName: "Carlos",
		Items: []models.RemoteOrderItemInput{
			{Name: "Marmita", Quantity: 2, UnitPrice: 25},
			{Name: "Refrigerante", Quantity: 1, UnitPrice: 8},
		},
	}
}

func TestRemoteOrderIngestHTTP(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/remote-orders", ifoodOrder("IF-1001"))
	require.Equal(t, http.StatusCreated, rec.Code)
	var order models.RemoteOrder
	decode(t, rec, &order)
	assert.Equal(t, models.RemoteReceived, order.Status)
	assert.Equal(t, 58.0, order.TotalAmount)

	// Platform retries deliver the same payload; the stored order wins.
	rec = ts.do(t, http.MethodPost, "/api/v1/remote-orders", ifoodOrder("IF-1001"))
	require.Equal(t, http.StatusCreated, rec.Code)
	var replay models.RemoteOrder
	decode(t, rec, &replay)
	assert.Equal(t, order.ID, replay.ID)

	rec = ts.do(t, http.MethodGet, "/api/v1/remote-orders?platform=IFOOD", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var orders []*models.RemoteOrder
	decode(t, rec, &orders)
	assert.Len(t, orders, 1)

	rec = ts.do(t, http.MethodGet, "/api/v1/remote-orders/"+order.ID+"/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []*models.RemoteOrderItem
	decode(t, rec, &items)
	assert.Len(t, items, 2)
}

func TestRemoteOrderStatusHTTP(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/remote-orders", ifoodOrder("IF-2001"))
	require.Equal(t, http.StatusCreated, rec.Code)
	var order models.RemoteOrder
	decode(t, rec, &order)

	// Skipping ahead in the chain is refused.
	rec = ts.do(t, http.MethodPost, "/api/v1/remote-orders/"+order.ID+"/status",
		RemoteOrderStatusRequest{Status: "READY"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, status := range []models.RemoteOrderStatus{
		models.RemoteConfirmed, models.RemotePreparing, models.RemoteReady,
		models.RemoteDispatched, models.RemoteDelivered,
	} {
		rec = ts.do(t, http.MethodPost, "/api/v1/remote-orders/"+order.ID+"/status",
			RemoteOrderStatusRequest{Status: string(status)})
		require.Equal(t, http.StatusOK, rec.Code, "advancing to %s", status)
	}

	// DELIVERED is terminal, even for a cancel.
	rec = ts.do(t, http.MethodPost, "/api/v1/remote-orders/"+order.ID+"/status",
		RemoteOrderStatusRequest{Status: "CANCELLED"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoteOrderPlatformConfigHTTP(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPut, "/api/v1/remote-orders/platforms/IFOOD",
		PlatformConfigRequest{Enabled: false})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/remote-orders", ifoodOrder("IF-3001"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "disabled")

	// Auto-confirm skips the RECEIVED state on ingest.
	rec = ts.do(t, http.MethodPut, "/api/v1/remote-orders/platforms/IFOOD",
		PlatformConfigRequest{Enabled: true, AutoConfirm: true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/remote-orders", ifoodOrder("IF-3001"))
	require.Equal(t, http.StatusCreated, rec.Code)
	var order models.RemoteOrder
	decode(t, rec, &order)
	assert.Equal(t, models.RemoteConfirmed, order.Status)
}
