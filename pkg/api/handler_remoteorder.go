package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/posfloor/maitre/pkg/models"
)

// ingestRemoteOrderHandler handles POST /api/v1/remote-orders.
// Ingestion is idempotent on (platform, external_id): a replayed webhook
// returns the previously created order.
func (s *Server) ingestRemoteOrderHandler(c *echo.Context) error {
	var req models.IngestRemoteOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	order, err := s.remoteOrderService.Ingest(c.Request().Context(), extractActor(c), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}

// listRemoteOrdersHandler handles GET /api/v1/remote-orders.
// Accepts optional platform and status filters.
func (s *Server) listRemoteOrdersHandler(c *echo.Context) error {
	platform := models.RemotePlatform(c.QueryParam("platform"))
	status := models.RemoteOrderStatus(c.QueryParam("status"))

	orders, err := s.remoteOrderService.ListOrders(c.Request().Context(), extractStore(c), platform, status)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

// getRemoteOrderHandler handles GET /api/v1/remote-orders/:id.
func (s *Server) getRemoteOrderHandler(c *echo.Context) error {
	order, err := s.remoteOrderService.GetOrder(c.Request().Context(), extractStore(c), c.Param("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// listRemoteOrderItemsHandler handles GET /api/v1/remote-orders/:id/items.
func (s *Server) listRemoteOrderItemsHandler(c *echo.Context) error {
	items, err := s.remoteOrderService.ListItems(c.Request().Context(), extractStore(c), c.Param("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// remoteOrderStatusHandler handles POST /api/v1/remote-orders/:id/status.
// Statuses advance along the fixed chain; skipping ahead is rejected.
func (s *Server) remoteOrderStatusHandler(c *echo.Context) error {
	var req RemoteOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	order, err := s.remoteOrderService.UpdateStatus(c.Request().Context(), extractActor(c), c.Param("id"), models.RemoteOrderStatus(req.Status))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// setPlatformConfigHandler handles PUT /api/v1/remote-orders/platforms/:platform.
func (s *Server) setPlatformConfigHandler(c *echo.Context) error {
	var req PlatformConfigRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	cfg, err := s.remoteOrderService.SetPlatformConfig(c.Request().Context(), extractActor(c), models.RemotePlatform(c.Param("platform")), req.Enabled, req.AutoConfirm)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, cfg)
}
