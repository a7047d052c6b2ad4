package api

import (
	"net/http"

	"github.com/coder/websocket"
	echo "github.com/labstack/echo/v5"
)

// wsHandler handles GET /ws/sync.
// Upgrades the connection and hands it to the hub, which owns it until close.
func (s *Server) wsHandler(c *echo.Context) error {
	if s.syncHub == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "sync hub not available")
	}

	opts := &websocket.AcceptOptions{}
	if s.syncCfg != nil && len(s.syncCfg.AllowedOrigins) > 0 {
		opts.OriginPatterns = s.syncCfg.AllowedOrigins
	} else {
		// No allowlist configured: terminals connect from local kiosks with
		// arbitrary origins.
		opts.InsecureSkipVerify = true
	}

	conn, err := websocket.Accept(c.Response(), c.Request(), opts)
	if err != nil {
		return err
	}

	// HandleConnection blocks until the WebSocket closes.
	s.syncHub.HandleConnection(c.Request().Context(), conn)
	return nil
}

// wsStatusHandler handles GET /ws/sync/status.
// Reports connected terminals and per-terminal queued message counts.
func (s *Server) wsStatusHandler(c *echo.Context) error {
	if s.syncHub == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "sync hub not available")
	}
	return c.JSON(http.StatusOK, s.syncHub.GetStatus())
}
