package api

import (
	echo "github.com/labstack/echo/v5"

	"github.com/posfloor/maitre/pkg/services"
)

// extractUser extracts the acting user from proxy headers.
// Priority: X-User-ID (terminal agent) > X-Forwarded-User (oauth2-proxy) >
// "api-client"
func extractUser(c *echo.Context) string {
	if user := c.Request().Header.Get("X-User-ID"); user != "" {
		return user
	}
	if user := c.Request().Header.Get("X-Forwarded-User"); user != "" {
		return user
	}
	return "api-client"
}

// extractTerminal identifies the calling terminal.
// Priority: X-Terminal-ID header > terminal_id query > "unknown"
func extractTerminal(c *echo.Context) string {
	if terminal := c.Request().Header.Get("X-Terminal-ID"); terminal != "" {
		return terminal
	}
	if terminal := c.QueryParam("terminal_id"); terminal != "" {
		return terminal
	}
	return "unknown"
}

// extractStore resolves the store scope of the request.
// Priority: X-Store-ID header > store_id query > "default"
func extractStore(c *echo.Context) string {
	if store := c.Request().Header.Get("X-Store-ID"); store != "" {
		return store
	}
	if store := c.QueryParam("store_id"); store != "" {
		return store
	}
	return "default"
}

// extractActor bundles the request identity for the service layer.
func extractActor(c *echo.Context) services.Actor {
	return services.Actor{
		StoreID:    extractStore(c),
		UserID:     extractUser(c),
		TerminalID: extractTerminal(c),
	}
}
