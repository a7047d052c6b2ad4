package api

import (
	"net/http"
	"strconv"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/posfloor/maitre/pkg/audit"
)

// auditSearchHandler handles GET /api/v1/audit/search.
// Filters: start/end (RFC3339), entity_type, entity_id, user_id,
// terminal_id, action, limit.
func (s *Server) auditSearchHandler(c *echo.Context) error {
	if s.auditLog == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "audit log not available")
	}

	filter := audit.SearchFilter{
		EntityType: c.QueryParam("entity_type"),
		EntityID:   c.QueryParam("entity_id"),
		UserID:     c.QueryParam("user_id"),
		TerminalID: c.QueryParam("terminal_id"),
		Action:     c.QueryParam("action"),
		Limit:      100,
	}
	if raw := c.QueryParam("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid start, must be RFC3339")
		}
		filter.Start = t
	}
	if raw := c.QueryParam("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid end, must be RFC3339")
		}
		filter.End = t
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		filter.Limit = n
	}

	entries, err := s.auditLog.Search(filter)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

// auditStatisticsHandler handles GET /api/v1/audit/statistics.
// The window defaults to the trailing 24 hours.
func (s *Server) auditStatisticsHandler(c *echo.Context) error {
	if s.auditLog == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "audit log not available")
	}

	end := time.Now()
	start := end.Add(-24 * time.Hour)
	if raw := c.QueryParam("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid start, must be RFC3339")
		}
		start = t
	}
	if raw := c.QueryParam("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid end, must be RFC3339")
		}
		end = t
	}

	stats, err := s.auditLog.GetStatistics(start, end)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
