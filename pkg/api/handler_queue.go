package api

import (
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"

	"github.com/posfloor/maitre/pkg/models"
)

// addQueueEntryHandler handles POST /api/v1/queue.
// Joins a party to the waiting list and returns the created entry with
// its position and wait estimate.
func (s *Server) addQueueEntryHandler(c *echo.Context) error {
	var req models.AddQueueEntryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	entry, err := s.queueService.AddToQueue(c.Request().Context(), extractActor(c), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, entry)
}

// listQueueHandler handles GET /api/v1/queue.
// Accepts an optional status filter; default is the whole queue.
func (s *Server) listQueueHandler(c *echo.Context) error {
	status := models.QueueStatus(c.QueryParam("status"))

	entries, err := s.queueService.ListQueue(c.Request().Context(), extractStore(c), status)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

// getQueueEntryHandler handles GET /api/v1/queue/:id.
func (s *Server) getQueueEntryHandler(c *echo.Context) error {
	entry, err := s.queueService.GetEntry(c.Request().Context(), extractStore(c), c.Param("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

// notifyQueueEntryHandler handles POST /api/v1/queue/:id/notify.
// Marks the party notified and starts the no-show countdown.
func (s *Server) notifyQueueEntryHandler(c *echo.Context) error {
	entry, err := s.queueService.NotifyCustomer(c.Request().Context(), extractActor(c), c.Param("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

// seatQueueEntryHandler handles POST /api/v1/queue/:id/seat.
func (s *Server) seatQueueEntryHandler(c *echo.Context) error {
	var req SeatQueueEntryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	entry, err := s.queueService.SeatEntry(c.Request().Context(), extractActor(c), c.Param("id"), req.TableID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

// cancelQueueEntryHandler handles DELETE /api/v1/queue/:id.
func (s *Server) cancelQueueEntryHandler(c *echo.Context) error {
	_, err := s.queueService.CancelEntry(c.Request().Context(), extractActor(c), c.Param("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// queueEstimateHandler handles GET /api/v1/queue/estimate.
// Returns the projected wait for a party of the given size without joining.
func (s *Server) queueEstimateHandler(c *echo.Context) error {
	partySize := 2
	if raw := c.QueryParam("party_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid party_size")
		}
		partySize = n
	}

	estimate, err := s.queueService.EstimateWait(c.Request().Context(), extractStore(c), partySize)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, estimate)
}

// queueTableSuggestionsHandler handles GET /api/v1/queue/:id/table-suggestions.
func (s *Server) queueTableSuggestionsHandler(c *echo.Context) error {
	suggestions, err := s.queueService.SuggestTables(c.Request().Context(), extractStore(c), c.Param("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, suggestions)
}

// queueStatsHandler handles GET /api/v1/queue/stats.
func (s *Server) queueStatsHandler(c *echo.Context) error {
	stats, err := s.queueService.Statistics(c.Request().Context(), extractStore(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
