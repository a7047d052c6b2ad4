package api

import (
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/posfloor/maitre/pkg/lock"
	"github.com/posfloor/maitre/pkg/models"
)

// createReservationHandler handles POST /api/v1/reservations.
// Books a slot, assigns tables when requested, and expands recurrence.
func (s *Server) createReservationHandler(c *echo.Context) error {
	var req models.CreateReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	reservation, err := s.reservationService.CreateReservation(c.Request().Context(), extractActor(c), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, reservation)
}

// listReservationsHandler handles GET /api/v1/reservations.
// Accepts optional date (YYYY-MM-DD) and status filters.
func (s *Server) listReservationsHandler(c *echo.Context) error {
	date := c.QueryParam("date")
	status := models.ReservationStatus(c.QueryParam("status"))

	reservations, err := s.reservationService.ListReservations(c.Request().Context(), extractStore(c), date, status)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, reservations)
}

// getReservationHandler handles GET /api/v1/reservations/:id.
// Sets a version-derived ETag; a matching If-None-Match short-circuits to 304.
func (s *Server) getReservationHandler(c *echo.Context) error {
	reservation, err := s.reservationService.GetReservation(c.Request().Context(), extractStore(c), c.Param("id"))
	if err != nil {
		return respondServiceError(c, err)
	}

	if etag, err := lock.GenerateETag(reservation, reservation.Version); err == nil {
		c.Response().Header().Set("ETag", `"`+etag+`"`)
		if match := c.Request().Header.Get("If-None-Match"); match != "" && strings.Trim(match, `"`) == etag {
			return c.NoContent(http.StatusNotModified)
		}
	}
	return c.JSON(http.StatusOK, reservation)
}

// getReservationByCodeHandler handles GET /api/v1/reservations/code/:code.
func (s *Server) getReservationByCodeHandler(c *echo.Context) error {
	reservation, err := s.reservationService.GetByCode(c.Request().Context(), extractStore(c), c.Param("code"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, reservation)
}

// updateReservationHandler handles PUT /api/v1/reservations/:id.
// The body must carry the version the client read; a stale version is a 409.
func (s *Server) updateReservationHandler(c *echo.Context) error {
	var req models.UpdateReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	reservation, err := s.reservationService.UpdateReservation(c.Request().Context(), extractActor(c), c.Param("id"), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, reservation)
}

// cancelReservationHandler handles DELETE /api/v1/reservations/:id.
func (s *Server) cancelReservationHandler(c *echo.Context) error {
	_, err := s.reservationService.Cancel(c.Request().Context(), extractActor(c), c.Param("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// confirmReservationHandler handles POST /api/v1/reservations/:id/confirm.
func (s *Server) confirmReservationHandler(c *echo.Context) error {
	reservation, err := s.reservationService.Confirm(c.Request().Context(), extractActor(c), c.Param("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, reservation)
}

// arriveReservationHandler handles POST /api/v1/reservations/:id/arrive.
func (s *Server) arriveReservationHandler(c *echo.Context) error {
	reservation, err := s.reservationService.MarkArrived(c.Request().Context(), extractActor(c), c.Param("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, reservation)
}

// seatReservationHandler handles POST /api/v1/reservations/:id/seat.
// Tables in the body override the stored assignment.
func (s *Server) seatReservationHandler(c *echo.Context) error {
	var req SeatReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	reservation, err := s.reservationService.Seat(c.Request().Context(), extractActor(c), c.Param("id"), req.TableIDs)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, reservation)
}

// completeReservationHandler handles POST /api/v1/reservations/:id/complete.
func (s *Server) completeReservationHandler(c *echo.Context) error {
	reservation, err := s.reservationService.Complete(c.Request().Context(), extractActor(c), c.Param("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, reservation)
}

// noShowReservationHandler handles POST /api/v1/reservations/:id/no-show.
func (s *Server) noShowReservationHandler(c *echo.Context) error {
	reservation, err := s.reservationService.MarkNoShow(c.Request().Context(), extractActor(c), c.Param("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, reservation)
}

// assignTablesHandler handles POST /api/v1/reservations/:id/tables.
func (s *Server) assignTablesHandler(c *echo.Context) error {
	var req AssignTablesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	reservation, err := s.reservationService.AssignTables(c.Request().Context(), extractActor(c), c.Param("id"), req.TableIDs)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, reservation)
}

// availabilityHandler handles GET /api/v1/reservations/availability.
// Returns per-slot capacity for a date; party_size defaults to 2.
func (s *Server) availabilityHandler(c *echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "date query parameter is required")
	}
	partySize := 2
	if raw := c.QueryParam("party_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid party_size")
		}
		partySize = n
	}

	availability, err := s.reservationService.CheckAvailability(c.Request().Context(), extractStore(c), date, partySize)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, availability)
}

// reservationStatsHandler handles GET /api/v1/reservations/stats.
func (s *Server) reservationStatsHandler(c *echo.Context) error {
	stats, err := s.reservationService.Statistics(c.Request().Context(), extractStore(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// noShowSweepHandler handles POST /api/v1/reservations/no-show-sweep.
// Marks every overdue confirmed booking as a no-show and reports the count.
func (s *Server) noShowSweepHandler(c *echo.Context) error {
	actor := extractActor(c)
	processed, err := s.reservationService.ProcessNoShows(c.Request().Context(), actor, actor.StoreID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, &SweepResponse{Processed: processed})
}

// blockSlotHandler handles POST /api/v1/reservations/blocked-slots.
func (s *Server) blockSlotHandler(c *echo.Context) error {
	var req models.BlockSlotRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	slot, err := s.reservationService.BlockSlot(c.Request().Context(), extractActor(c), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, slot)
}

// unblockSlotHandler handles DELETE /api/v1/reservations/blocked-slots/:id.
func (s *Server) unblockSlotHandler(c *echo.Context) error {
	if err := s.reservationService.UnblockSlot(c.Request().Context(), extractActor(c), c.Param("id")); err != nil {
		return respondServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
