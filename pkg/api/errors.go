package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/posfloor/maitre/pkg/lock"
	"github.com/posfloor/maitre/pkg/services"
)

// ErrorResponse is the JSON body for conflict-class errors. Version
// conflicts carry the version pair and entity key so terminals can run
// conflict resolution instead of showing a generic failure.
type ErrorResponse struct {
	Error          string `json:"error"`
	Message        string `json:"message,omitempty"`
	ClientVersion  int    `json:"client_version,omitempty"`
	CurrentVersion int    `json:"current_version,omitempty"`
	Entity         string `json:"entity,omitempty"`
}

// respondServiceError renders a service-layer error. The conflict family
// gets a structured 409 body; everything else goes through mapServiceError.
func respondServiceError(c *echo.Context, err error) error {
	var conflictErr *lock.VersionConflictError
	if errors.As(err, &conflictErr) {
		return c.JSON(http.StatusConflict, ErrorResponse{
			Error:          "VERSION_CONFLICT",
			Message:        conflictErr.Error(),
			ClientVersion:  conflictErr.ClientVersion,
			CurrentVersion: conflictErr.CurrentVersion,
			Entity:         conflictErr.EntityKey,
		})
	}
	if errors.Is(err, services.ErrAlreadyExists) ||
		errors.Is(err, services.ErrQueueDuplicate) ||
		errors.Is(err, services.ErrSlotUnavailable) ||
		errors.Is(err, services.ErrTableUnavailable) {
		return c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "CONFLICT",
			Message: err.Error(),
		})
	}
	return mapServiceError(err)
}

// mapServiceError maps the remaining service-layer errors to HTTP error responses.
func mapServiceError(err error) *echo.HTTPError {
	var validErr *services.ValidationError
	if errors.As(err, &validErr) {
		return echo.NewHTTPError(http.StatusBadRequest, validErr.Error())
	}
	var bizErr *services.BusinessError
	if errors.As(err, &bizErr) {
		return echo.NewHTTPError(http.StatusBadRequest, bizErr.Error())
	}
	if errors.Is(err, services.ErrReservationsDisabled) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if errors.Is(err, services.ErrInvalidInput) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if errors.Is(err, services.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	}

	// Unexpected error
	slog.Error("Unexpected service error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
