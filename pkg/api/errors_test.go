package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posfloor/maitre/pkg/lock"
	"github.com/posfloor/maitre/pkg/services"
)

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		expectCode int
		expectMsg  string
	}{
		{
			name:       "validation error maps to 400",
			err:        services.NewValidationError("customer_name", "missing field"),
			expectCode: http.StatusBadRequest,
			expectMsg:  "missing field",
		},
		{
			name:       "business rule maps to 400",
			err:        services.NewBusinessError("credit limit exceeded"),
			expectCode: http.StatusBadRequest,
			expectMsg:  "credit limit exceeded",
		},
		{
			name:       "reservations disabled maps to 400",
			err:        services.ErrReservationsDisabled,
			expectCode: http.StatusBadRequest,
			expectMsg:  "reservations are currently disabled",
		},
		{
			name:       "not found maps to 404",
			err:        fmt.Errorf("wrapped: %w", services.ErrNotFound),
			expectCode: http.StatusNotFound,
			expectMsg:  "resource not found",
		},
		{
			name:       "unknown error maps to 500",
			err:        fmt.Errorf("something unexpected happened"),
			expectCode: http.StatusInternalServerError,
			expectMsg:  "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he := mapServiceError(tt.err)
			assert.IsType(t, &echo.HTTPError{}, he)
			assert.Equal(t, tt.expectCode, he.Code)
			assert.Contains(t, he.Error(), tt.expectMsg)
		})
	}
}

func TestRespondServiceErrorVersionConflict(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := respondServiceError(c, &lock.VersionConflictError{
		EntityKey:      "reservation:res-1",
		ClientVersion:  3,
		CurrentVersion: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var body ErrorResponse
	decode(t, rec, &body)
	assert.Equal(t, "VERSION_CONFLICT", body.Error)
	assert.Equal(t, 3, body.ClientVersion)
	assert.Equal(t, 4, body.CurrentVersion)
	assert.Equal(t, "reservation:res-1", body.Entity)
	assert.Contains(t, body.Message, "version conflict")
}

func TestRespondServiceErrorConflictFamily(t *testing.T) {
	conflicts := []error{
		services.ErrAlreadyExists,
		services.ErrQueueDuplicate,
		services.ErrSlotUnavailable,
		services.ErrTableUnavailable,
	}

	for _, sentinel := range conflicts {
		t.Run(sentinel.Error(), func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := respondServiceError(c, fmt.Errorf("wrapped: %w", sentinel))
			require.NoError(t, err)
			assert.Equal(t, http.StatusConflict, rec.Code)

			var body ErrorResponse
			decode(t, rec, &body)
			assert.Equal(t, "CONFLICT", body.Error)
			assert.Contains(t, body.Message, sentinel.Error())
		})
	}
}

func TestRespondServiceErrorFallsThrough(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := respondServiceError(c, services.ErrNotFound)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected echo.HTTPError")
	assert.Equal(t, http.StatusNotFound, he.Code)
}
