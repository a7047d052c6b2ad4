package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/posfloor/maitre/pkg/store"
	"github.com/posfloor/maitre/pkg/version"
)

const (
	healthStatusHealthy   = "healthy"
	healthStatusDegraded  = "degraded"
	healthStatusUnhealthy = "unhealthy"
)

// healthHandler handles GET /health.
// Returns a minimal, safe response suitable for unauthenticated access.
// Only maitre's own components (store, sync hub, audit buffer) are checked;
// notification providers are excluded so a flaky SMS gateway cannot make an
// orchestrator restart the coordination core.
func (s *Server) healthHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]HealthCheck)
	status := healthStatusHealthy

	// A missing probe document still proves the backend answers.
	_, err := s.store.Get(reqCtx, store.ColQueueEntries, "health-probe")
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		status = healthStatusUnhealthy
		checks["store"] = HealthCheck{Status: healthStatusUnhealthy, Message: err.Error()}
	} else {
		checks["store"] = HealthCheck{Status: healthStatusHealthy}
	}

	if s.syncHub != nil {
		hubStatus := s.syncHub.GetStatus()
		checks["sync_hub"] = HealthCheck{
			Status:  healthStatusHealthy,
			Message: fmt.Sprintf("%d connected terminals", hubStatus.TotalConnections),
		}
	}

	if s.auditLog != nil {
		check := HealthCheck{Status: healthStatusHealthy}
		if buffered := s.auditLog.Buffered(); buffered > 0 {
			check.Message = fmt.Sprintf("%d entries buffered", buffered)
		}
		checks["audit"] = check
	}

	httpStatus := http.StatusOK
	if status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, &HealthResponse{
		Status:  status,
		Version: version.GitCommit,
		Checks:  checks,
	})
}
