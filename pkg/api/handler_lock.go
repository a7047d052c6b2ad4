package api

import (
	"fmt"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/posfloor/maitre/pkg/lock"
)

// acquireLockHandler handles POST /api/v1/locks/acquire.
// Always 200: a denied lease reports success=false with the holder's
// identity rather than failing the request.
func (s *Server) acquireLockHandler(c *echo.Context) error {
	if s.locks == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "lock manager not available")
	}

	var req AcquireLockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.EntityType == "" || req.EntityID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "entity_type and entity_id are required")
	}

	result := s.locks.AcquireLock(req.EntityType, req.EntityID, extractUser(c), req.CurrentVersion, extractTerminal(c))
	return c.JSON(http.StatusOK, result)
}

// validateVersionHandler handles POST /api/v1/locks/validate.
// A stale client version is a 409 carrying both versions and the entity key.
func (s *Server) validateVersionHandler(c *echo.Context) error {
	if s.locks == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "lock manager not available")
	}

	var req ValidateVersionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.EntityType == "" || req.EntityID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "entity_type and entity_id are required")
	}

	if err := s.locks.ValidateVersion(req.EntityType, req.EntityID, req.ClientVersion, req.CurrentVersion, extractUser(c)); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, &ValidateVersionResponse{Valid: true})
}

// releaseLockHandler handles POST /api/v1/locks/release.
func (s *Server) releaseLockHandler(c *echo.Context) error {
	if s.locks == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "lock manager not available")
	}

	var req ReleaseLockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.EntityType == "" || req.EntityID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "entity_type and entity_id are required")
	}

	released := s.locks.ReleaseLock(req.EntityType, req.EntityID, extractUser(c), req.LockID)
	return c.JSON(http.StatusOK, &ReleaseLockResponse{Released: released})
}

// lockInfoHandler handles GET /api/v1/locks/info.
func (s *Server) lockInfoHandler(c *echo.Context) error {
	if s.locks == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "lock manager not available")
	}

	entityType := c.QueryParam("entity_type")
	entityID := c.QueryParam("entity_id")
	if entityType == "" || entityID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "entity_type and entity_id are required")
	}

	return c.JSON(http.StatusOK, s.locks.GetLockInfo(entityType, entityID))
}

// resolveConflictHandler handles POST /api/v1/locks/resolve.
// Applies a resolution strategy to a client/server document pair and
// writes a conflict record to the audit trail.
func (s *Server) resolveConflictHandler(c *echo.Context) error {
	var req ResolveConflictRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.EntityType == "" || req.EntityID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "entity_type and entity_id are required")
	}

	strategy := lock.Strategy(req.Strategy)
	switch strategy {
	case lock.LastWriteWins, lock.ServerWins, lock.Merge, lock.Manual:
	default:
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("unknown resolution strategy %q", req.Strategy))
	}

	resolved := lock.Resolve(req.ClientData, req.ServerData, strategy)
	if s.auditLog != nil {
		s.auditLog.LogConflict(req.EntityType, req.EntityID, extractUser(c), extractTerminal(c),
			string(strategy), req.ClientData, req.ServerData)
	}

	return c.JSON(http.StatusOK, &ResolveConflictResponse{
		Strategy: string(strategy),
		Resolved: resolved,
	})
}
