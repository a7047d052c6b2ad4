package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/posfloor/maitre/pkg/models"
)

// listTablesHandler handles GET /api/v1/tables.
func (s *Server) listTablesHandler(c *echo.Context) error {
	tables, err := s.tableService.ListTables(c.Request().Context(), extractStore(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, tables)
}

// upsertTableHandler handles POST /api/v1/tables.
// Keyed by floor number: a known number updates the table in place.
func (s *Server) upsertTableHandler(c *echo.Context) error {
	var req models.UpsertTableRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	table, err := s.tableService.UpsertTable(c.Request().Context(), extractActor(c), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	if table.Version == 1 {
		return c.JSON(http.StatusCreated, table)
	}
	return c.JSON(http.StatusOK, table)
}

// availableTablesHandler handles GET /api/v1/tables/available.
func (s *Server) availableTablesHandler(c *echo.Context) error {
	tables, err := s.tableService.AvailableTables(c.Request().Context(), extractStore(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, tables)
}

// tableStatusHandler handles POST /api/v1/tables/:id/status.
func (s *Server) tableStatusHandler(c *echo.Context) error {
	var req TableStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	table, err := s.tableService.SetStatus(c.Request().Context(), extractActor(c), c.Param("id"), models.TableStatus(req.Status))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, table)
}
