package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"assettree/internal/server/service"

	"github.com/labstack/echo/v4"
)

// KeyHeader carries the access key for protected roots.
const KeyHeader = "X-Root-Key"

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler contains the HTTP handlers for the lookup API.
type Handler struct {
	svc *service.LookupService
	db  HealthChecker
}

// NewHandler creates a new handler with the given service dependency.
func NewHandler(svc *service.LookupService, db HealthChecker) *Handler {
	return &Handler{svc: svc, db: db}
}

// HandleRegister handles POST /api/roots.
// Accepts a JSON body with name, path, optional depth and optional key.
func (h *Handler) HandleRegister(c echo.Context) error {
	var req service.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	info, err := h.svc.RegisterRoot(c.Request().Context(), req)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, info)
}

// HandleList handles GET /api/roots.
func (h *Handler) HandleList(c echo.Context) error {
	infos, err := h.svc.ListRoots(c.Request().Context())
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"roots": infos})
}

// HandleLocal handles GET /api/roots/:name/local?path=.
func (h *Handler) HandleLocal(c echo.Context) error {
	name := c.Param("name")
	rel := c.QueryParam("path")

	found, err := h.svc.Local(c.Request().Context(), name, rel, c.Request().Header.Get(KeyHeader))
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"root":  name,
		"query": rel,
		"path":  found,
	})
}

// HandleGlobal handles GET /api/roots/:name/global?path=.
// An empty match list is a successful response.
func (h *Handler) HandleGlobal(c echo.Context) error {
	name := c.Param("name")
	rel := c.QueryParam("path")

	matches, err := h.svc.Global(c.Request().Context(), name, rel, c.Request().Header.Get(KeyHeader))
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"root":    name,
		"query":   rel,
		"matches": matches,
	})
}

// HandleRefresh handles POST /api/roots/:name/refresh.
func (h *Handler) HandleRefresh(c echo.Context) error {
	info, err := h.svc.Refresh(c.Request().Context(), c.Param("name"), c.Request().Header.Get(KeyHeader))
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, info)
}

// HandleDelete handles DELETE /api/roots/:name.
func (h *Handler) HandleDelete(c echo.Context) error {
	if err := h.svc.DeleteRoot(c.Request().Context(), c.Param("name"), c.Request().Header.Get(KeyHeader)); err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "root deleted successfully",
	})
}

// HandleHealth handles GET /health.
// Returns the health status of the server, including database connectivity.
func (h *Handler) HandleHealth(c echo.Context) error {
	status := "healthy"
	dbStatus := "connected"

	if err := h.db.HealthCheck(c.Request().Context()); err != nil {
		status = "degraded"
		dbStatus = fmt.Sprintf("error: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":   status,
		"database": dbStatus,
	})
}

// HandleStats handles GET /api/stats.
func (h *Handler) HandleStats(c echo.Context) error {
	stats, err := h.svc.GetStats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to retrieve stats",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total_roots":    stats.TotalRoots,
		"total_lookups":  stats.TotalLookups,
		"failed_lookups": stats.FailedLookups,
		"lookups_today":  stats.LookupsToday,
	})
}

// mapServiceError translates service-layer errors into appropriate HTTP responses.
func mapServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "root not found"})
	case errors.Is(err, service.ErrPathNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error(), "kind": "not_found"})
	case errors.Is(err, service.ErrBranchNotAlive):
		return c.JSON(http.StatusGone, echo.Map{"error": err.Error(), "kind": "not_alive"})
	case errors.Is(err, service.ErrRootExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "root already exists"})
	case errors.Is(err, service.ErrKeyRequired):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "key_required"})
	case errors.Is(err, service.ErrInvalidKey):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid key"})
	case errors.Is(err, service.ErrInvalidName), errors.Is(err, service.ErrInvalidDepth):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrRootNotAlive), errors.Is(err, service.ErrNotDirectory):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}
