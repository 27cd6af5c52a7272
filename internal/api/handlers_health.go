// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version string
	view    MapView
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, view MapView) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
		view:    view,
	}
}

// HandleHealth returns server health status and marker counts
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
		"mounted": false,
	}
	if stats, ok := h.view.Stats(); ok {
		resp["mounted"] = true
		resp["markers"] = stats
	}
	return c.JSON(http.StatusOK, resp)
}
