// handlers_map.go - Map configuration and camera handlers
package api

import (
	"net/http"

	"github.com/binmap/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// MapHandlerImpl implements the MapHandler interface
type MapHandlerImpl struct {
	view MapView
}

// NewMapHandler creates a new map handler instance
func NewMapHandler(view MapView) MapHandler {
	return &MapHandlerImpl{view: view}
}

type mapResponse struct {
	Options  models.MapOptions `json:"options"`
	Geocoder bool              `json:"geocoder"`
	Mounted  bool              `json:"mounted"`
	Camera   interface{}       `json:"camera,omitempty"`
	Controls []models.Control  `json:"controls,omitempty"`
}

// HandleGetMap returns what the page needs to construct the map widget
func (h *MapHandlerImpl) HandleGetMap(c echo.Context) error {
	opts, geocoder := h.view.Options()
	resp := mapResponse{Options: opts, Geocoder: geocoder}

	if m, ok := h.view.Map(); ok {
		resp.Mounted = true
		resp.Camera = m.Camera()
		resp.Controls = m.Controls()
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleFlyTo recentres the map camera
func (h *MapHandlerImpl) HandleFlyTo(c echo.Context) error {
	var req flyToRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	m, ok := h.view.Map()
	if !ok {
		return NewServiceUnavailableError("map is not mounted")
	}
	if err := m.FlyTo(models.LngLat{Lng: req.Center[0], Lat: req.Center[1]}, *req.Zoom); err != nil {
		return NewServiceUnavailableError(err.Error())
	}
	return c.JSON(http.StatusOK, m.Camera())
}

// Request types

type flyToRequest struct {
	Center []float64 `json:"center"` // [lng, lat]
	Zoom   *float64  `json:"zoom"`
}

func (r *flyToRequest) validate() error {
	if len(r.Center) != 2 {
		return NewValidationError("center")
	}
	if r.Center[0] < -180 || r.Center[0] > 180 || r.Center[1] < -90 || r.Center[1] > 90 {
		return NewValidationError("center")
	}
	if r.Zoom == nil || *r.Zoom < 0 || *r.Zoom > 24 {
		return NewValidationError("zoom")
	}
	return nil
}
