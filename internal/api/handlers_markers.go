// handlers_markers.go - Marker listing handlers
package api

import (
	"net/http"

	"github.com/binmap/backend/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// MarkerHandlerImpl implements the MarkerHandler interface
type MarkerHandlerImpl struct {
	view MapView
}

// NewMarkerHandler creates a new marker handler
func NewMarkerHandler(view MapView) MarkerHandler {
	return &MarkerHandlerImpl{view: view}
}

type markersResponse struct {
	Markers []models.Marker `json:"markers" msgpack:"markers"`
	Total   int             `json:"total" msgpack:"total"`
}

// HandleGetMarkers returns markers as JSON, optionally filtered by ?kind=
func (h *MarkerHandlerImpl) HandleGetMarkers(c echo.Context) error {
	resp, err := h.list(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleGetMarkersMsgpack returns the same listing encoded as msgpack
func (h *MarkerHandlerImpl) HandleGetMarkersMsgpack(c echo.Context) error {
	resp, err := h.list(c)
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(resp)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

func (h *MarkerHandlerImpl) list(c echo.Context) (*markersResponse, error) {
	kind := models.MarkerKind(c.QueryParam("kind"))
	if kind != "" && !kind.Valid() {
		return nil, NewValidationError("kind")
	}

	m, ok := h.view.Map()
	if !ok {
		return &markersResponse{Markers: []models.Marker{}}, nil
	}
	list := m.Markers(kind)
	return &markersResponse{Markers: list, Total: len(list)}, nil
}
