// handlers_feeds.go - Snapshot and history handlers
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// FeedHandlerImpl implements the FeedHandler interface
type FeedHandlerImpl struct {
	view    MapView
	history HistoryStore // nil when archiving is disabled
}

// NewFeedHandler creates a new feed handler. history may be nil.
func NewFeedHandler(view MapView, history HistoryStore) FeedHandler {
	return &FeedHandlerImpl{view: view, history: history}
}

type snapshotResponse struct {
	Data      interface{} `json:"data"`
	FetchedAt *time.Time  `json:"fetchedAt,omitempty"`
}

// HandleGetBins returns the last bin snapshot in the feed's own envelope
func (h *FeedHandlerImpl) HandleGetBins(c echo.Context) error {
	bins, at, ok := h.view.Bins()
	if !ok {
		return NewServiceUnavailableError("map is not mounted")
	}
	return c.JSON(http.StatusOK, newSnapshotResponse(bins, len(bins), at))
}

// HandleGetTrucks returns the last truck snapshot
func (h *FeedHandlerImpl) HandleGetTrucks(c echo.Context) error {
	trucks, at, ok := h.view.Trucks()
	if !ok {
		return NewServiceUnavailableError("map is not mounted")
	}
	return c.JSON(http.StatusOK, newSnapshotResponse(trucks, len(trucks), at))
}

// HandleGetBinHistory returns archived readings for one bin
func (h *FeedHandlerImpl) HandleGetBinHistory(c echo.Context) error {
	if h.history == nil {
		return NewServiceUnavailableError("archive is disabled")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewBadRequestError("invalid bin id", err)
	}

	limit := 0
	if l := c.QueryParam("limit"); l != "" {
		limit, err = strconv.Atoi(l)
		if err != nil || limit < 0 {
			return NewValidationError("limit")
		}
	}

	records, err := h.history.History(c.Request().Context(), id, limit)
	if err != nil {
		return NewInternalError("failed to query history", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"binId":   id,
		"records": records,
	})
}

func newSnapshotResponse(data interface{}, n int, at time.Time) snapshotResponse {
	resp := snapshotResponse{Data: data}
	if n == 0 {
		resp.Data = []struct{}{}
	}
	if !at.IsZero() {
		resp.FetchedAt = &at
	}
	return resp
}
