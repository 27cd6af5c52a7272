// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"
	"time"

	"github.com/binmap/backend/internal/archive"
	"github.com/binmap/backend/internal/mapview"
	"github.com/binmap/backend/internal/markers"
	"github.com/binmap/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// MapHandler handles map configuration and camera operations
type MapHandler interface {
	HandleGetMap(c echo.Context) error
	HandleFlyTo(c echo.Context) error
}

// MarkerHandler serves the markers currently on the map
type MarkerHandler interface {
	HandleGetMarkers(c echo.Context) error
	HandleGetMarkersMsgpack(c echo.Context) error
}

// FeedHandler serves the raw snapshots and the bin history
type FeedHandler interface {
	HandleGetBins(c echo.Context) error
	HandleGetTrucks(c echo.Context) error
	HandleGetBinHistory(c echo.Context) error
}

// StreamHandler pushes map events over a WebSocket
type StreamHandler interface {
	HandleMarkerStream(c echo.Context) error
}

// MapView is what the handlers need from the mounted view.
// This allows stubbing in tests
type MapView interface {
	Map() (*mapview.Map, bool)
	Options() (models.MapOptions, bool)
	Bins() ([]models.BinStat, time.Time, bool)
	Trucks() ([]models.TruckStat, time.Time, bool)
	Stats() (markers.Stats, bool)
}

// HistoryStore is the read side of the bin archive
type HistoryStore interface {
	History(ctx context.Context, binID, limit int) ([]archive.Record, error)
}
