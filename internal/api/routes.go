// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	View            MapView
	History         HistoryStore // optional
	Version         string
	WebSocketBuffer int
	Logger          *slog.Logger
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Map     MapHandler
	Markers MarkerHandler
	Feeds   FeedHandler
	Stream  StreamHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(deps.Version, deps.View),
		Map:     NewMapHandler(deps.View),
		Markers: NewMarkerHandler(deps.View),
		Feeds:   NewFeedHandler(deps.View, deps.History),
		Stream:  NewWebSocketHandler(deps.View, deps.WebSocketBuffer, deps.Logger),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Map widget
	apiGroup.GET("/map", handlers.Map.HandleGetMap)
	apiGroup.POST("/map/flyto", handlers.Map.HandleFlyTo)

	// Markers
	apiGroup.GET("/markers", handlers.Markers.HandleGetMarkers)
	apiGroup.GET("/markers/msgpack", handlers.Markers.HandleGetMarkersMsgpack)

	// Feed snapshots
	apiGroup.GET("/bins", handlers.Feeds.HandleGetBins)
	apiGroup.GET("/bins/:id/history", handlers.Feeds.HandleGetBinHistory)
	apiGroup.GET("/trucks", handlers.Feeds.HandleGetTrucks)

	// WebSocket endpoint
	apiGroup.GET("/ws/markers", handlers.Stream.HandleMarkerStream)
}

// MiddlewareConfig carries the server settings the middleware needs
type MiddlewareConfig struct {
	EnableRequestLogging bool
	RequestTimeout       time.Duration
	EnableCompression    bool
	CompressionLevel     int
	EnableCORS           bool
	AllowOrigins         string
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, cfg MiddlewareConfig) {
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return path == "/api/health" || strings.HasPrefix(path, "/api/ws/")
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	if cfg.RequestTimeout > 0 {
		e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout: cfg.RequestTimeout,
			Skipper: func(c echo.Context) bool {
				return strings.HasPrefix(c.Request().URL.Path, "/api/ws/")
			},
			ErrorMessage: "Request timeout",
		}))
	}

	if cfg.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.CompressionLevel,
			Skipper: func(c echo.Context) bool {
				return strings.HasPrefix(c.Request().URL.Path, "/api/ws/")
			},
		}))
	}

	if cfg.EnableCORS {
		origins := strings.Split(cfg.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}
