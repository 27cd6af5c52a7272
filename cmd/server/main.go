package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/binmap/backend/internal/api"
	"github.com/binmap/backend/internal/archive"
	"github.com/binmap/backend/internal/config"
	"github.com/binmap/backend/internal/fetch"
	"github.com/binmap/backend/internal/mapview"
	"github.com/binmap/backend/internal/models"
	"github.com/binmap/backend/internal/web"
	"github.com/labstack/echo/v4"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	// Load XML configuration
	configPath := filepath.Join(exeDir, "BinMap.config.xml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	api.ExposeErrorDetails = cfg.SlogLevel() == slog.LevelDebug

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Error("failed to create directories", "error", err)
		os.Exit(1)
	}

	// Bin history archive
	var store *archive.Store
	if cfg.Archive.Enabled {
		store, err = archive.Open(cfg.Archive.Path, cfg.Archive.Threads, cfg.Archive.MemoryLimit, logger)
		if err != nil {
			logger.Error("failed to open archive", "path", cfg.Archive.Path, "error", err)
			os.Exit(1)
		}
	}

	viewCfg := mapview.Config{
		Map: models.MapOptions{
			Container:   cfg.Map.Container,
			Center:      models.LngLat{Lng: cfg.Map.CenterLng, Lat: cfg.Map.CenterLat},
			Zoom:        cfg.Map.Zoom,
			Style:       cfg.Map.Style,
			AccessToken: cfg.Map.AccessToken,
		},
		Geocoder:      cfg.Map.Geocoder,
		BinInterval:   cfg.BinInterval(),
		TruckInterval: cfg.TruckInterval(),
		PruneStale:    cfg.Feeds.PruneStaleBinMarkers,
		Bins:          fetch.NewHTTPSource[models.BinStat](cfg.Feeds.BinEndpoint, cfg.FetchTimeout()),
		Trucks:        truckSource(cfg),
		Logger:        logger,
	}
	if store != nil {
		viewCfg.BinObservers = append(viewCfg.BinObservers, store.Observe)
	}

	view, err := mapview.NewView(viewCfg)
	if err != nil {
		logger.Error("failed to create view", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := view.Mount(ctx); err != nil {
		logger.Error("failed to mount view", "error", err)
		os.Exit(1)
	}

	// Check if running in embedded mode (page built into binary)
	embeddedMode := web.HasEmbeddedFiles()

	e := echo.New()
	e.HideBanner = true

	api.SetupMiddleware(e, api.MiddlewareConfig{
		EnableRequestLogging: cfg.Advanced.EnableRequestLogging,
		RequestTimeout:       time.Duration(cfg.Server.ReadTimeout) * time.Second,
		EnableCompression:    cfg.Server.EnableCompression,
		CompressionLevel:     cfg.Server.CompressionLevel,
		EnableCORS:           cfg.Server.EnableCORS,
		AllowOrigins:         cfg.Server.AllowOrigins,
	})

	deps := &api.Dependencies{
		View:            view,
		Version:         Version,
		WebSocketBuffer: cfg.Advanced.WebSocketBuffer,
		Logger:          logger,
	}
	if store != nil {
		deps.History = store
	}
	api.RegisterRoutes(e, api.NewHandlers(deps))

	// Register embedded page if available
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			logger.Warn("failed to register static routes", "error", err)
		}
	}

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	archiveStatus := "disabled"
	if store != nil {
		archiveStatus = cfg.Archive.Path
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Bin Map Server                                  ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Archive:   %-46s║\n", archiveStatus)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", "error", err)
	}

	view.Unmount()

	if store != nil {
		if err := store.Close(); err != nil {
			logger.Warn("archive close", "error", err)
		}
	}
}

// truckSource picks the remote truck feed when one is configured and the
// local dataset otherwise.
func truckSource(cfg *config.AppConfig) fetch.Source[models.TruckStat] {
	if cfg.Feeds.TruckEndpoint != "" {
		return fetch.NewHTTPSource[models.TruckStat](cfg.Feeds.TruckEndpoint, cfg.FetchTimeout())
	}
	return fetch.NewFileSource[models.TruckStat](cfg.Feeds.TruckDataFile)
}

func newLogger(cfg *config.AppConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Advanced.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
