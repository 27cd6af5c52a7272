package mapview

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/binmap/backend/internal/fetch"
	"github.com/binmap/backend/internal/markers"
	"github.com/binmap/backend/internal/models"
	"github.com/binmap/backend/internal/scheduler"
)

// Default poll cadences.
const (
	DefaultBinInterval   = 60 * time.Second
	DefaultTruckInterval = 30 * time.Second
)

// GeocoderControl is the search box added when Config.Geocoder is set.
var GeocoderControl = models.Control{Type: "geocoder", Position: "top-left"}

// Config wires a view to its feeds.
type Config struct {
	Map           models.MapOptions
	Geocoder      bool
	BinInterval   time.Duration
	TruckInterval time.Duration
	PruneStale    bool

	Bins   fetch.Source[models.BinStat]
	Trucks fetch.Source[models.TruckStat]

	// BinObservers are called after each accepted bin snapshot, after the
	// markers have been reconciled.
	BinObservers []func([]models.BinStat)

	Logger *slog.Logger
}

// View is the mounted map page: one map, one reconciler and two feeds.
type View struct {
	cfg    Config
	logger *slog.Logger

	mu         sync.RWMutex
	m          *Map
	reconciler *markers.Reconciler
	bins       *fetch.Refresher[models.BinStat]
	trucks     *fetch.Refresher[models.TruckStat]
	sched      *scheduler.Scheduler
}

// NewView validates cfg and returns an unmounted view.
func NewView(cfg Config) (*View, error) {
	if cfg.Bins == nil {
		return nil, errors.New("mapview: bin source required")
	}
	if cfg.Trucks == nil {
		return nil, errors.New("mapview: truck source required")
	}
	if cfg.BinInterval <= 0 {
		cfg.BinInterval = DefaultBinInterval
	}
	if cfg.TruckInterval <= 0 {
		cfg.TruckInterval = DefaultTruckInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &View{cfg: cfg, logger: cfg.Logger.With("component", "mapview")}, nil
}

// Mount creates the map and starts polling both feeds. Without a container
// no map is created and nothing is polled; that is not an error.
func (v *View) Mount(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.m != nil {
		return nil
	}
	if v.cfg.Map.Container == "" {
		v.logger.Warn("no map container configured, map not created")
		return nil
	}

	m := NewMap(v.cfg.Map)
	if v.cfg.Geocoder {
		if err := m.AddControl(GeocoderControl); err != nil {
			return err
		}
	}

	rec := markers.NewReconciler(m, markers.Options{PruneStale: v.cfg.PruneStale, Logger: v.cfg.Logger})
	observers := v.cfg.BinObservers
	bins := fetch.NewRefresher[models.BinStat]("bins", v.cfg.Bins, func(b []models.BinStat) {
		rec.ReconcileBins(b)
		for _, obs := range observers {
			obs(b)
		}
	}, v.cfg.Logger)
	trucks := fetch.NewRefresher[models.TruckStat]("trucks", v.cfg.Trucks, rec.RedrawTrucks, v.cfg.Logger)

	sched, err := scheduler.New(v.cfg.Logger,
		scheduler.Job{Name: bins.Name(), Interval: v.cfg.BinInterval, Run: bins.Poll},
		scheduler.Job{Name: trucks.Name(), Interval: v.cfg.TruckInterval, Run: trucks.Poll},
	)
	if err != nil {
		return err
	}

	v.m, v.reconciler, v.bins, v.trucks, v.sched = m, rec, bins, trucks, sched
	sched.Start(ctx)

	v.logger.Info("map mounted",
		"container", v.cfg.Map.Container, "center", v.cfg.Map.Center, "zoom", v.cfg.Map.Zoom)
	return nil
}

// Unmount stops both timers, cancels in-flight fetches and destroys the map.
func (v *View) Unmount() {
	v.mu.Lock()
	m, sched := v.m, v.sched
	v.m, v.reconciler, v.bins, v.trucks, v.sched = nil, nil, nil, nil, nil
	v.mu.Unlock()

	if m == nil {
		return
	}
	sched.Stop()
	m.Destroy()
	v.logger.Info("map unmounted")
}

// Map returns the mounted map.
func (v *View) Map() (*Map, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.m, v.m != nil
}

// Stats returns reconciliation counters for the mounted map.
func (v *View) Stats() (markers.Stats, bool) {
	v.mu.RLock()
	rec := v.reconciler
	v.mu.RUnlock()
	if rec == nil {
		return markers.Stats{}, false
	}
	return rec.Stats(), true
}

// Bins returns the last bin snapshot.
func (v *View) Bins() ([]models.BinStat, time.Time, bool) {
	v.mu.RLock()
	r := v.bins
	v.mu.RUnlock()
	if r == nil {
		return nil, time.Time{}, false
	}
	items, at, _ := r.Snapshot().Load()
	return items, at, true
}

// Trucks returns the last truck snapshot.
func (v *View) Trucks() ([]models.TruckStat, time.Time, bool) {
	v.mu.RLock()
	r := v.trucks
	v.mu.RUnlock()
	if r == nil {
		return nil, time.Time{}, false
	}
	items, at, _ := r.Snapshot().Load()
	return items, at, true
}

// Options returns the configured map options and whether the geocoder is on.
func (v *View) Options() (models.MapOptions, bool) {
	return v.cfg.Map, v.cfg.Geocoder
}
