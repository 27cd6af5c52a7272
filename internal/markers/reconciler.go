// Package markers reconciles fetched bin and truck snapshots onto map markers.
package markers

import (
	"log/slog"
	"sync"
	"time"

	"github.com/binmap/backend/internal/models"
	"github.com/google/uuid"
)

// Options tune reconciliation.
type Options struct {
	// PruneStale removes bin markers whose id is missing from the latest
	// snapshot. Off by default: bin markers persist once seen.
	PruneStale bool
	Logger     *slog.Logger
}

// Stats summarizes the reconciler's view of the surface.
type Stats struct {
	Registered   int `json:"registered"`
	BinMarkers   int `json:"binMarkers"`
	TruckMarkers int `json:"truckMarkers"`
}

// Reconciler maps snapshots onto a Surface by stable entity id.
type Reconciler struct {
	mu       sync.Mutex
	surface  Surface
	registry map[int]string // bin id -> marker handle
	opts     Options
	now      func() time.Time
	newID    func() string
}

// NewReconciler creates a reconciler with an empty bin registry.
func NewReconciler(surface Surface, opts Options) *Reconciler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Reconciler{
		surface:  surface,
		registry: make(map[int]string),
		opts:     opts,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// ReconcileBins applies one bin snapshot. Known ids are moved and re-popuped,
// new ids get a fresh marker. Ids absent from the snapshot keep their marker
// unless PruneStale is set.
func (r *Reconciler) ReconcileBins(bins []models.BinStat) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[int]struct{}, len(bins))
	var created, moved int
	for _, b := range bins {
		seen[b.ID] = struct{}{}
		pos := b.Position()
		popup := BinPopup(b)

		if handle, ok := r.registry[b.ID]; ok {
			if r.surface.UpdateMarker(handle, pos, popup) {
				moved++
				continue
			}
			// Marker vanished from the surface underneath us; rebuild it.
			delete(r.registry, b.ID)
		}

		m := r.newMarker(models.KindBin, b.ID, pos, popup)
		r.surface.AddMarker(m)
		r.registry[b.ID] = m.Handle
		created++
	}

	var pruned int
	if r.opts.PruneStale {
		for id, handle := range r.registry {
			if _, ok := seen[id]; ok {
				continue
			}
			r.surface.RemoveMarker(handle)
			delete(r.registry, id)
			pruned++
		}
	}

	r.opts.Logger.Debug("bins reconciled",
		"snapshot", len(bins), "created", created, "updated", moved, "pruned", pruned, "registered", len(r.registry))
}

// RedrawTrucks removes every truck marker and draws one per truck.
// Selection is by kind, so bin markers are never touched.
func (r *Reconciler) RedrawTrucks(trucks []models.TruckStat) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.surface.Markers(models.KindTruck)
	for _, m := range old {
		r.surface.RemoveMarker(m.Handle)
	}
	for _, t := range trucks {
		r.surface.AddMarker(r.newMarker(models.KindTruck, t.ID, t.Position(), TruckPopup(t)))
	}

	r.opts.Logger.Debug("trucks redrawn", "removed", len(old), "drawn", len(trucks))
}

// Handle returns the marker handle registered for a bin id.
func (r *Reconciler) Handle(binID int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.registry[binID]
	return h, ok
}

// Stats reports the registry size and per-kind marker counts.
func (r *Reconciler) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Registered:   len(r.registry),
		BinMarkers:   len(r.surface.Markers(models.KindBin)),
		TruckMarkers: len(r.surface.Markers(models.KindTruck)),
	}
}

func (r *Reconciler) newMarker(kind models.MarkerKind, id int, pos models.LngLat, popup models.Popup) models.Marker {
	return models.Marker{
		Handle:    r.newID(),
		Kind:      kind,
		EntityID:  id,
		Position:  pos,
		Popup:     popup,
		UpdatedAt: r.now(),
	}
}
