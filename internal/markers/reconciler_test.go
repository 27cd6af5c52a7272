package markers

import (
	"testing"

	"github.com/binmap/backend/internal/models"
	"github.com/binmap/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Surface = (*testutil.MockSurface)(nil)

func bin(id int, lat, lon float64, empty, status bool) models.BinStat {
	return models.BinStat{
		ID:         id,
		Name:       "bin",
		FillLevels: models.FillLevels{Recycle: 1, General: 2, Wet: 3, Danger: 4},
		Latitude:   lat,
		Longitude:  lon,
		Empty:      empty,
		Status:     status,
	}
}

func truck(id int, lat, lon float64) models.TruckStat {
	return models.TruckStat{ID: id, Name: "truck", Latitude: lat, Longitude: lon}
}

func TestReconcileBins_Idempotent(t *testing.T) {
	surface := testutil.NewMockSurface()
	r := NewReconciler(surface, Options{})

	snapshot := []models.BinStat{bin(1, 13.7, 100.5, true, false), bin(2, 13.8, 100.6, false, false)}
	r.ReconcileBins(snapshot)
	first := surface.Markers(models.KindBin)

	r.ReconcileBins(snapshot)
	second := surface.Markers(models.KindBin)

	assert.Equal(t, 2, r.Stats().Registered)
	assert.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Handle, second[i].Handle)
		assert.Equal(t, first[i].Position, second[i].Position)
		assert.Equal(t, first[i].Popup, second[i].Popup)
	}
	assert.Equal(t, 2, surface.Adds)
}

func TestReconcileBins_NewIDAddsExactlyOne(t *testing.T) {
	surface := testutil.NewMockSurface()
	r := NewReconciler(surface, Options{})

	r.ReconcileBins([]models.BinStat{bin(1, 13.7, 100.5, true, false)})
	h1, ok := r.Handle(1)
	require.True(t, ok)
	before, _ := surface.Get(h1)

	r.ReconcileBins([]models.BinStat{bin(1, 13.7, 100.5, true, false), bin(7, 14.0, 101.0, true, true)})

	assert.Equal(t, 2, r.Stats().Registered)
	after, _ := surface.Get(h1)
	assert.Equal(t, before.Position, after.Position)
}

func TestReconcileBins_MoveKeepsRegistrySize(t *testing.T) {
	surface := testutil.NewMockSurface()
	r := NewReconciler(surface, Options{})

	r.ReconcileBins([]models.BinStat{bin(1, 13.7, 100.5, true, false)})
	r.ReconcileBins([]models.BinStat{bin(1, 13.9, 100.9, true, false)})

	h, ok := r.Handle(1)
	require.True(t, ok)
	m, ok := surface.Get(h)
	require.True(t, ok)
	assert.Equal(t, models.LngLat{Lng: 100.9, Lat: 13.9}, m.Position)
	assert.Equal(t, 1, r.Stats().Registered)
	assert.Equal(t, 1, surface.Count())
}

func TestReconcileBins_MissingIDKeepsMarker(t *testing.T) {
	surface := testutil.NewMockSurface()
	r := NewReconciler(surface, Options{})

	r.ReconcileBins([]models.BinStat{bin(1, 13.7, 100.5, true, false), bin(2, 13.8, 100.6, true, false)})
	r.ReconcileBins([]models.BinStat{bin(1, 13.7, 100.5, true, false)})

	assert.Len(t, surface.Markers(models.KindBin), 2)
	assert.Equal(t, 2, r.Stats().Registered)
}

func TestReconcileBins_PruneStale(t *testing.T) {
	surface := testutil.NewMockSurface()
	r := NewReconciler(surface, Options{PruneStale: true})

	r.ReconcileBins([]models.BinStat{bin(1, 13.7, 100.5, true, false), bin(2, 13.8, 100.6, true, false)})
	r.ReconcileBins([]models.BinStat{bin(1, 13.7, 100.5, true, false)})

	assert.Len(t, surface.Markers(models.KindBin), 1)
	_, ok := r.Handle(2)
	assert.False(t, ok)
}

func TestReconcileBins_MoveAndAdd(t *testing.T) {
	surface := testutil.NewMockSurface()
	r := NewReconciler(surface, Options{})

	r.ReconcileBins([]models.BinStat{bin(1, 13.7, 100.5, true, false)})
	h1, _ := r.Handle(1)

	r.ReconcileBins([]models.BinStat{
		bin(1, 13.75, 100.55, false, false),
		bin(2, 13.8, 100.6, true, true),
	})

	assert.Equal(t, 2, r.Stats().Registered)

	m1, ok := surface.Get(h1)
	require.True(t, ok)
	assert.Equal(t, models.LngLat{Lng: 100.55, Lat: 13.75}, m1.Position)
	assert.Equal(t, models.LabelFull, m1.Popup.Label)

	h2, ok := r.Handle(2)
	require.True(t, ok)
	m2, _ := surface.Get(h2)
	assert.Equal(t, models.LabelCollectedNotFull, m2.Popup.Label)
	assert.Equal(t, models.KindBin, m2.Kind)
}

func TestReconcileBins_DuplicateIDLastWins(t *testing.T) {
	surface := testutil.NewMockSurface()
	r := NewReconciler(surface, Options{})

	r.ReconcileBins([]models.BinStat{bin(5, 1, 1, true, false), bin(5, 2, 2, false, false)})

	markers := surface.Markers(models.KindBin)
	require.Len(t, markers, 1)
	assert.Equal(t, models.LngLat{Lng: 2, Lat: 2}, markers[0].Position)
}

func TestReconcileBins_RebuildsMarkerRemovedExternally(t *testing.T) {
	surface := testutil.NewMockSurface()
	r := NewReconciler(surface, Options{})

	r.ReconcileBins([]models.BinStat{bin(1, 1, 1, true, false)})
	h, _ := r.Handle(1)
	surface.Drop(h)

	r.ReconcileBins([]models.BinStat{bin(1, 1, 1, true, false)})

	nh, ok := r.Handle(1)
	require.True(t, ok)
	assert.NotEqual(t, h, nh)
	assert.Equal(t, 1, surface.Count())
}

func TestRedrawTrucks(t *testing.T) {
	tests := []struct {
		name   string
		before int
		after  int
	}{
		{"from empty", 0, 3},
		{"shrink", 4, 1},
		{"grow", 1, 5},
		{"to empty", 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surface := testutil.NewMockSurface()
			r := NewReconciler(surface, Options{})

			r.ReconcileBins([]models.BinStat{bin(1, 13.7, 100.5, true, false), bin(2, 13.8, 100.6, false, true)})

			var first []models.TruckStat
			for i := 0; i < tt.before; i++ {
				first = append(first, truck(i, 13.6, 100.4))
			}
			r.RedrawTrucks(first)

			var next []models.TruckStat
			for i := 0; i < tt.after; i++ {
				next = append(next, truck(i, 13.65, 100.45))
			}
			r.RedrawTrucks(next)

			stats := r.Stats()
			assert.Equal(t, tt.after, stats.TruckMarkers)
			assert.Equal(t, 2, stats.BinMarkers, "truck redraw must not remove bin markers")
		})
	}
}

func TestRedrawTrucks_RebuildsHandles(t *testing.T) {
	surface := testutil.NewMockSurface()
	r := NewReconciler(surface, Options{})

	r.RedrawTrucks([]models.TruckStat{truck(1, 1, 1)})
	first := surface.Markers(models.KindTruck)
	r.RedrawTrucks([]models.TruckStat{truck(1, 1, 1)})
	second := surface.Markers(models.KindTruck)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.NotEqual(t, first[0].Handle, second[0].Handle)
	assert.Empty(t, second[0].Popup.Label)
}
