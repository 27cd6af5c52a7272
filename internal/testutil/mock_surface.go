// mock_surface.go - In-memory map surface and feed sources for testing
package testutil

import (
	"context"
	"sync"

	"github.com/binmap/backend/internal/models"
)

// MockSurface records markers by handle. It satisfies markers.Surface.
type MockSurface struct {
	markers map[string]models.Marker
	order   []string
	Adds    int
	Updates int
	Removes int
	mu      sync.RWMutex
}

// NewMockSurface creates an empty surface
func NewMockSurface() *MockSurface {
	return &MockSurface{
		markers: make(map[string]models.Marker),
	}
}

func (m *MockSurface) AddMarker(mk models.Marker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.markers[mk.Handle]; !exists {
		m.order = append(m.order, mk.Handle)
	}
	m.markers[mk.Handle] = mk
	m.Adds++
}

func (m *MockSurface) UpdateMarker(handle string, pos models.LngLat, popup models.Popup) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	mk, ok := m.markers[handle]
	if !ok {
		return false
	}
	mk.Position = pos
	mk.Popup = popup
	m.markers[handle] = mk
	m.Updates++
	return true
}

func (m *MockSurface) RemoveMarker(handle string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.markers[handle]; !ok {
		return false
	}
	delete(m.markers, handle)
	for i, h := range m.order {
		if h == handle {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.Removes++
	return true
}

func (m *MockSurface) Markers(kind models.MarkerKind) []models.Marker {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Marker
	for _, h := range m.order {
		if mk := m.markers[h]; kind == "" || mk.Kind == kind {
			out = append(out, mk)
		}
	}
	return out
}

// Test Helper Methods

// Get returns the marker stored under a handle
func (m *MockSurface) Get(handle string) (models.Marker, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mk, ok := m.markers[handle]
	return mk, ok
}

// Count returns the number of markers of every kind
func (m *MockSurface) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.markers)
}

// Drop removes a marker without counting it, simulating an external removal
func (m *MockSurface) Drop(handle string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.markers, handle)
	for i, h := range m.order {
		if h == handle {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// FakeSource returns queued results in order, then repeats the last one.
type FakeSource[T any] struct {
	mu      sync.Mutex
	results []FakeResult[T]
	calls   int
	// Block, when set, is waited on before returning. Cancellation of the
	// fetch context is ignored so late results can be simulated.
	Block chan struct{}
}

// FakeResult is one canned Fetch outcome.
type FakeResult[T any] struct {
	Data []T
	Err  error
}

// NewFakeSource creates a source that replays results.
func NewFakeSource[T any](results ...FakeResult[T]) *FakeSource[T] {
	return &FakeSource[T]{results: results}
}

func (f *FakeSource[T]) Fetch(_ context.Context) ([]T, error) {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	block := f.Block
	f.mu.Unlock()

	if block != nil {
		<-block
	}

	if len(f.results) == 0 {
		return nil, nil
	}
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	r := f.results[idx]
	return r.Data, r.Err
}

// Calls returns how many times Fetch was invoked.
func (f *FakeSource[T]) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
