// Package mapview holds the server-side map surface and the view that
// mounts it, polls the feeds and tears everything down together.
package mapview

import (
	"errors"
	"sync"
	"time"

	"github.com/binmap/backend/internal/models"
)

// Event types emitted to subscribers.
const (
	EventMarkerAdd    = "marker:add"
	EventMarkerUpdate = "marker:update"
	EventMarkerRemove = "marker:remove"
	EventFlyTo        = "map:flyto"
	EventControl      = "map:control"
	EventDestroy      = "map:destroy"
)

// ErrDestroyed is returned by operations on a destroyed map.
var ErrDestroyed = errors.New("map destroyed")

// Event describes one change to the map.
type Event struct {
	Type      string          `json:"type"`
	Marker    *models.Marker  `json:"marker,omitempty"`
	Handle    string          `json:"handle,omitempty"`
	Camera    *Camera         `json:"camera,omitempty"`
	Control   *models.Control `json:"control,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Camera is the map's current center and zoom.
type Camera struct {
	Center models.LngLat `json:"center"`
	Zoom   float64       `json:"zoom"`
}

// Map is an in-memory marker surface. Markers are kept in insertion order
// so clients draw them consistently.
type Map struct {
	opts      models.MapOptions
	mu        sync.RWMutex
	markers   map[string]models.Marker
	order     []string
	camera    Camera
	controls  []models.Control
	destroyed bool

	subMu  sync.Mutex
	subs   map[int]chan Event
	nextID int
	now    func() time.Time
}

// NewMap constructs a map with the given options.
func NewMap(opts models.MapOptions) *Map {
	return &Map{
		opts:    opts,
		markers: make(map[string]models.Marker),
		camera:  Camera{Center: opts.Center, Zoom: opts.Zoom},
		subs:    make(map[int]chan Event),
		now:     time.Now,
	}
}

// Options returns the construction options.
func (m *Map) Options() models.MapOptions {
	return m.opts
}

// AddMarker places a marker on the map.
func (m *Map) AddMarker(mk models.Marker) {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	if _, exists := m.markers[mk.Handle]; !exists {
		m.order = append(m.order, mk.Handle)
	}
	m.markers[mk.Handle] = mk
	m.mu.Unlock()

	m.publish(Event{Type: EventMarkerAdd, Marker: &mk})
}

// UpdateMarker moves a marker and replaces its popup. It reports false when
// no marker has the handle.
func (m *Map) UpdateMarker(handle string, pos models.LngLat, popup models.Popup) bool {
	m.mu.Lock()
	mk, ok := m.markers[handle]
	if !ok || m.destroyed {
		m.mu.Unlock()
		return false
	}
	changed := mk.Position != pos || mk.Popup != popup
	mk.Position = pos
	mk.Popup = popup
	if changed {
		mk.UpdatedAt = m.now()
	}
	m.markers[handle] = mk
	m.mu.Unlock()

	if changed {
		m.publish(Event{Type: EventMarkerUpdate, Marker: &mk})
	}
	return true
}

// RemoveMarker takes a marker off the map.
func (m *Map) RemoveMarker(handle string) bool {
	m.mu.Lock()
	if _, ok := m.markers[handle]; !ok {
		m.mu.Unlock()
		return false
	}
	delete(m.markers, handle)
	for i, h := range m.order {
		if h == handle {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	m.publish(Event{Type: EventMarkerRemove, Handle: handle})
	return true
}

// Markers returns the markers of one kind, or all markers when kind is empty.
func (m *Map) Markers(kind models.MarkerKind) []models.Marker {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Marker, 0, len(m.order))
	for _, h := range m.order {
		if mk := m.markers[h]; kind == "" || mk.Kind == kind {
			out = append(out, mk)
		}
	}
	return out
}

// FlyTo moves the camera.
func (m *Map) FlyTo(center models.LngLat, zoom float64) error {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return ErrDestroyed
	}
	m.camera = Camera{Center: center, Zoom: zoom}
	cam := m.camera
	m.mu.Unlock()

	m.publish(Event{Type: EventFlyTo, Camera: &cam})
	return nil
}

// Camera returns the current camera.
func (m *Map) Camera() Camera {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.camera
}

// AddControl attaches a control such as the geocoder search box.
func (m *Map) AddControl(c models.Control) error {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return ErrDestroyed
	}
	m.controls = append(m.controls, c)
	m.mu.Unlock()

	m.publish(Event{Type: EventControl, Control: &c})
	return nil
}

// Controls returns the attached controls.
func (m *Map) Controls() []models.Control {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Control(nil), m.controls...)
}

// Destroy clears every marker, notifies subscribers and closes their channels.
func (m *Map) Destroy() {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	m.destroyed = true
	m.markers = make(map[string]models.Marker)
	m.order = nil
	m.mu.Unlock()

	m.publish(Event{Type: EventDestroy})

	m.subMu.Lock()
	for id, ch := range m.subs {
		close(ch)
		delete(m.subs, id)
	}
	m.subMu.Unlock()
}

// Destroyed reports whether Destroy has been called.
func (m *Map) Destroyed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.destroyed
}

// Subscribe returns a channel of map events and a function to stop
// receiving them. A subscriber whose buffer is full when an event is
// published has its channel closed and is dropped.
func (m *Map) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	m.subMu.Lock()
	if m.Destroyed() {
		m.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := m.nextID
	m.nextID++
	m.subs[id] = ch
	m.subMu.Unlock()

	return ch, func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if c, ok := m.subs[id]; ok {
			close(c)
			delete(m.subs, id)
		}
	}
}

func (m *Map) publish(ev Event) {
	ev.Timestamp = m.now().UnixMilli()

	m.subMu.Lock()
	defer m.subMu.Unlock()
	for id, ch := range m.subs {
		select {
		case ch <- ev:
		default:
			// A subscriber that fell behind has an incomplete picture of the
			// map; close it so the consumer resubscribes and starts over.
			close(ch)
			delete(m.subs, id)
		}
	}
}
