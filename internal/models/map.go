package models

import "time"

// LngLat is a geocoordinate in the mapping library's [lng, lat] order.
type LngLat struct {
	Lng float64 `json:"lng" msgpack:"lng"`
	Lat float64 `json:"lat" msgpack:"lat"`
}

// MarkerKind discriminates bin markers from truck markers.
type MarkerKind string

const (
	KindBin   MarkerKind = "bin"
	KindTruck MarkerKind = "truck"
)

// Valid reports whether k is a known kind.
func (k MarkerKind) Valid() bool {
	return k == KindBin || k == KindTruck
}

// Popup is the content attached to a marker.
type Popup struct {
	Title    string      `json:"title" msgpack:"title"`
	Counters FillLevels  `json:"counters" msgpack:"counters"`
	Label    StatusLabel `json:"label,omitempty" msgpack:"label,omitempty"` // bins only
	HTML     string      `json:"html" msgpack:"html"`
}

// Marker is a visual annotation owned by the map surface.
// Handle is unique per constructed marker; EntityID is the bin or truck ID.
type Marker struct {
	Handle    string     `json:"handle" msgpack:"handle"`
	Kind      MarkerKind `json:"kind" msgpack:"kind"`
	EntityID  int        `json:"entityId" msgpack:"entityId"`
	Position  LngLat     `json:"position" msgpack:"position"`
	Popup     Popup      `json:"popup" msgpack:"popup"`
	UpdatedAt time.Time  `json:"updatedAt" msgpack:"updatedAt"`
}

// MapOptions are the construction parameters of a map view.
type MapOptions struct {
	Container   string  `json:"container"`
	Center      LngLat  `json:"center"`
	Zoom        float64 `json:"zoom"`
	Style       string  `json:"style"`
	AccessToken string  `json:"accessToken"`
}

// Control is a map control such as the geocoder search box.
type Control struct {
	Type     string `json:"type"`
	Position string `json:"position,omitempty"`
}
