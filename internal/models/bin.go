package models

import "fmt"

// FillLevels holds the four waste category counters reported by bins and trucks.
type FillLevels struct {
	Recycle int `json:"recycle" yaml:"recycle" msgpack:"recycle"`
	General int `json:"general" yaml:"general" msgpack:"general"`
	Wet     int `json:"wet" yaml:"wet" msgpack:"wet"`
	Danger  int `json:"danger" yaml:"danger" msgpack:"danger"`
}

// Validate rejects negative counters.
func (f FillLevels) Validate() error {
	if f.Recycle < 0 || f.General < 0 || f.Wet < 0 || f.Danger < 0 {
		return fmt.Errorf("negative fill level: %+v", f)
	}
	return nil
}

// BinStat is one waste-collection point as reported by the bin status endpoint.
// ID is stable across polls and is the reconciliation key.
type BinStat struct {
	ID         int     `json:"id" yaml:"id"`
	Name       string  `json:"name" yaml:"name"`
	FillLevels `yaml:",inline"`
	Latitude   float64 `json:"latitude" yaml:"latitude"`
	Longitude  float64 `json:"longitude" yaml:"longitude"`
	Empty      bool    `json:"empty" yaml:"empty"`   // container not yet full
	Status     bool    `json:"status" yaml:"status"` // serviced since last fill
}

// Key returns the reconciliation key.
func (b BinStat) Key() int { return b.ID }

// Position returns the bin's coordinates.
func (b BinStat) Position() LngLat { return LngLat{Lng: b.Longitude, Lat: b.Latitude} }

// Validate checks the record for values the map cannot display.
func (b BinStat) Validate() error {
	if err := b.FillLevels.Validate(); err != nil {
		return fmt.Errorf("bin %d: %w", b.ID, err)
	}
	return nil
}

// TruckStat is one collection vehicle. Trucks carry no status flags.
type TruckStat struct {
	ID         int     `json:"id" yaml:"id"`
	Name       string  `json:"name" yaml:"name"`
	FillLevels `yaml:",inline"`
	Latitude   float64 `json:"latitude" yaml:"latitude"`
	Longitude  float64 `json:"longitude" yaml:"longitude"`
}

// Key returns the truck ID.
func (t TruckStat) Key() int { return t.ID }

// Position returns the truck's coordinates.
func (t TruckStat) Position() LngLat { return LngLat{Lng: t.Longitude, Lat: t.Latitude} }

// Validate checks the record for values the map cannot display.
func (t TruckStat) Validate() error {
	if err := t.FillLevels.Validate(); err != nil {
		return fmt.Errorf("truck %d: %w", t.ID, err)
	}
	return nil
}

// Envelope is the `{ "data": [...] }` response shape shared by both feeds.
type Envelope[T any] struct {
	Data []T `json:"data" yaml:"data"`
}
