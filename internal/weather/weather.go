// ABOUTME: Weather snapshot type and the source interface that supplies it
// ABOUTME: Static serves a fixed snapshot; remote fetching lives elsewhere
package weather

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Snapshot is one observation of local weather conditions
type Snapshot struct {
	Code      int       `json:"code" yaml:"code"`
	WindKph   float64   `json:"wind_kph" yaml:"wind_kph"`
	Humidity  float64   `json:"humidity" yaml:"humidity"`
	LocalTime time.Time `json:"local_time" yaml:"local_time"`
	Lat       float64   `json:"lat" yaml:"lat"`
	Lon       float64   `json:"lon" yaml:"lon"`
}

// Source provides current weather for a coordinate
type Source interface {
	Current(ctx context.Context, lat, lon float64) (Snapshot, error)
}

// Static is a Source that always reports the same conditions.
// The coordinates of each request are copied into the result and
// LocalTime is filled from Now when unset.
type Static struct {
	mu   sync.RWMutex
	snap Snapshot
	Now  func() time.Time
}

// NewStatic creates a static source
func NewStatic(snap Snapshot) *Static {
	return &Static{snap: snap, Now: time.Now}
}

// Set replaces the reported conditions
func (s *Static) Set(snap Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

// Current returns the configured snapshot
func (s *Static) Current(ctx context.Context, lat, lon float64) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()

	snap.Lat = lat
	snap.Lon = lon
	if snap.LocalTime.IsZero() && s.Now != nil {
		snap.LocalTime = s.Now()
	}
	return snap, nil
}

// Preset is a named set of conditions
type Preset struct {
	Name     string
	Code     int
	WindKph  float64
	Humidity float64
}

// Presets are the canned conditions cycled by the terminal UI
var Presets = []Preset{
	{Name: "clear", Code: 0, WindKph: 5, Humidity: 40},
	{Name: "rain", Code: 63, WindKph: 15, Humidity: 85},
	{Name: "storm", Code: 95, WindKph: 45, Humidity: 90},
	{Name: "snow", Code: 73, WindKph: 20, Humidity: 70},
	{Name: "fog", Code: 45, WindKph: 3, Humidity: 95},
	{Name: "windy", Code: 2, WindKph: 35, Humidity: 50},
}

// LookupPreset finds a preset by name
func LookupPreset(name string) (Preset, error) {
	for _, p := range Presets {
		if p.Name == name {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("unknown weather preset: %q", name)
}

// PresetNames lists the preset names in sorted order
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for _, p := range Presets {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// Snapshot builds a snapshot from the preset at the given time
func (p Preset) Snapshot(at time.Time) Snapshot {
	return Snapshot{
		Code:      p.Code,
		WindKph:   p.WindKph,
		Humidity:  p.Humidity,
		LocalTime: at,
	}
}
