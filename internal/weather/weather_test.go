// ABOUTME: Tests for the static weather source and presets
// ABOUTME: Checks coordinate passthrough, time filling and lookups
package weather

import (
	"context"
	"testing"
	"time"
)

func TestStaticCurrent(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 21, 0, 0, 0, time.UTC)
	s := NewStatic(Snapshot{Code: 61, WindKph: 12, Humidity: 80})
	s.Now = func() time.Time { return fixed }

	snap, err := s.Current(context.Background(), 47.6, -122.3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Code != 61 || snap.WindKph != 12 || snap.Humidity != 80 {
		t.Errorf("unexpected conditions: %+v", snap)
	}
	if snap.Lat != 47.6 || snap.Lon != -122.3 {
		t.Errorf("expected request coordinates, got %f,%f", snap.Lat, snap.Lon)
	}
	if !snap.LocalTime.Equal(fixed) {
		t.Errorf("expected local time %v, got %v", fixed, snap.LocalTime)
	}

	s.Set(Snapshot{Code: 95})
	snap, _ = s.Current(context.Background(), 0, 0)
	if snap.Code != 95 {
		t.Errorf("expected updated code 95, got %d", snap.Code)
	}
}

func TestStaticCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewStatic(Snapshot{}).Current(ctx, 0, 0); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestPresets(t *testing.T) {
	p, err := LookupPreset("storm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Code != 95 {
		t.Errorf("expected storm code 95, got %d", p.Code)
	}

	if _, err := LookupPreset("hail"); err == nil {
		t.Error("expected error for unknown preset")
	}

	names := PresetNames()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d names, got %d", len(Presets), len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("names not sorted: %v", names)
		}
	}

	at := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	snap := p.Snapshot(at)
	if snap.Code != 95 || !snap.LocalTime.Equal(at) {
		t.Errorf("unexpected preset snapshot: %+v", snap)
	}
}
