// ABOUTME: Tests for biome parsing and the grid classifier
// ABOUTME: Parses small YAML tables and checks cell lookups
package biome

import (
	"os"
	"path/filepath"
	"testing"
)

const testGrid = `
resolution: 0.5
default: ocean
cells:
  - lat: 47.6
    lon: -122.3
    biome: city
  - lat: 36.1
    lon: -115.2
    biome: desert
  - lat: 46.8
    lon: -121.7
    biome: mountain
`

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Biome
		wantErr bool
	}{
		{"forest", Forest, false},
		{" Tundra ", Tundra, false},
		{"CITY", City, false},
		{"swamp", "", true},
	}

	for _, tt := range tests {
		got, err := Parse(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q): unexpected error state %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Parse(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestGridClassify(t *testing.T) {
	g, err := ParseGrid([]byte(testGrid))
	if err != nil {
		t.Fatalf("failed to parse grid: %v", err)
	}
	if g.Len() != 3 {
		t.Fatalf("expected 3 cells, got %d", g.Len())
	}

	tests := []struct {
		lat, lon float64
		want     Biome
	}{
		{47.61, -122.33, City},
		{47.9, -122.01, City},
		{36.2, -115.1, Desert},
		{46.9, -121.6, Mountain},
		{0, 0, Ocean},
	}

	for _, tt := range tests {
		if got := g.Classify(tt.lat, tt.lon); got != tt.want {
			t.Errorf("Classify(%f, %f): expected %s, got %s", tt.lat, tt.lon, tt.want, got)
		}
	}
}

func TestGridRejectsUnknownBiome(t *testing.T) {
	_, err := ParseGrid([]byte("cells:\n  - lat: 1\n    lon: 1\n    biome: lava\n"))
	if err == nil {
		t.Error("expected error for unknown biome")
	}
}

func TestLoadGrid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.yaml")
	if err := os.WriteFile(path, []byte(testGrid), 0644); err != nil {
		t.Fatalf("failed to write grid: %v", err)
	}

	g, err := LoadGrid(path)
	if err != nil {
		t.Fatalf("failed to load grid: %v", err)
	}
	if g.Classify(36.2, -115.1) != Desert {
		t.Error("expected desert cell")
	}

	if _, err := LoadGrid(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFixedClassifier(t *testing.T) {
	var c Classifier = Fixed(Tundra)
	if c.Classify(12, 34) != Tundra {
		t.Error("expected fixed biome")
	}
}
