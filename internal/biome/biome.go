// ABOUTME: Biome variants and coordinate classifiers
// ABOUTME: Grid consumes a precomputed YAML lookup table of biome cells
package biome

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// Biome is a categorical environment classification
type Biome string

const (
	Ocean    Biome = "ocean"
	Forest   Biome = "forest"
	Desert   Biome = "desert"
	Mountain Biome = "mountain"
	City     Biome = "city"
	Plains   Biome = "plains"
	Tundra   Biome = "tundra"
)

// All lists every biome in display order
var All = []Biome{Ocean, Forest, Desert, Mountain, City, Plains, Tundra}

// Parse converts a name into a Biome
func Parse(s string) (Biome, error) {
	b := Biome(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range All {
		if b == known {
			return b, nil
		}
	}
	return "", fmt.Errorf("unknown biome: %q", s)
}

// Classifier maps coordinates to a biome
type Classifier interface {
	Classify(lat, lon float64) Biome
}

// Fixed classifies every coordinate as the same biome
type Fixed Biome

// Classify returns the fixed biome
func (f Fixed) Classify(lat, lon float64) Biome {
	return Biome(f)
}

type cellKey struct {
	lat, lon int
}

// Grid looks up biomes in a regular lat/lon grid
type Grid struct {
	resolution float64
	fallback   Biome
	cells      map[cellKey]Biome
}

type gridFile struct {
	Resolution float64 `yaml:"resolution"`
	Default    string  `yaml:"default"`
	Cells      []struct {
		Lat   float64 `yaml:"lat"`
		Lon   float64 `yaml:"lon"`
		Biome string  `yaml:"biome"`
	} `yaml:"cells"`
}

// ParseGrid decodes a YAML grid table
func ParseGrid(data []byte) (*Grid, error) {
	var f gridFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse biome grid: %w", err)
	}

	if f.Resolution <= 0 {
		f.Resolution = 1
	}
	fallback := Plains
	if f.Default != "" {
		b, err := Parse(f.Default)
		if err != nil {
			return nil, fmt.Errorf("biome grid default: %w", err)
		}
		fallback = b
	}

	g := &Grid{
		resolution: f.Resolution,
		fallback:   fallback,
		cells:      make(map[cellKey]Biome, len(f.Cells)),
	}
	for i, c := range f.Cells {
		b, err := Parse(c.Biome)
		if err != nil {
			return nil, fmt.Errorf("biome grid cell %d: %w", i, err)
		}
		g.cells[g.key(c.Lat, c.Lon)] = b
	}
	return g, nil
}

// LoadGrid reads a YAML grid table from disk
func LoadGrid(path string) (*Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read biome grid: %w", err)
	}
	return ParseGrid(data)
}

// Classify returns the biome of the cell containing the coordinates
func (g *Grid) Classify(lat, lon float64) Biome {
	if b, ok := g.cells[g.key(lat, lon)]; ok {
		return b
	}
	return g.fallback
}

// Len returns the number of cells in the grid
func (g *Grid) Len() int {
	return len(g.cells)
}

func (g *Grid) key(lat, lon float64) cellKey {
	return cellKey{
		lat: int(math.Floor(lat / g.resolution)),
		lon: int(math.Floor(lon / g.resolution)),
	}
}
