// ABOUTME: Tests for the layer resolver, weather table and wind curve
// ABOUTME: Uses fixed random sources so accent draws are deterministic
package resolver

import (
	"math"
	"reflect"
	"testing"

	"github.com/Sendspin/soundscape-go/internal/assets"
	"github.com/Sendspin/soundscape-go/internal/biome"
)

// fixedRand always returns the same value
type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

var (
	always = fixedRand(0)
	never  = fixedRand(0.99)
)

func layerMap(layers []Layer) map[string]Layer {
	m := make(map[string]Layer, len(layers))
	for _, l := range layers {
		m[l.ID] = l
	}
	return m
}

func TestIntensityFor(t *testing.T) {
	tests := []struct {
		code int
		want Intensity
	}{
		{0, Intensity{}},
		{2, Intensity{}},
		{45, Intensity{Fog: true}},
		{61, Intensity{Rain: 0.4, HasPrecipitation: true}},
		{73, Intensity{Snow: true, HasPrecipitation: true}},
		{95, Intensity{Rain: 0.8, Thunder: 0.6, HasPrecipitation: true}},
		{99, Intensity{Rain: 0.9, Thunder: 1.0, HasPrecipitation: true}},
		{1234, Intensity{}},
	}

	for _, tt := range tests {
		if got := IntensityFor(tt.code); got != tt.want {
			t.Errorf("IntensityFor(%d): expected %+v, got %+v", tt.code, tt.want, got)
		}
	}
}

func TestWindVolumeCurve(t *testing.T) {
	points := []struct {
		kph  float64
		want float64
	}{
		{0, 0.2},
		{9.9, 0.2},
		{10, 0.2},
		{17.5, 0.35},
		{25, 0.5},
		{32.5, 0.65},
		{40, 0.8},
		{60, 0.9},
		{80, 1.0},
		{200, 1.0},
		{math.NaN(), 0.2},
	}
	for _, p := range points {
		if got := WindVolume(p.kph); math.Abs(got-p.want) > 1e-9 {
			t.Errorf("WindVolume(%v): expected %v, got %v", p.kph, p.want, got)
		}
	}

	prev := WindVolume(0)
	for kph := 0.0; kph <= 150; kph += 0.25 {
		v := WindVolume(kph)
		if v < prev {
			t.Fatalf("wind curve decreased at %v kph: %v < %v", kph, v, prev)
		}
		if v < 0.2 || v > 1.0 {
			t.Fatalf("wind volume %v out of bounds at %v kph", v, kph)
		}
		prev = v
	}
}

func TestTimeOfDayAt(t *testing.T) {
	tests := []struct {
		hour int
		want TimeOfDay
	}{
		{0, Night},
		{4, Night},
		{5, Morning},
		{7, Morning},
		{8, Day},
		{16, Day},
		{17, Evening},
		{19, Evening},
		{20, Night},
		{23, Night},
	}
	for _, tt := range tests {
		if got := TimeOfDayAt(tt.hour); got != tt.want {
			t.Errorf("TimeOfDayAt(%d): expected %s, got %s", tt.hour, tt.want, got)
		}
	}

	if _, err := ParseTimeOfDay("dawn"); err == nil {
		t.Error("expected error for unknown time of day")
	}
	if tod, err := ParseTimeOfDay("Evening"); err != nil || tod != Evening {
		t.Errorf("expected evening, got %q (%v)", tod, err)
	}
}

func TestForestNightStorm(t *testing.T) {
	for _, rng := range []Rand{always, never} {
		layers := New(rng).Resolve(biome.Forest, Night, 65, 30, 70)
		m := layerMap(layers)

		rain, ok := m["rain-heavy"]
		if !ok || rain.Volume <= 0 {
			t.Errorf("expected non-zero precipitation layer, got %+v", layers)
		}
		if rain.Category != CategoryWeather {
			t.Errorf("expected weather category, got %s", rain.Category)
		}
		wind, ok := m["wind"]
		if !ok || wind.Volume < 0.5 {
			t.Errorf("expected wind layer >= 0.5, got %+v", wind)
		}
		if _, ok := m["forest-night"]; !ok {
			t.Error("expected forest-night base layer")
		}
	}
}

func TestAccentDraws(t *testing.T) {
	m := layerMap(New(always).Resolve(biome.Forest, Night, 0, 5, 70))
	for _, id := range []string{"forest-night", "owls", "crickets", "frogs", "wind"} {
		if _, ok := m[id]; !ok {
			t.Errorf("expected %s with every draw succeeding", id)
		}
	}
	if m["frogs"].Category != CategoryAccent {
		t.Errorf("expected frogs to be an accent, got %s", m["frogs"].Category)
	}
	if m["frogs"].Delay != accentDelay {
		t.Errorf("expected accent delay %v, got %v", accentDelay, m["frogs"].Delay)
	}

	dry := layerMap(New(always).Resolve(biome.Forest, Night, 0, 5, 40))
	if _, ok := dry["frogs"]; ok {
		t.Error("frogs need humid nights")
	}

	m = layerMap(New(never).Resolve(biome.Forest, Night, 0, 5, 70))
	if len(m) != 2 {
		t.Errorf("expected only base and wind with every draw failing, got %v", m)
	}
}

func TestHeavyRainQuietsAccents(t *testing.T) {
	sunny := layerMap(New(always).Resolve(biome.Plains, Evening, 0, 0, 50))
	wet := layerMap(New(always).Resolve(biome.Plains, Evening, 65, 0, 50))

	if wet["crickets"].Volume >= sunny["crickets"].Volume {
		t.Errorf("expected quieter crickets in rain: %v vs %v", wet["crickets"].Volume, sunny["crickets"].Volume)
	}

	snowy := layerMap(New(always).Resolve(biome.Mountain, Day, 73, 20, 50))
	if _, ok := snowy["birds"]; ok {
		t.Error("expected no birds in snow")
	}
	if _, ok := snowy["mountain-stream"]; ok {
		t.Error("expected no stream in snow")
	}
}

func TestEveryBiomeHasOneAlwaysOnBase(t *testing.T) {
	primary := map[biome.Biome]map[TimeOfDay]string{
		biome.Ocean:    {Morning: "ocean-waves", Day: "ocean-waves", Evening: "ocean-waves", Night: "ocean-waves"},
		biome.Forest:   {Morning: "forest-day", Day: "forest-day", Evening: "forest-day", Night: "forest-night"},
		biome.Desert:   {Morning: "desert-wind", Day: "desert-wind", Evening: "desert-wind", Night: "desert-wind"},
		biome.Mountain: {Morning: "mountain-wind", Day: "mountain-wind", Evening: "mountain-wind", Night: "mountain-wind"},
		biome.City:     {Morning: "city-traffic", Day: "city-traffic", Evening: "city-evening", Night: "city-night"},
		biome.Plains:   {Morning: "plains-breeze", Day: "plains-breeze", Evening: "plains-breeze", Night: "plains-breeze"},
		biome.Tundra:   {Morning: "tundra-wind", Day: "tundra-wind", Evening: "tundra-wind", Night: "tundra-wind"},
	}

	known := make(map[string]bool)
	for _, id := range assets.DefaultSounds {
		known[id] = true
	}

	for _, b := range biome.All {
		for _, tod := range TimesOfDay {
			for _, rng := range []Rand{always, never} {
				layers := New(rng).Resolve(b, tod, 95, 50, 90)
				m := layerMap(layers)

				want := primary[b][tod]
				l, ok := m[want]
				if !ok || l.Category != CategoryBase {
					t.Errorf("%s/%s: expected base layer %s, got %v", b, tod, want, layers)
				}

				for _, l := range layers {
					if !known[l.ID] {
						t.Errorf("%s/%s: layer %s has no asset", b, tod, l.ID)
					}
					if l.Volume <= 0 || l.Volume > 1 {
						t.Errorf("%s/%s: layer %s volume %v out of range", b, tod, l.ID, l.Volume)
					}
					if !l.Loop {
						t.Errorf("%s/%s: layer %s should loop", b, tod, l.ID)
					}
				}
			}
		}
	}
}

func TestCityWindIsScaled(t *testing.T) {
	city := layerMap(New(never).Resolve(biome.City, Day, 0, 40, 50))
	plains := layerMap(New(never).Resolve(biome.Plains, Day, 0, 40, 50))

	if math.Abs(city["wind"].Volume-0.56) > 1e-9 {
		t.Errorf("expected city wind 0.56, got %v", city["wind"].Volume)
	}
	if math.Abs(plains["wind"].Volume-0.8) > 1e-9 {
		t.Errorf("expected plains wind 0.8, got %v", plains["wind"].Volume)
	}
}

func TestThunderLayer(t *testing.T) {
	m := layerMap(New(never).Resolve(biome.Ocean, Day, 95, 10, 80))

	thunder, ok := m["thunder"]
	if !ok {
		t.Fatal("expected thunder layer")
	}
	if thunder.Volume != 0.6 {
		t.Errorf("expected thunder volume 0.6, got %v", thunder.Volume)
	}
	if thunder.Delay != thunderDelay {
		t.Errorf("expected thunder delay %v, got %v", thunderDelay, thunder.Delay)
	}

	light := layerMap(New(never).Resolve(biome.Ocean, Day, 51, 10, 80))
	if light["rain-light"].Volume != 0.1 {
		t.Errorf("expected light rain 0.1, got %+v", light["rain-light"])
	}
}

func TestSeededResolverIsDeterministic(t *testing.T) {
	a := NewSeeded(42)
	b := NewSeeded(42)

	for i := 0; i < 20; i++ {
		la := a.Resolve(biome.Forest, Evening, 61, 15, 75)
		lb := b.Resolve(biome.Forest, Evening, 61, 15, 75)
		if !reflect.DeepEqual(la, lb) {
			t.Fatalf("resolution %d differs: %v vs %v", i, la, lb)
		}
	}
}

func TestUnknownBiome(t *testing.T) {
	layers := New(always).Resolve(biome.Biome("swamp"), Day, 61, 5, 50)
	m := layerMap(layers)
	if len(m) != 2 {
		t.Fatalf("expected rain and wind only, got %v", layers)
	}
	if _, ok := m["rain-light"]; !ok {
		t.Error("expected rain-light layer")
	}
}

func TestNaNWindIsCalm(t *testing.T) {
	layers := New(never).Resolve(biome.Forest, Day, 0, math.NaN(), 50)
	for _, l := range layers {
		if math.IsNaN(l.Volume) || l.Volume <= 0 || l.Volume > 1 {
			t.Errorf("layer %s has volume %v", l.ID, l.Volume)
		}
	}
	if v := layerMap(layers)["wind"].Volume; v != 0.2 {
		t.Errorf("expected calm wind volume 0.2, got %v", v)
	}
}

func TestFogQuietsWind(t *testing.T) {
	tests := []struct {
		name  string
		biome biome.Biome
		want  float64
	}{
		{"plains", biome.Plains, 0.48},
		{"city", biome.City, 0.336},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sunny := layerMap(New(never).Resolve(tt.biome, Day, 0, 40, 50))
			fog := layerMap(New(never).Resolve(tt.biome, Day, 45, 40, 50))

			if math.Abs(fog["wind"].Volume-tt.want) > 1e-9 {
				t.Errorf("expected fog wind %v, got %v", tt.want, fog["wind"].Volume)
			}
			if fog["wind"].Volume >= sunny["wind"].Volume {
				t.Errorf("fog wind %v should be quieter than clear %v", fog["wind"].Volume, sunny["wind"].Volume)
			}
			if len(fog) != len(sunny) {
				t.Errorf("fog changed the layer set: %v vs %v", fog, sunny)
			}
		})
	}
}
