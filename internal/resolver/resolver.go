// ABOUTME: Layer resolver mapping biome, time of day and weather to sound layers
// ABOUTME: Optional accents are gated by draws from an injected random source
package resolver

import (
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/Sendspin/soundscape-go/internal/biome"
)

// Category labels a layer for bookkeeping only
type Category string

const (
	CategoryBase    Category = "base"
	CategoryWeather Category = "weather"
	CategoryAccent  Category = "accent"
)

// AccentChance is the probability of each optional accent category
const AccentChance = 0.3

// Layer describes one desired sound
type Layer struct {
	ID       string        `json:"id"`
	Volume   float64       `json:"volume"`
	Loop     bool          `json:"loop"`
	Category Category      `json:"category"`
	FadeIn   time.Duration `json:"fade_in,omitempty"`
	Delay    time.Duration `json:"delay,omitempty"`
}

// Rand is the random source for accent draws
type Rand interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Resolver composes layer sets
type Resolver struct {
	mu  sync.Mutex
	rng Rand
}

// New creates a resolver drawing from rng. A nil rng uses the process-wide source.
func New(rng Rand) *Resolver {
	if rng == nil {
		rng = globalRand{}
	}
	return &Resolver{rng: rng}
}

// NewSeeded creates a resolver with a deterministic source
func NewSeeded(seed int64) *Resolver {
	return New(rand.New(rand.NewSource(seed)))
}

// draws holds one resolution's accent decisions
type draws struct {
	birds    bool
	crickets bool
	frogs    bool
}

func (r *Resolver) draw() draws {
	r.mu.Lock()
	defer r.mu.Unlock()
	return draws{
		birds:    r.rng.Float64() < AccentChance,
		crickets: r.rng.Float64() < AccentChance,
		frogs:    r.rng.Float64() < AccentChance,
	}
}

// Conditions are the environmental inputs for one resolution
type Conditions struct {
	Biome     biome.Biome
	TimeOfDay TimeOfDay
	Code      int
	WindKph   float64
	Humidity  float64
}

// Resolve computes the desired layers for the given environment
func (r *Resolver) Resolve(b biome.Biome, tod TimeOfDay, code int, windKph, humidity float64) []Layer {
	return r.ResolveConditions(Conditions{
		Biome:     b,
		TimeOfDay: tod,
		Code:      code,
		WindKph:   windKph,
		Humidity:  humidity,
	})
}

// ResolveConditions is Resolve over a Conditions value
func (r *Resolver) ResolveConditions(c Conditions) []Layer {
	d := r.draw()
	in := IntensityFor(c.Code)

	rule, ok := rules[c.Biome]
	if !ok {
		log.Printf("Unknown biome %q, using weather layers only", c.Biome)
		rule = func(*composer) {}
	}

	comp := &composer{cond: c, draws: d, weather: in}
	rule(comp)
	comp.addWeather()
	comp.addWind()
	return comp.layers
}

type composer struct {
	cond    Conditions
	draws   draws
	weather Intensity
	layers  []Layer
	seen    map[string]bool
}

func (c *composer) add(id string, volume float64, cat Category, delay time.Duration) {
	if math.IsNaN(volume) || volume <= 0 {
		return
	}
	if c.seen == nil {
		c.seen = make(map[string]bool)
	}
	if c.seen[id] {
		return
	}
	c.seen[id] = true
	if volume > 1 {
		volume = 1
	}
	c.layers = append(c.layers, Layer{
		ID:       id,
		Volume:   volume,
		Loop:     true,
		Category: cat,
		Delay:    delay,
	})
}

func (c *composer) base(id string, volume float64) {
	c.add(id, volume, CategoryBase, 0)
}

func (c *composer) accent(id string, volume float64) {
	// wet or snowy weather mutes most wildlife
	if c.weather.Snow {
		return
	}
	if c.weather.Rain >= 0.5 {
		volume *= 0.5
	}
	c.add(id, volume, CategoryAccent, accentDelay)
}

func (c *composer) addWeather() {
	if c.weather.Rain > 0 {
		id := "rain-light"
		if c.weather.Rain >= 0.5 {
			id = "rain-heavy"
		}
		c.add(id, c.weather.Rain, CategoryWeather, 0)
	}
	if c.weather.Thunder > 0 {
		c.add("thunder", c.weather.Thunder, CategoryWeather, thunderDelay)
	}
}

func (c *composer) addWind() {
	scale := 1.0
	if c.cond.Biome == biome.City {
		scale = 0.7
	}
	// fog hangs in still air
	if c.weather.Fog {
		scale *= fogWindScale
	}
	c.add("wind", WindVolume(c.cond.WindKph)*scale, CategoryWeather, 0)
}
