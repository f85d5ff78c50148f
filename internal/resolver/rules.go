// ABOUTME: Per-biome composition rules
// ABOUTME: Each rule emits one base ambience plus optional secondary and accent layers
package resolver

import (
	"time"

	"github.com/Sendspin/soundscape-go/internal/biome"
)

const (
	accentDelay  = 2 * time.Second
	thunderDelay = 3 * time.Second

	frogHumidity = 60
	fogWindScale = 0.6
)

var rules = map[biome.Biome]func(*composer){
	biome.Ocean:    oceanRule,
	biome.Forest:   forestRule,
	biome.Desert:   desertRule,
	biome.Mountain: mountainRule,
	biome.City:     cityRule,
	biome.Plains:   plainsRule,
	biome.Tundra:   tundraRule,
}

func oceanRule(c *composer) {
	c.base("ocean-waves", 0.7)
	if c.draws.birds && !c.cond.TimeOfDay.dark() {
		c.accent("seagulls", 0.35)
	}
}

func forestRule(c *composer) {
	if c.cond.TimeOfDay.dark() {
		c.base("forest-night", 0.6)
		if c.draws.birds {
			c.base("owls", 0.3)
		}
	} else {
		c.base("forest-day", 0.6)
		if c.draws.birds {
			c.base("birds", 0.45)
		}
	}
	nightlife(c, 0.35, 0.3)
}

func desertRule(c *composer) {
	c.base("desert-wind", 0.5)
	if c.draws.crickets && c.cond.TimeOfDay.dusk() {
		c.accent("insects", 0.3)
	}
}

func mountainRule(c *composer) {
	c.base("mountain-wind", 0.5)
	// frozen streams are silent
	if c.draws.frogs && !c.weather.Snow {
		c.base("mountain-stream", 0.4)
	}
	if c.draws.birds && !c.cond.TimeOfDay.dark() {
		c.accent("birds", 0.25)
	}
}

func cityRule(c *composer) {
	switch c.cond.TimeOfDay {
	case Night:
		c.base("city-night", 0.5)
	case Evening:
		c.base("city-evening", 0.55)
	default:
		c.base("city-traffic", 0.6)
	}
	if c.draws.birds && c.cond.TimeOfDay == Morning {
		c.accent("birds", 0.2)
	}
}

func plainsRule(c *composer) {
	c.base("plains-breeze", 0.5)
	if c.draws.birds && !c.cond.TimeOfDay.dark() {
		c.accent("birds", 0.3)
	}
	nightlife(c, 0.4, 0.3)
}

func tundraRule(c *composer) {
	c.base("tundra-wind", 0.6)
	if c.draws.birds && c.cond.TimeOfDay.dark() {
		c.accent("owls", 0.2)
	}
}

// nightlife adds the dusk crickets and the humid-night frogs
func nightlife(c *composer, crickets, frogs float64) {
	if c.draws.crickets && c.cond.TimeOfDay.dusk() {
		c.accent("crickets", crickets)
	}
	if c.draws.frogs && c.cond.TimeOfDay.dark() && c.cond.Humidity > frogHumidity {
		c.accent("frogs", frogs)
	}
}
