// ABOUTME: Soundscape controller converging the engine on a resolved layer set
// ABOUTME: Issues removals, then additions, then volume adjustments per update
package soundscape

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Sendspin/soundscape-go/internal/assets"
	"github.com/Sendspin/soundscape-go/internal/biome"
	"github.com/Sendspin/soundscape-go/internal/engine"
	"github.com/Sendspin/soundscape-go/internal/resolver"
	"github.com/Sendspin/soundscape-go/internal/sched"
	"github.com/Sendspin/soundscape-go/internal/weather"
)

// Engine is the playback surface the controller drives
type Engine interface {
	Initialize() error
	Preload(ctx context.Context, ids []string) assets.PreloadResult
	Play(id string, opts engine.PlayOptions) error
	Stop(id string, fade time.Duration) error
	StopAll(fade time.Duration) error
	SetVolume(id string, volume float64, fade time.Duration) error
	SetMasterVolume(volume float64) error
	ToggleMute() (bool, error)
	State() engine.State
	ActiveSounds() []string
	Dispose() error
}

// TransitionConfig controls how one soundscape gives way to the next
type TransitionConfig struct {
	FadeOut  time.Duration `json:"fade_out" yaml:"fade_out"`
	FadeIn   time.Duration `json:"fade_in" yaml:"fade_in"`
	ClearAll bool          `json:"clear_all" yaml:"clear_all"`
}

// DefaultTransition returns the default transition settings
func DefaultTransition() TransitionConfig {
	return TransitionConfig{
		FadeOut: 5 * time.Second,
		FadeIn:  5 * time.Second,
	}
}

// Scene is the environment a soundscape was resolved from
type Scene struct {
	Biome     biome.Biome        `json:"biome"`
	TimeOfDay resolver.TimeOfDay `json:"time_of_day"`
	Code      int                `json:"weather_code"`
	WindKph   float64            `json:"wind_kph"`
	Humidity  float64            `json:"humidity"`
	Layers    []resolver.Layer   `json:"layers"`
}

// Config holds controller configuration
type Config struct {
	Transition TransitionConfig
	// Sounds preloaded when Preload is called without ids
	Sounds []string
	// Classifier maps snapshot coordinates to a biome
	Classifier biome.Classifier
	// Scheduler times clear-all cutovers. Defaults to wall-clock timers.
	Scheduler sched.Scheduler
}

// Controller owns the current soundscape
type Controller struct {
	engine   Engine
	resolver *resolver.Resolver
	config   Config
	sched    sched.Scheduler

	mu         sync.Mutex
	current    []resolver.Layer
	scene      *Scene
	generation uint64
	cutover    sched.Task
}

// New creates a controller
func New(eng Engine, res *resolver.Resolver, config Config) *Controller {
	if config.Transition == (TransitionConfig{}) {
		config.Transition = DefaultTransition()
	}
	if len(config.Sounds) == 0 {
		config.Sounds = assets.DefaultSounds
	}
	if config.Classifier == nil {
		config.Classifier = biome.Fixed(biome.Plains)
	}
	if config.Scheduler == nil {
		config.Scheduler = sched.Realtime{}
	}
	if res == nil {
		res = resolver.New(nil)
	}

	return &Controller{
		engine:   eng,
		resolver: res,
		config:   config,
		sched:    config.Scheduler,
	}
}

// Initialize starts the engine and applies any soundscape set before it
// was ready. It must follow a user gesture.
func (c *Controller) Initialize() error {
	if err := c.engine.Initialize(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.scene != nil && len(c.current) == 0 {
		log.Printf("Applying deferred soundscape: %s/%s", c.scene.Biome, c.scene.TimeOfDay)
		return c.updateLocked(c.scene.Layers, nil, c.config.Transition)
	}
	return nil
}

// Preload loads ids, or every configured sound when ids is empty
func (c *Controller) Preload(ctx context.Context, ids ...string) assets.PreloadResult {
	if len(ids) == 0 {
		ids = c.config.Sounds
	}
	return c.engine.Preload(ctx, ids)
}

// UpdateSoundscape resolves a weather snapshot and transitions to it
func (c *Controller) UpdateSoundscape(snap weather.Snapshot, cfg ...TransitionConfig) error {
	b := c.config.Classifier.Classify(snap.Lat, snap.Lon)
	tod := resolver.TimeOfDayOf(snap.LocalTime)
	return c.SetSoundscape(b, tod, snap.Code, snap.WindKph, snap.Humidity, cfg...)
}

// SetSoundscape resolves explicit conditions and transitions to them
func (c *Controller) SetSoundscape(b biome.Biome, tod resolver.TimeOfDay, code int, windKph, humidity float64, cfg ...TransitionConfig) error {
	layers := c.resolver.Resolve(b, tod, code, windKph, humidity)
	scene := &Scene{
		Biome:     b,
		TimeOfDay: tod,
		Code:      code,
		WindKph:   windKph,
		Humidity:  humidity,
		Layers:    layers,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.scene = scene
	if !c.engine.State().Initialized {
		log.Printf("Deferring soundscape %s/%s until audio starts", b, tod)
		return engine.ErrNotInitialized
	}

	log.Printf("Soundscape %s/%s code=%d wind=%.0fkph humidity=%.0f%%: %d layers",
		b, tod, code, windKph, humidity, len(layers))
	return c.updateLocked(layers, c.current, c.transition(cfg))
}

// Update converges the engine from current to desired
func (c *Controller) Update(desired, current []resolver.Layer, cfg TransitionConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateLocked(desired, current, cfg)
}

func (c *Controller) updateLocked(desired, current []resolver.Layer, cfg TransitionConfig) error {
	c.cancelCutoverLocked()

	if cfg.ClearAll {
		return c.clearAllLocked(desired, current, cfg)
	}

	d := Compute(desired, current)
	var errs []error

	for _, l := range d.Remove {
		if err := c.engine.Stop(l.ID, cfg.FadeOut); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", l.ID, err))
		}
	}
	for _, l := range d.Add {
		if err := c.engine.Play(l.ID, playOptions(l, cfg)); err != nil {
			errs = append(errs, fmt.Errorf("play %s: %w", l.ID, err))
		}
	}

	prev := make(map[string]float64, len(current))
	for _, l := range current {
		prev[l.ID] = l.Volume
	}
	for _, l := range d.Keep {
		if !VolumeChanged(prev[l.ID], l.Volume) {
			continue
		}
		if err := c.engine.SetVolume(l.ID, l.Volume, cfg.FadeIn); err != nil {
			errs = append(errs, fmt.Errorf("set volume %s: %w", l.ID, err))
		}
	}

	c.current = desired
	return errors.Join(errs...)
}

// clearAllLocked stops everything now and starts desired after the fade out
func (c *Controller) clearAllLocked(desired, current []resolver.Layer, cfg TransitionConfig) error {
	var errs []error
	for _, l := range current {
		if err := c.engine.Stop(l.ID, cfg.FadeOut); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", l.ID, err))
		}
	}
	c.current = nil

	gen := c.generation
	c.cutover = c.sched.AfterFunc(cfg.FadeOut, func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.generation != gen {
			return
		}
		c.cutover = nil
		for _, l := range desired {
			if err := c.engine.Play(l.ID, playOptions(l, cfg)); err != nil {
				log.Printf("Cutover failed to play %s: %v", l.ID, err)
			}
		}
		c.current = desired
	})
	return errors.Join(errs...)
}

// cancelCutoverLocked abandons a scheduled clear-all start
func (c *Controller) cancelCutoverLocked() {
	c.generation++
	if c.cutover != nil {
		c.cutover.Cancel()
		c.cutover = nil
	}
}

// StopSoundscape fades out every sound and forgets the current soundscape
func (c *Controller) StopSoundscape(fade time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelCutoverLocked()
	c.current = nil
	c.scene = nil
	return c.engine.StopAll(fade)
}

// SetMasterVolume sets the engine master volume
func (c *Controller) SetMasterVolume(volume float64) error {
	return c.engine.SetMasterVolume(volume)
}

// ToggleMute toggles the engine mute state
func (c *Controller) ToggleMute() (bool, error) {
	return c.engine.ToggleMute()
}

// CurrentSoundscape returns the last resolved scene
func (c *Controller) CurrentSoundscape() (Scene, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.scene == nil {
		return Scene{}, false
	}
	s := *c.scene
	s.Layers = append([]resolver.Layer(nil), c.scene.Layers...)
	return s, true
}

// State returns the engine state
func (c *Controller) State() engine.State {
	return c.engine.State()
}

// ActiveSounds returns the sounds the engine is playing
func (c *Controller) ActiveSounds() []string {
	return c.engine.ActiveSounds()
}

// Dispose cancels pending transitions and disposes the engine
func (c *Controller) Dispose() error {
	c.mu.Lock()
	c.cancelCutoverLocked()
	c.current = nil
	c.mu.Unlock()

	return c.engine.Dispose()
}

func (c *Controller) transition(cfg []TransitionConfig) TransitionConfig {
	if len(cfg) > 0 {
		return cfg[0]
	}
	return c.config.Transition
}

func playOptions(l resolver.Layer, cfg TransitionConfig) engine.PlayOptions {
	fadeIn := l.FadeIn
	if fadeIn == 0 {
		fadeIn = cfg.FadeIn
	}
	return engine.PlayOptions{
		Volume:     l.Volume,
		Loop:       l.Loop,
		FadeIn:     fadeIn,
		StartDelay: l.Delay,
		Category:   engine.Category(l.Category),
	}
}
