// ABOUTME: Soundscape server application orchestration
// ABOUTME: Wires assets, engine, controller and control server from configuration
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Sendspin/soundscape-go/internal/assets"
	"github.com/Sendspin/soundscape-go/internal/biome"
	"github.com/Sendspin/soundscape-go/internal/config"
	"github.com/Sendspin/soundscape-go/internal/control"
	"github.com/Sendspin/soundscape-go/internal/engine"
	"github.com/Sendspin/soundscape-go/internal/resolver"
	"github.com/Sendspin/soundscape-go/internal/sched"
	"github.com/Sendspin/soundscape-go/internal/soundscape"
	"github.com/Sendspin/soundscape-go/internal/ui"
	"github.com/Sendspin/soundscape-go/internal/weather"
	"github.com/Sendspin/soundscape-go/pkg/audio/decode"
	"github.com/Sendspin/soundscape-go/pkg/audio/output"
)

// Options overrides parts of the wiring. Zero values use the configuration.
type Options struct {
	Output    output.Output
	Scheduler sched.Scheduler
	Clock     sched.Clock
	Rand      resolver.Rand
	Now       func() time.Time
}

// SceneRequest names a scene by its user-facing values. An empty Biome
// classifies Lat/Lon and an empty TimeOfDay follows the local clock.
type SceneRequest struct {
	Biome     string
	TimeOfDay string
	Weather   string
	Lat       float64
	Lon       float64
}

// App is the soundscape server
type App struct {
	config     *config.Config
	cache      *assets.Cache
	engine     *engine.Engine
	controller *soundscape.Controller
	server     *control.Server
	weather    *weather.Static
	classifier biome.Classifier
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
	serving sync.WaitGroup
}

// New builds the application from cfg
func New(cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	fetcher, err := assets.NewFetcher(cfg.Assets.Base, cfg.Assets.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create asset fetcher: %w", err)
	}

	catalog := assets.DefaultCatalog()
	if len(cfg.Assets.Sounds) > 0 {
		catalog = assets.NewCatalog(cfg.Assets.Sounds)
	}
	if len(cfg.Assets.Fallback) > 0 {
		catalog.SetFallback(cfg.Assets.Fallback)
	}

	cache := assets.NewCache(assets.Config{
		Catalog:     catalog,
		Fetcher:     fetcher,
		Decoder:     decode.NewRegistry(),
		SampleRate:  cfg.Audio.SampleRate,
		Channels:    cfg.Audio.Channels,
		Parallelism: cfg.Assets.Parallelism,
	})

	out := opts.Output
	if out == nil {
		out, err = output.New(cfg.Audio.Backend)
		if err != nil {
			return nil, err
		}
	}

	eng := engine.New(engine.Config{
		SampleRate:    cfg.Audio.SampleRate,
		Channels:      cfg.Audio.Channels,
		MinStartDelay: cfg.Engine.MinStartDelay,
		FadePolicy: engine.FadePolicy{
			Fraction: cfg.Engine.FadeFraction,
			Min:      cfg.Engine.FadeMin,
			Max:      cfg.Engine.FadeMax,
		},
		Backend:   cfg.Audio.Backend,
		Output:    out,
		Scheduler: opts.Scheduler,
		Clock:     opts.Clock,
	}, cache)

	res := resolver.New(opts.Rand)
	if opts.Rand == nil && cfg.Seed != 0 {
		res = resolver.NewSeeded(cfg.Seed)
	}

	classifier, err := newClassifier(cfg)
	if err != nil {
		return nil, err
	}

	sounds := assets.DefaultSounds
	if len(cfg.Assets.Sounds) > 0 {
		sounds = catalog.IDs()
	}

	ctl := soundscape.New(eng, res, soundscape.Config{
		Transition: soundscape.TransitionConfig{
			FadeOut:  cfg.Transition.FadeOut,
			FadeIn:   cfg.Transition.FadeIn,
			ClearAll: cfg.Transition.ClearAll,
		},
		Sounds:     sounds,
		Classifier: classifier,
		Scheduler:  opts.Scheduler,
	})

	srv := control.New(control.Config{
		Port:          cfg.Server.Port,
		Name:          cfg.Server.Name,
		EnableMDNS:    cfg.Server.MDNS,
		StateInterval: cfg.Server.StateInterval,
		Now:           opts.Now,
	}, ctl)

	src := weather.NewStatic(weather.Snapshot{})
	src.Now = opts.Now

	ctx, cancel := context.WithCancel(context.Background())

	return &App{
		config:     cfg,
		cache:      cache,
		engine:     eng,
		controller: ctl,
		server:     srv,
		weather:    src,
		classifier: classifier,
		now:        opts.Now,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

func newClassifier(cfg *config.Config) (biome.Classifier, error) {
	if cfg.Assets.BiomeGrid != "" {
		grid, err := biome.LoadGrid(cfg.Assets.BiomeGrid)
		if err != nil {
			return nil, err
		}
		log.Printf("Loaded biome grid with %d cells", grid.Len())
		return grid, nil
	}

	b := biome.Plains
	if cfg.Scene.Biome != "" {
		parsed, err := biome.Parse(cfg.Scene.Biome)
		if err != nil {
			return nil, err
		}
		b = parsed
	}
	return biome.Fixed(b), nil
}

// Controller returns the soundscape controller
func (a *App) Controller() *soundscape.Controller {
	return a.controller
}

// Engine returns the playback engine
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Server returns the control server
func (a *App) Server() *control.Server {
	return a.server
}

// Start preloads sounds in the background and serves control connections
// until Stop. It applies the configured startup scene; audio stays silent
// until Initialize.
func (a *App) Start() error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return fmt.Errorf("already started")
	}
	a.started = true
	a.mu.Unlock()

	a.serving.Add(1)
	go func() {
		defer a.serving.Done()
		result := a.controller.Preload(a.ctx)
		if len(result.Failed) > 0 {
			log.Printf("Sounds unavailable: %v", result.Failed)
		}
	}()

	if err := a.ApplyScene(a.ctx, a.StartupScene()); err != nil {
		log.Printf("Startup scene rejected: %v", err)
	}

	serverErr := make(chan error, 1)
	a.serving.Add(1)
	go func() {
		defer a.serving.Done()
		serverErr <- a.server.Start()
	}()

	select {
	case err := <-serverErr:
		return err
	case <-a.ctx.Done():
		return nil
	}
}

// StartupScene returns the scene named in the configuration
func (a *App) StartupScene() SceneRequest {
	s := a.config.Scene
	return SceneRequest{
		Biome:     s.Biome,
		TimeOfDay: s.TimeOfDay,
		Weather:   s.Weather,
		Lat:       s.Lat,
		Lon:       s.Lon,
	}
}

// Initialize starts audio output and applies the configured master volume
func (a *App) Initialize() error {
	if err := a.controller.Initialize(); err != nil {
		return err
	}
	return a.controller.SetMasterVolume(a.config.Audio.MasterVolume)
}

// ApplyScene resolves req and transitions to it. A scene applied before
// Initialize is kept and started with the audio.
func (a *App) ApplyScene(ctx context.Context, req SceneRequest) error {
	name := req.Weather
	if name == "" {
		name = "clear"
	}
	preset, err := weather.LookupPreset(name)
	if err != nil {
		return err
	}

	a.weather.Set(preset.Snapshot(time.Time{}))
	snap, err := a.weather.Current(ctx, req.Lat, req.Lon)
	if err != nil {
		return fmt.Errorf("failed to read weather: %w", err)
	}

	if req.Biome == "" && req.TimeOfDay == "" {
		err = a.controller.UpdateSoundscape(snap)
	} else {
		err = a.setScene(req, snap)
	}
	if errors.Is(err, engine.ErrNotInitialized) {
		return nil
	}
	return err
}

func (a *App) setScene(req SceneRequest, snap weather.Snapshot) error {
	b := a.classifier.Classify(snap.Lat, snap.Lon)
	if req.Biome != "" {
		parsed, err := biome.Parse(req.Biome)
		if err != nil {
			return err
		}
		b = parsed
	}

	tod := resolver.TimeOfDayOf(snap.LocalTime)
	if req.TimeOfDay != "" {
		parsed, err := resolver.ParseTimeOfDay(req.TimeOfDay)
		if err != nil {
			return err
		}
		tod = parsed
	}

	return a.controller.SetSoundscape(b, tod, snap.Code, snap.WindKph, snap.Humidity)
}

// HandleAction applies a request from the terminal UI
func (a *App) HandleAction(act ui.Action) error {
	switch act.Kind {
	case ui.ActionStart:
		return a.Initialize()
	case ui.ActionVolume:
		return a.controller.SetMasterVolume(act.Volume)
	case ui.ActionMute:
		_, err := a.controller.ToggleMute()
		return err
	case ui.ActionScene:
		return a.ApplyScene(a.ctx, SceneRequest{
			Biome:     act.Biome,
			TimeOfDay: act.TimeOfDay,
			Weather:   act.Weather,
			Lat:       a.config.Scene.Lat,
			Lon:       a.config.Scene.Lon,
		})
	case ui.ActionStop:
		return a.controller.StopSoundscape(a.config.Transition.FadeOut)
	default:
		return fmt.Errorf("unknown action: %d", act.Kind)
	}
}

// Status reports the application state for the terminal UI
func (a *App) Status() ui.StatusMsg {
	state := a.controller.State()
	msg := ui.StatusMsg{
		Initialized:  state.Initialized,
		Muted:        state.Muted,
		MasterVolume: state.MasterVolume,
		Active:       a.controller.ActiveSounds(),
		FailedLoads:  state.FailedLoads,
		Clients:      a.server.ClientCount(),
		Crossfades:   a.engine.Crossfades(),
	}

	if scene, ok := a.controller.CurrentSoundscape(); ok {
		msg.Biome = string(scene.Biome)
		msg.TimeOfDay = string(scene.TimeOfDay)
		msg.WeatherCode = scene.Code
		msg.Layers = scene.Layers
	}
	return msg
}

// Stop shuts down the server, disposes the engine and abandons pending downloads
func (a *App) Stop() {
	a.cancel()
	a.server.Stop()
	a.serving.Wait()

	if err := a.controller.Dispose(); err != nil {
		log.Printf("Engine dispose error: %v", err)
	}
	a.cache.Close()
	log.Printf("Soundscape stopped")
}
