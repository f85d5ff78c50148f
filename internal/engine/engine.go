// ABOUTME: Playback engine owning the output graph and the active track registry
// ABOUTME: Exposes play, stop, volume and mute primitives over decoded assets
package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/Sendspin/soundscape-go/internal/assets"
	"github.com/Sendspin/soundscape-go/internal/envelope"
	"github.com/Sendspin/soundscape-go/internal/sched"
	"github.com/Sendspin/soundscape-go/pkg/audio/output"
	"github.com/google/uuid"
)

// MinStartDelay is the shortest delay before new audio begins
const MinStartDelay = 50 * time.Millisecond

// Loader supplies decoded assets
type Loader interface {
	Get(id string) (*assets.Asset, bool)
	Load(ctx context.Context, id string) (*assets.Asset, error)
	Preload(ctx context.Context, ids []string) assets.PreloadResult
	Failed() []string
}

// Config holds engine configuration
type Config struct {
	SampleRate    int
	Channels      int
	MinStartDelay time.Duration
	FadePolicy    FadePolicy
	Backend       string // output backend name, for errors and logs

	// Output receives the mixed stream. Nil runs the engine without a device.
	Output output.Output
	// Scheduler runs loop and stop timers. Defaults to wall-clock timers.
	Scheduler sched.Scheduler
	// Clock overrides the mixer as the playback clock.
	Clock sched.Clock
}

// State is a snapshot of the engine status
type State struct {
	Initialized  bool
	Preloaded    bool
	Muted        bool
	MasterVolume float64
	ActiveTracks int
	FailedLoads  []string
}

// Engine plays layered sounds through a shared master stage
type Engine struct {
	config Config
	loader Loader
	sched  sched.Scheduler
	clock  sched.Clock
	mixer  *Mixer
	master *envelope.Param
	out    output.Output

	ctx    context.Context
	cancel context.CancelFunc
	loads  sync.WaitGroup

	mu            sync.Mutex
	initialized   bool
	disposed      bool
	preloaded     bool
	muted         bool
	masterVolume  float64
	preMuteVolume float64
	slots         map[string]*slot
	retiring      map[uuid.UUID]*Track
	crossfades    int
}

// New creates an engine. Nothing is audible until Initialize.
func New(config Config, loader Loader) *Engine {
	if config.SampleRate == 0 {
		config.SampleRate = 48000
	}
	if config.Channels == 0 {
		config.Channels = 2
	}
	if config.MinStartDelay <= 0 {
		config.MinStartDelay = MinStartDelay
	}
	if config.FadePolicy == (FadePolicy{}) {
		config.FadePolicy = DefaultFadePolicy()
	}
	if config.Backend == "" {
		config.Backend = "default"
	}

	ctx, cancel := context.WithCancel(context.Background())
	master := envelope.NewParam(1)

	e := &Engine{
		config:       config,
		loader:       loader,
		sched:        config.Scheduler,
		clock:        config.Clock,
		mixer:        NewMixer(config.SampleRate, config.Channels, master),
		master:       master,
		out:          config.Output,
		ctx:          ctx,
		cancel:       cancel,
		masterVolume: 1,
		slots:        make(map[string]*slot),
		retiring:     make(map[uuid.UUID]*Track),
	}
	if e.sched == nil {
		e.sched = sched.Realtime{}
	}
	if e.clock == nil {
		e.clock = e.mixer
	}
	return e
}

// Initialize brings up the output. It must follow a user gesture.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed {
		return ErrNotInitialized
	}
	if e.initialized {
		return nil
	}

	if e.out != nil {
		if err := e.out.Open(e.config.SampleRate, e.config.Channels); err != nil {
			return &InitError{Backend: e.config.Backend, Err: err}
		}
		if err := e.out.Start(e.mixer); err != nil {
			e.out.Close()
			return &InitError{Backend: e.config.Backend, Err: err}
		}
	}

	e.initialized = true
	go e.watchEnded()

	log.Printf("Audio engine initialized: %dHz, %d channels (%s output)",
		e.config.SampleRate, e.config.Channels, e.config.Backend)
	return nil
}

// Preload loads ids concurrently; failures are recorded, not returned
func (e *Engine) Preload(ctx context.Context, ids []string) assets.PreloadResult {
	result := e.loader.Preload(ctx, ids)

	e.mu.Lock()
	e.preloaded = true
	e.mu.Unlock()

	log.Printf("Preloaded %d sounds (%d failed)", len(result.Loaded), len(result.Failed))
	return result
}

// Play starts id. If the asset is not cached yet, playback is deferred
// until the load completes; a failed load drops the play.
func (e *Engine) Play(id string, opts PlayOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.readyLocked("play " + id) {
		return ErrNotInitialized
	}

	opts.Volume = envelope.Clamp(opts.Volume)

	if asset, ok := e.loader.Get(id); ok {
		e.startLocked(id, asset, opts)
		return nil
	}

	s := e.slotLocked(id)
	token := &pendingPlay{opts: opts}
	s.pending = token

	e.loads.Add(1)
	go e.completeLoad(id, token)
	return nil
}

// completeLoad commits a deferred play if it is still wanted
func (e *Engine) completeLoad(id string, token *pendingPlay) {
	defer e.loads.Done()

	asset, err := e.loader.Load(e.ctx, id)

	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.slots[id]
	if s == nil || s.pending != token || !e.initialized {
		// Stopped, replaced or disposed while loading
		return
	}
	s.pending = nil

	if err != nil {
		log.Printf("Dropping play of %s: %v", id, err)
		e.pruneLocked(id, s)
		return
	}

	e.startLocked(id, asset, token.opts)
}

// startLocked creates a track for a loaded asset
func (e *Engine) startLocked(id string, asset *assets.Asset, opts PlayOptions) {
	s := e.slotLocked(id)
	s.pending = nil

	if existing := s.track; existing != nil {
		if existing.state == StateFading {
			// Let the fade finish on its own
			e.retiring[existing.Instance] = existing
			s.track = nil
		} else {
			e.hardStopLocked(s, existing)
		}
	}
	if s.loop != nil {
		s.loop.Cancel()
		s.loop = nil
	}

	delay := opts.StartDelay
	if delay < e.config.MinStartDelay {
		delay = e.config.MinStartDelay
	}
	startAt := e.clock.Now() + delay

	var gain *envelope.Param
	if opts.FadeIn > 0 {
		gain = envelope.NewParam(0)
		envelope.Ramp(gain, startAt, 0, opts.Volume, opts.FadeIn)
	} else {
		gain = envelope.NewParam(opts.Volume)
	}

	category := opts.Category
	if category == "" {
		category = CategoryBase
	}

	t := &Track{
		ID:        id,
		Instance:  uuid.New(),
		Category:  category,
		Volume:    opts.Volume,
		Loop:      opts.Loop,
		StartedAt: startAt,
		Duration:  asset.Duration,
		state:     StateSettled,
		gain:      gain,
	}
	t.voice = &voice{
		id:         id,
		instance:   t.Instance,
		buf:        asset.Buffer,
		gain:       gain,
		startFrame: e.mixer.timeFrame(startAt),
		loop:       opts.Loop,
	}
	e.mixer.add(t.voice)
	s.track = t

	if opts.Loop {
		e.armLoopLocked(s, t, delay)
	}
}

// Stop ends id, fading it out over fade when positive
func (e *Engine) Stop(id string, fade time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.readyLocked("stop " + id) {
		return ErrNotInitialized
	}
	e.stopLocked(id, fade)
	return nil
}

func (e *Engine) stopLocked(id string, fade time.Duration) {
	s := e.slots[id]
	if s == nil {
		return
	}

	s.pending = nil
	if s.loop != nil {
		s.loop.Cancel()
		s.loop = nil
	}

	t := s.track
	if t == nil {
		e.pruneLocked(id, s)
		return
	}

	if fade <= 0 {
		e.hardStopLocked(s, t)
		e.pruneLocked(id, s)
		return
	}

	t.state = StateFading
	envelope.RampFromCurrent(t.gain, e.clock.Now(), 0, fade)

	if t.stopTask != nil {
		t.stopTask.Cancel()
	}
	instance := t.Instance
	t.stopTask = e.sched.AfterFunc(fade, func() {
		e.expire(id, instance)
	})
}

// StopAll stops every active identifier
func (e *Engine) StopAll(fade time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.readyLocked("stop all") {
		return ErrNotInitialized
	}

	// Includes slots that only hold a pending load
	ids := make([]string, 0, len(e.slots))
	for id := range e.slots {
		ids = append(ids, id)
	}
	for _, id := range ids {
		e.stopLocked(id, fade)
	}
	return nil
}

// SetVolume ramps one track towards volume over fade
func (e *Engine) SetVolume(id string, volume float64, fade time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.readyLocked("set volume of " + id) {
		return ErrNotInitialized
	}

	volume = envelope.Clamp(volume)
	s := e.slots[id]
	if s == nil {
		return nil
	}
	if s.pending != nil {
		s.pending.opts.Volume = volume
	}
	if s.track == nil {
		return nil
	}

	s.track.Volume = volume
	if s.track.state == StateFading {
		return nil
	}
	envelope.RampFromCurrent(s.track.gain, e.clock.Now(), volume, fade)
	return nil
}

// SetMasterVolume scales the shared output stage. While muted the new
// volume is stored and applied on unmute.
func (e *Engine) SetMasterVolume(volume float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.readyLocked("set master volume") {
		return ErrNotInitialized
	}

	volume = envelope.Clamp(volume)
	if e.muted {
		e.preMuteVolume = volume
		return nil
	}
	e.masterVolume = volume
	envelope.Ramp(e.master, e.clock.Now(), volume, volume, 0)
	return nil
}

// ToggleMute silences or restores the master stage and returns the new mute state
func (e *Engine) ToggleMute() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.readyLocked("toggle mute") {
		return e.muted, ErrNotInitialized
	}

	now := e.clock.Now()
	if e.muted {
		e.muted = false
		e.masterVolume = e.preMuteVolume
		envelope.Ramp(e.master, now, 0, e.masterVolume, 0)
	} else {
		e.muted = true
		e.preMuteVolume = e.masterVolume
		e.masterVolume = 0
		envelope.Ramp(e.master, now, e.preMuteVolume, 0, 0)
	}
	return e.muted, nil
}

// State reports the engine status
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	volume := e.masterVolume
	if e.muted {
		volume = e.preMuteVolume
	}

	return State{
		Initialized:  e.initialized,
		Preloaded:    e.preloaded,
		Muted:        e.muted,
		MasterVolume: volume,
		ActiveTracks: len(e.idsLocked()),
		FailedLoads:  e.loader.Failed(),
	}
}

// ActiveSounds returns the identifiers with a live track, sorted
func (e *Engine) ActiveSounds() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.idsLocked()
}

// Tracks returns a snapshot of every track in the active map
func (e *Engine) Tracks() []TrackInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	infos := make([]TrackInfo, 0, len(e.slots))
	for _, id := range e.idsLocked() {
		infos = append(infos, e.slots[id].track.info())
	}
	return infos
}

// Dispose cancels every timer and pending load and closes the output.
// The engine cannot be reused; construct a new one instead.
func (e *Engine) Dispose() error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return nil
	}
	e.disposed = true
	wasInitialized := e.initialized
	e.initialized = false

	for id, s := range e.slots {
		if s.loop != nil {
			s.loop.Cancel()
		}
		if s.track != nil && s.track.stopTask != nil {
			s.track.stopTask.Cancel()
		}
		delete(e.slots, id)
	}
	for instance, t := range e.retiring {
		if t.stopTask != nil {
			t.stopTask.Cancel()
		}
		delete(e.retiring, instance)
	}
	e.mixer.removeAll()
	e.cancel()
	e.mu.Unlock()

	e.loads.Wait()

	if wasInitialized && e.out != nil {
		if err := e.out.Close(); err != nil {
			return fmt.Errorf("failed to close output: %w", err)
		}
	}
	log.Printf("Audio engine disposed")
	return nil
}

// Crossfades returns how many loop crossfades have fired
func (e *Engine) Crossfades() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.crossfades
}

// Mixer exposes the renderer, mainly for headless rendering in tests
func (e *Engine) Mixer() *Mixer {
	return e.mixer
}

// expire hard-stops a specific instance once its fade has finished
func (e *Engine) expire(id string, instance uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t, ok := e.retiring[instance]; ok {
		delete(e.retiring, instance)
		e.mixer.remove(t.voice)
		return
	}

	s := e.slots[id]
	if s == nil || s.track == nil || s.track.Instance != instance {
		return
	}
	e.hardStopLocked(s, s.track)
	e.pruneLocked(id, s)
}

// watchEnded removes non-looping tracks the mixer finished
func (e *Engine) watchEnded() {
	for {
		select {
		case <-e.ctx.Done():
			return
		case v := <-e.mixer.Ended():
			e.expire(v.id, v.instance)
		}
	}
}

func (e *Engine) hardStopLocked(s *slot, t *Track) {
	if t.stopTask != nil {
		t.stopTask.Cancel()
		t.stopTask = nil
	}
	e.mixer.remove(t.voice)
	if s.track == t {
		s.track = nil
	}
}

func (e *Engine) slotLocked(id string) *slot {
	s, ok := e.slots[id]
	if !ok {
		s = &slot{}
		e.slots[id] = s
	}
	return s
}

func (e *Engine) pruneLocked(id string, s *slot) {
	if s.empty() {
		delete(e.slots, id)
	}
}

func (e *Engine) idsLocked() []string {
	ids := make([]string, 0, len(e.slots))
	for id, s := range e.slots {
		if s.track != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (e *Engine) readyLocked(op string) bool {
	if !e.initialized {
		log.Printf("Ignoring %s: %v", op, ErrNotInitialized)
		return false
	}
	return true
}

// waitLoads blocks until every deferred load has completed
func (e *Engine) waitLoads() {
	e.loads.Wait()
}
