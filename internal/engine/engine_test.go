// ABOUTME: Tests for the playback engine registry and its race guards
// ABOUTME: Drives time with a manual clock and a fake asset loader
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sendspin/soundscape-go/internal/assets"
	"github.com/Sendspin/soundscape-go/internal/sched"
	"github.com/Sendspin/soundscape-go/pkg/audio"
	"github.com/Sendspin/soundscape-go/pkg/audio/output"
)

// fakeLoader serves assets from memory. Sounds in available load on
// demand (optionally waiting on gate); anything else fails.
type fakeLoader struct {
	mu        sync.Mutex
	cached    map[string]*assets.Asset
	available map[string]*assets.Asset
	failed    []string
	gate      chan struct{}
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		cached:    make(map[string]*assets.Asset),
		available: make(map[string]*assets.Asset),
	}
}

func (l *fakeLoader) Get(id string) (*assets.Asset, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.cached[id]
	return a, ok
}

func (l *fakeLoader) Load(ctx context.Context, id string) (*assets.Asset, error) {
	if l.gate != nil {
		select {
		case <-l.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if a, ok := l.cached[id]; ok {
		return a, nil
	}
	if a, ok := l.available[id]; ok {
		l.cached[id] = a
		return a, nil
	}
	l.failed = append(l.failed, id)
	return nil, &assets.LoadError{ID: id, Err: fmt.Errorf("no such sound")}
}

func (l *fakeLoader) Preload(ctx context.Context, ids []string) assets.PreloadResult {
	var result assets.PreloadResult
	for _, id := range ids {
		if _, err := l.Load(ctx, id); err != nil {
			result.Failed = append(result.Failed, id)
		} else {
			result.Loaded = append(result.Loaded, id)
		}
	}
	return result
}

func (l *fakeLoader) Failed() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.failed...)
}

func testAsset(id string, d time.Duration) *assets.Asset {
	return &assets.Asset{
		ID:       id,
		Duration: d,
		Buffer: &audio.Buffer{
			Samples: make([]int32, 200),
			Format:  audio.Format{SampleRate: 48000, Channels: 2},
		},
	}
}

func newTestEngine(t *testing.T) (*Engine, *sched.Manual, *fakeLoader) {
	t.Helper()
	m := sched.NewManual()
	loader := newFakeLoader()
	e := New(Config{Scheduler: m, Clock: m}, loader)
	if err := e.Initialize(); err != nil {
		t.Fatalf("failed to initialize: %v", err)
	}
	t.Cleanup(func() { e.Dispose() })
	return e, m, loader
}

func trackOf(t *testing.T, e *Engine, id string) *Track {
	t.Helper()
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.slots[id]
	if s == nil || s.track == nil {
		t.Fatalf("expected live track for %s", id)
	}
	return s.track
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCommandsBeforeInitialize(t *testing.T) {
	loader := newFakeLoader()
	loader.cached["rain"] = testAsset("rain", 10*time.Second)
	e := New(Config{Scheduler: sched.NewManual(), Clock: sched.NewManual()}, loader)

	if err := e.Play("rain", PlayOptions{Volume: 1}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized from Play, got %v", err)
	}
	if err := e.Stop("rain", 0); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized from Stop, got %v", err)
	}
	if err := e.SetMasterVolume(0.5); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized from SetMasterVolume, got %v", err)
	}
	if len(e.ActiveSounds()) != 0 {
		t.Error("expected no active sounds")
	}
	if e.State().Initialized {
		t.Error("expected engine to report uninitialized")
	}
}

type failingOutput struct{}

func (failingOutput) Open(int, int) error { return fmt.Errorf("no audio device") }

func (failingOutput) Start(output.Renderer) error { return nil }

func (failingOutput) Close() error { return nil }

func TestInitializeFailure(t *testing.T) {
	e := New(Config{Output: failingOutput{}, Backend: "test"}, newFakeLoader())

	err := e.Initialize()
	var initErr *InitError
	if !errors.As(err, &initErr) {
		t.Fatalf("expected InitError, got %v", err)
	}
	if !strings.Contains(err.Error(), "no audio device") {
		t.Errorf("expected underlying cause in message, got %q", err.Error())
	}
	if e.State().Initialized {
		t.Error("expected engine to stay uninitialized")
	}
}

func TestPlayStartsAfterMinimalDelay(t *testing.T) {
	e, m, loader := newTestEngine(t)
	loader.cached["rain"] = testAsset("rain", 10*time.Second)

	m.Advance(time.Second)
	if err := e.Play("rain", PlayOptions{Volume: 0.5, Category: CategoryWeather}); err != nil {
		t.Fatalf("play failed: %v", err)
	}

	track := trackOf(t, e, "rain")
	if track.StartedAt != time.Second+MinStartDelay {
		t.Errorf("expected start at %v, got %v", time.Second+MinStartDelay, track.StartedAt)
	}
	if track.Category != CategoryWeather {
		t.Errorf("expected weather category, got %s", track.Category)
	}
	if !approx(track.gain.ValueAt(track.StartedAt), 0.5) {
		t.Errorf("expected immediate target volume, got %f", track.gain.ValueAt(track.StartedAt))
	}

	// An explicit delay longer than the minimum wins
	if err := e.Play("rain", PlayOptions{Volume: 0.5, StartDelay: 3 * time.Second}); err != nil {
		t.Fatalf("play failed: %v", err)
	}
	if got := trackOf(t, e, "rain").StartedAt; got != 4*time.Second {
		t.Errorf("expected start at 4s, got %v", got)
	}
}

func TestPlayWithFadeIn(t *testing.T) {
	e, _, loader := newTestEngine(t)
	loader.cached["birds"] = testAsset("birds", 10*time.Second)

	e.Play("birds", PlayOptions{Volume: 0.8, FadeIn: 2 * time.Second})
	track := trackOf(t, e, "birds")

	if v := track.gain.ValueAt(0); v > 0.001 {
		t.Errorf("expected silence before start, got %f", v)
	}
	if v := track.gain.ValueAt(track.StartedAt + 2*time.Second); !approx(v, 0.8) {
		t.Errorf("expected 0.8 after fade, got %f", v)
	}
}

func TestVolumesAreClamped(t *testing.T) {
	e, _, loader := newTestEngine(t)
	loader.cached["wind"] = testAsset("wind", 10*time.Second)

	e.Play("wind", PlayOptions{Volume: 1.7})
	if v := trackOf(t, e, "wind").Volume; v != 1 {
		t.Errorf("expected play volume clamped to 1, got %f", v)
	}

	e.SetVolume("wind", -0.3, 0)
	if v := trackOf(t, e, "wind").Volume; v != 0 {
		t.Errorf("expected track volume clamped to 0, got %f", v)
	}

	e.SetVolume("wind", math.NaN(), 0)
	if v := trackOf(t, e, "wind").Volume; v != 0 {
		t.Errorf("expected NaN track volume clamped to 0, got %f", v)
	}

	loader.cached["rain"] = testAsset("rain", 10*time.Second)
	e.Play("rain", PlayOptions{Volume: math.NaN()})
	if v := trackOf(t, e, "rain").Volume; v != 0 {
		t.Errorf("expected NaN play volume clamped to 0, got %f", v)
	}

	tests := []struct {
		in, out float64
	}{
		{2, 1},
		{-1, 0},
		{0.4, 0.4},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		e.SetMasterVolume(tt.in)
		if got := e.State().MasterVolume; got != tt.out {
			t.Errorf("SetMasterVolume(%f): expected %f, got %f", tt.in, tt.out, got)
		}
	}
}

func TestSetVolumeRamps(t *testing.T) {
	e, m, loader := newTestEngine(t)
	loader.cached["rain"] = testAsset("rain", 10*time.Second)

	e.Play("rain", PlayOptions{Volume: 0.2})
	m.Advance(time.Second)
	e.SetVolume("rain", 0.8, 4*time.Second)

	track := trackOf(t, e, "rain")
	if !approx(track.gain.ValueAt(time.Second), 0.2) {
		t.Errorf("expected ramp to start at 0.2, got %f", track.gain.ValueAt(time.Second))
	}
	if !approx(track.gain.ValueAt(5*time.Second), 0.8) {
		t.Errorf("expected ramp to end at 0.8, got %f", track.gain.ValueAt(5*time.Second))
	}
	if track.Volume != 0.8 {
		t.Errorf("expected stored volume 0.8, got %f", track.Volume)
	}

	// Unknown ids are a no-op
	if err := e.SetVolume("nothing", 0.5, 0); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestStopCancelsLoopTimer(t *testing.T) {
	e, m, loader := newTestEngine(t)
	loader.cached["forest-day"] = testAsset("forest-day", 20*time.Second)

	e.Play("forest-day", PlayOptions{Volume: 0.6, Loop: true})
	if m.Pending() != 1 {
		t.Fatalf("expected one armed loop timer, got %d", m.Pending())
	}

	if err := e.Stop("forest-day", 0); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if m.Pending() != 0 {
		t.Errorf("expected loop timer cancelled, %d pending", m.Pending())
	}
	if len(e.ActiveSounds()) != 0 {
		t.Errorf("expected no active sounds, got %v", e.ActiveSounds())
	}

	// No stray crossfade later
	m.Advance(time.Minute)
	if len(e.ActiveSounds()) != 0 {
		t.Errorf("expected sound to stay stopped, got %v", e.ActiveSounds())
	}
	if e.mixer.Len() != 0 {
		t.Errorf("expected no voices, got %d", e.mixer.Len())
	}
}

func TestStopWithFade(t *testing.T) {
	e, m, loader := newTestEngine(t)
	loader.cached["thunder"] = testAsset("thunder", 30*time.Second)

	e.Play("thunder", PlayOptions{Volume: 0.6, Loop: true})
	m.Advance(time.Second)
	e.Stop("thunder", 3*time.Second)

	track := trackOf(t, e, "thunder")
	if track.state != StateFading {
		t.Errorf("expected fading state, got %s", track.state)
	}

	m.Advance(3 * time.Second)

	if len(e.ActiveSounds()) != 0 {
		t.Errorf("expected thunder removed after fade, got %v", e.ActiveSounds())
	}
	if m.Pending() != 0 {
		t.Errorf("expected no pending tasks, got %d", m.Pending())
	}
}

func TestStopUnknownIsNoop(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if err := e.Stop("ghost", time.Second); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestReplaceSettledTrack(t *testing.T) {
	e, _, loader := newTestEngine(t)
	loader.cached["rain"] = testAsset("rain", 10*time.Second)

	e.Play("rain", PlayOptions{Volume: 0.5})
	first := trackOf(t, e, "rain").Instance
	e.Play("rain", PlayOptions{Volume: 0.7})
	second := trackOf(t, e, "rain")

	if second.Instance == first {
		t.Error("expected a new instance")
	}
	if e.mixer.Len() != 1 {
		t.Errorf("expected the old voice to be stopped, got %d voices", e.mixer.Len())
	}
}

func TestPlayDoesNotPreemptFadingTrack(t *testing.T) {
	e, m, loader := newTestEngine(t)
	loader.cached["rain"] = testAsset("rain", 10*time.Second)

	e.Play("rain", PlayOptions{Volume: 0.5})
	old := trackOf(t, e, "rain")
	e.Stop("rain", 4*time.Second)

	e.Play("rain", PlayOptions{Volume: 0.5, FadeIn: 4 * time.Second})
	fresh := trackOf(t, e, "rain")

	if fresh.Instance == old.Instance {
		t.Fatal("expected a fresh instance")
	}
	if e.mixer.Len() != 2 {
		t.Errorf("expected fading and fresh voices to coexist, got %d", e.mixer.Len())
	}

	// The old fade's hard stop must not remove the fresh instance
	m.Advance(4 * time.Second)

	if e.mixer.Len() != 1 {
		t.Errorf("expected only the fresh voice, got %d", e.mixer.Len())
	}
	if trackOf(t, e, "rain").Instance != fresh.Instance {
		t.Error("expected fresh instance to survive the old fade's hard stop")
	}
}

func TestDeferredPlayCommitsAfterLoad(t *testing.T) {
	e, _, loader := newTestEngine(t)
	loader.available["ocean-waves"] = testAsset("ocean-waves", 40*time.Second)
	loader.gate = make(chan struct{})

	e.Play("ocean-waves", PlayOptions{Volume: 0.9, Loop: true})
	if len(e.ActiveSounds()) != 0 {
		t.Error("expected play to wait for the load")
	}

	close(loader.gate)
	e.waitLoads()

	active := e.ActiveSounds()
	if len(active) != 1 || active[0] != "ocean-waves" {
		t.Errorf("expected ocean-waves active, got %v", active)
	}
	if v := trackOf(t, e, "ocean-waves").Volume; v != 0.9 {
		t.Errorf("expected deferred volume 0.9, got %f", v)
	}
}

func TestStopRacesPendingLoad(t *testing.T) {
	e, m, loader := newTestEngine(t)
	loader.available["frogs"] = testAsset("frogs", 15*time.Second)
	loader.gate = make(chan struct{})

	e.Play("frogs", PlayOptions{Volume: 0.4, Loop: true})
	e.Stop("frogs", 0)

	close(loader.gate)
	e.waitLoads()

	if len(e.ActiveSounds()) != 0 {
		t.Errorf("expected deferred play to drop itself, got %v", e.ActiveSounds())
	}
	if m.Pending() != 0 {
		t.Errorf("expected no loop timer, got %d pending", m.Pending())
	}
	if _, ok := loader.Get("frogs"); !ok {
		t.Error("expected the asset to stay cached for later plays")
	}
}

func TestNewerPlaySupersedesPendingPlay(t *testing.T) {
	e, _, loader := newTestEngine(t)
	loader.available["owls"] = testAsset("owls", 15*time.Second)
	loader.gate = make(chan struct{})

	e.Play("owls", PlayOptions{Volume: 0.2})
	e.Play("owls", PlayOptions{Volume: 0.7})

	close(loader.gate)
	e.waitLoads()

	if v := trackOf(t, e, "owls").Volume; v != 0.7 {
		t.Errorf("expected the newer play to win, got volume %f", v)
	}
	if e.mixer.Len() != 1 {
		t.Errorf("expected a single voice, got %d", e.mixer.Len())
	}
}

func TestFailedLoadDropsPlay(t *testing.T) {
	e, _, _ := newTestEngine(t)

	e.Play("missing", PlayOptions{Volume: 1})
	e.waitLoads()

	if len(e.ActiveSounds()) != 0 {
		t.Errorf("expected nothing active, got %v", e.ActiveSounds())
	}
	state := e.State()
	if len(state.FailedLoads) != 1 || state.FailedLoads[0] != "missing" {
		t.Errorf("expected failed loads [missing], got %v", state.FailedLoads)
	}
}

func TestStopAll(t *testing.T) {
	e, m, loader := newTestEngine(t)
	for _, id := range []string{"a", "b", "c"} {
		loader.cached[id] = testAsset(id, 20*time.Second)
		e.Play(id, PlayOptions{Volume: 0.5, Loop: true})
	}
	loader.available["d"] = testAsset("d", 20*time.Second)
	loader.gate = make(chan struct{})
	e.Play("d", PlayOptions{Volume: 0.5})

	e.StopAll(2 * time.Second)
	close(loader.gate)
	e.waitLoads()
	m.Advance(2 * time.Second)

	if len(e.ActiveSounds()) != 0 {
		t.Errorf("expected all stopped, got %v", e.ActiveSounds())
	}
	if m.Pending() != 0 {
		t.Errorf("expected no pending timers, got %d", m.Pending())
	}
}

func TestMuteRestoresVolume(t *testing.T) {
	e, _, _ := newTestEngine(t)

	e.SetMasterVolume(0.6)
	muted, err := e.ToggleMute()
	if err != nil || !muted {
		t.Fatalf("expected muted, got %v %v", muted, err)
	}
	if v := e.master.ValueAt(0); v != 0 {
		t.Errorf("expected master gain 0 while muted, got %f", v)
	}

	// Changing volume while muted is remembered but stays silent
	e.SetMasterVolume(0.3)
	state := e.State()
	if !state.Muted || state.MasterVolume != 0.3 {
		t.Errorf("expected muted with stored volume 0.3, got %+v", state)
	}
	if v := e.master.ValueAt(0); v != 0 {
		t.Errorf("expected master gain to stay 0, got %f", v)
	}

	muted, _ = e.ToggleMute()
	if muted {
		t.Error("expected unmuted")
	}
	if v := e.master.ValueAt(0); !approx(v, 0.3) {
		t.Errorf("expected master gain restored to 0.3, got %f", v)
	}
}

func TestPreloadMarksState(t *testing.T) {
	e, _, loader := newTestEngine(t)
	loader.available["a"] = testAsset("a", time.Second)

	result := e.Preload(context.Background(), []string{"a", "b"})
	if len(result.Loaded) != 1 || len(result.Failed) != 1 {
		t.Errorf("unexpected preload result %+v", result)
	}

	state := e.State()
	if !state.Preloaded {
		t.Error("expected preloaded flag")
	}
	if len(state.FailedLoads) != 1 || state.FailedLoads[0] != "b" {
		t.Errorf("expected failed loads [b], got %v", state.FailedLoads)
	}
}

func TestDisposeCancelsEverything(t *testing.T) {
	m := sched.NewManual()
	loader := newFakeLoader()
	loader.cached["a"] = testAsset("a", 20*time.Second)
	loader.cached["b"] = testAsset("b", 20*time.Second)
	e := New(Config{Scheduler: m, Clock: m}, loader)
	e.Initialize()

	e.Play("a", PlayOptions{Volume: 1, Loop: true})
	e.Play("b", PlayOptions{Volume: 1, Loop: true})
	e.Stop("b", 5*time.Second)

	if err := e.Dispose(); err != nil {
		t.Fatalf("dispose failed: %v", err)
	}

	if m.Pending() != 0 {
		t.Errorf("expected all timers cancelled, got %d", m.Pending())
	}
	if e.mixer.Len() != 0 {
		t.Errorf("expected output graph torn down, got %d voices", e.mixer.Len())
	}
	if err := e.Play("a", PlayOptions{Volume: 1}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized after dispose, got %v", err)
	}
	if err := e.Initialize(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected disposed engine to refuse Initialize, got %v", err)
	}
}

func TestDisposeDoesNotWaitForStalledLoad(t *testing.T) {
	stalled := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-stalled:
		}
	}))
	defer server.Close()
	defer close(stalled)

	fetcher, err := assets.NewFetcher(server.URL, t.TempDir())
	if err != nil {
		t.Fatalf("failed to create fetcher: %v", err)
	}
	cache := assets.NewCache(assets.Config{
		Catalog: assets.NewCatalog(map[string]string{"rain": "sounds/rain.mp3"}),
		Fetcher: fetcher,
	})
	defer cache.Close()

	m := sched.NewManual()
	e := New(Config{Scheduler: m, Clock: m}, cache)
	if err := e.Initialize(); err != nil {
		t.Fatalf("failed to initialize: %v", err)
	}
	e.Play("rain", PlayOptions{Volume: 1, Loop: true})

	done := make(chan error, 1)
	go func() { done <- e.Dispose() }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("dispose failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("dispose blocked on a stalled asset download")
	}

	if len(cache.Failed()) != 0 {
		t.Errorf("expected an abandoned load not to count as failed, got %v", cache.Failed())
	}
}

func TestNonLoopingTrackEndsNaturally(t *testing.T) {
	loader := newFakeLoader()
	// 10ms of audio at 48kHz
	loader.cached["chirp"] = &assets.Asset{
		ID:       "chirp",
		Duration: 10 * time.Millisecond,
		Buffer: &audio.Buffer{
			Samples: make([]int32, 480*2),
			Format:  audio.Format{SampleRate: 48000, Channels: 2},
		},
	}
	e := New(Config{Scheduler: sched.NewManual()}, loader)
	if err := e.Initialize(); err != nil {
		t.Fatalf("failed to initialize: %v", err)
	}
	defer e.Dispose()

	e.Play("chirp", PlayOptions{Volume: 1})

	// 50ms start delay plus 10ms of audio fits in three 25ms blocks
	block := make([]float32, 1200*2)
	for i := 0; i < 3; i++ {
		e.Mixer().Render(block)
	}

	deadline := time.Now().Add(time.Second)
	for len(e.ActiveSounds()) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if len(e.ActiveSounds()) != 0 {
		t.Errorf("expected chirp to end naturally, got %v", e.ActiveSounds())
	}
}
