// ABOUTME: Live playback instances and the identifier-indexed registry slots
// ABOUTME: Tracks carry explicit pending, settled and fading state tags
package engine

import (
	"time"

	"github.com/Sendspin/soundscape-go/internal/envelope"
	"github.com/Sendspin/soundscape-go/internal/sched"
	"github.com/google/uuid"
)

// Category labels a track for bookkeeping only
type Category string

const (
	CategoryBase    Category = "base"
	CategoryWeather Category = "weather"
	CategoryAccent  Category = "accent"
)

// TrackState is the lifecycle tag of a track
type TrackState int

const (
	StatePending TrackState = iota // waiting on an asset load
	StateSettled                   // playing at or towards its target volume
	StateFading                    // fading out, will be discarded
)

func (s TrackState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSettled:
		return "settled"
	case StateFading:
		return "fading"
	default:
		return "unknown"
	}
}

// PlayOptions configures a play command
type PlayOptions struct {
	Volume     float64
	Loop       bool
	FadeIn     time.Duration
	StartDelay time.Duration
	Category   Category
}

// Track is one live playback instance. It is owned by the engine and only
// touched under the engine lock.
type Track struct {
	ID        string
	Instance  uuid.UUID
	Category  Category
	Volume    float64
	Loop      bool
	StartedAt time.Duration // playback clock time the audio begins
	Duration  time.Duration

	state    TrackState
	gain     *envelope.Param
	voice    *voice
	stopTask sched.Task
}

// TrackInfo is a read-only snapshot of a track
type TrackInfo struct {
	ID       string
	Category Category
	Volume   float64
	Loop     bool
	State    TrackState
}

func (t *Track) info() TrackInfo {
	return TrackInfo{
		ID:       t.ID,
		Category: t.Category,
		Volume:   t.Volume,
		Loop:     t.Loop,
		State:    t.state,
	}
}

// pendingPlay is the token for a play waiting on its asset. A stop or a
// newer play replaces the token, and the load completion checks it.
type pendingPlay struct {
	opts PlayOptions
}

// slot holds everything the engine knows about one sound identifier
type slot struct {
	track   *Track
	pending *pendingPlay
	loop    sched.Task
}

func (s *slot) empty() bool {
	return s.track == nil && s.pending == nil && s.loop == nil
}
