// ABOUTME: Self-rearming crossfade scheduler for looping tracks
// ABOUTME: Fades out the ending instance while a fresh instance fades in
package engine

import (
	"log"
	"time"

	"github.com/Sendspin/soundscape-go/internal/envelope"
	"github.com/google/uuid"
)

// stopGrace keeps a faded voice alive briefly after its ramp reaches zero
const stopGrace = 100 * time.Millisecond

// armLoopLocked schedules the crossfade for t, which starts after delay
func (e *Engine) armLoopLocked(s *slot, t *Track, delay time.Duration) {
	window := e.config.FadePolicy.Window(t.Duration)
	if window <= 0 {
		return
	}

	if s.loop != nil {
		s.loop.Cancel()
	}

	id, instance := t.ID, t.Instance
	fireIn := delay + t.Duration - window
	s.loop = e.sched.AfterFunc(fireIn, func() {
		e.onLoopFire(id, instance)
	})
}

// onLoopFire retires the current instance and starts its replacement
func (e *Engine) onLoopFire(id string, instance uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return
	}
	s := e.slots[id]
	if s == nil || s.track == nil || s.track.Instance != instance {
		// Stopped or replaced since the timer was armed
		return
	}
	s.loop = nil

	old := s.track
	window := e.config.FadePolicy.Window(old.Duration)
	now := e.clock.Now()

	old.state = StateFading
	envelope.RampFromCurrent(old.gain, now, 0, window)
	e.retireLocked(s, old, window+stopGrace)

	asset, ok := e.loader.Get(id)
	if !ok {
		log.Printf("Loop asset %s vanished from cache, letting it end", id)
		return
	}

	e.startLocked(id, asset, PlayOptions{
		Volume:   old.Volume,
		Loop:     true,
		FadeIn:   window,
		Category: old.Category,
	})
	e.crossfades++
}

// retireLocked moves t out of the active map and schedules its hard stop
func (e *Engine) retireLocked(s *slot, t *Track, after time.Duration) {
	if s.track == t {
		s.track = nil
	}
	e.retiring[t.Instance] = t

	if t.stopTask != nil {
		t.stopTask.Cancel()
	}
	instance := t.Instance
	t.stopTask = e.sched.AfterFunc(after, func() {
		e.expire(t.ID, instance)
	})
}
