// ABOUTME: Timer and clock abstractions shared by the engine and controller
// ABOUTME: Realtime wraps time.AfterFunc; Manual is a deterministic fake for tests
package sched

import (
	"time"
)

// Task is a pending callback that can be cancelled
type Task interface {
	// Cancel prevents the callback from running. It reports whether the
	// call stopped the task before it fired.
	Cancel() bool
}

// Scheduler runs callbacks after a delay
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Task
}

// Clock reports the current position of a monotonic timeline
type Clock interface {
	Now() time.Duration
}

// Realtime schedules callbacks on wall-clock timers
type Realtime struct{}

// AfterFunc runs fn in its own goroutine after d
func (Realtime) AfterFunc(d time.Duration, fn func()) Task {
	return realtimeTask{timer: time.AfterFunc(d, fn)}
}

type realtimeTask struct {
	timer *time.Timer
}

func (t realtimeTask) Cancel() bool {
	return t.timer.Stop()
}

// WallClock measures elapsed wall time since it was created
type WallClock struct {
	start time.Time
}

// NewWallClock starts a wall clock at zero
func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

// Now returns the time elapsed since the clock started
func (c *WallClock) Now() time.Duration {
	return time.Since(c.start)
}
