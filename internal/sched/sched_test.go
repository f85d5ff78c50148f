// ABOUTME: Tests for the realtime and manual schedulers
// ABOUTME: Verifies ordering, cancellation and nested scheduling
package sched

import (
	"testing"
	"time"
)

func TestManualFiresInOrder(t *testing.T) {
	m := NewManual()

	var order []int
	m.AfterFunc(30*time.Millisecond, func() { order = append(order, 3) })
	m.AfterFunc(10*time.Millisecond, func() { order = append(order, 1) })
	m.AfterFunc(20*time.Millisecond, func() { order = append(order, 2) })
	m.AfterFunc(20*time.Millisecond, func() { order = append(order, 22) })

	m.Advance(25 * time.Millisecond)

	expected := []int{1, 2, 22}
	if len(order) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, order)
	}
	for i := range expected {
		if order[i] != expected[i] {
			t.Errorf("position %d: expected %d, got %d", i, expected[i], order[i])
		}
	}

	if m.Now() != 25*time.Millisecond {
		t.Errorf("expected now=25ms, got %v", m.Now())
	}
	if m.Pending() != 1 {
		t.Errorf("expected 1 pending task, got %d", m.Pending())
	}
}

func TestManualNowDuringCallback(t *testing.T) {
	m := NewManual()

	var seen time.Duration
	m.AfterFunc(7*time.Second, func() { seen = m.Now() })
	m.Advance(10 * time.Second)

	if seen != 7*time.Second {
		t.Errorf("expected callback to observe 7s, got %v", seen)
	}
}

func TestManualCancel(t *testing.T) {
	m := NewManual()

	fired := false
	task := m.AfterFunc(time.Second, func() { fired = true })

	if !task.Cancel() {
		t.Error("expected first Cancel to succeed")
	}
	if task.Cancel() {
		t.Error("expected second Cancel to report false")
	}

	m.Advance(2 * time.Second)
	if fired {
		t.Error("cancelled task fired")
	}
}

func TestManualCancelAfterFire(t *testing.T) {
	m := NewManual()

	task := m.AfterFunc(time.Second, func() {})
	m.Advance(time.Second)

	if task.Cancel() {
		t.Error("expected Cancel after firing to report false")
	}
}

func TestManualNestedScheduling(t *testing.T) {
	m := NewManual()

	count := 0
	var tick func()
	tick = func() {
		count++
		m.AfterFunc(time.Second, tick)
	}
	m.AfterFunc(time.Second, tick)

	m.Advance(5 * time.Second)

	if count != 5 {
		t.Errorf("expected 5 ticks, got %d", count)
	}
}

func TestRealtimeAfterFunc(t *testing.T) {
	done := make(chan struct{})

	Realtime{}.AfterFunc(5*time.Millisecond, func() {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}

	cancelled := Realtime{}.AfterFunc(time.Hour, func() {})
	if !cancelled.Cancel() {
		t.Error("expected Cancel to stop pending timer")
	}
}

func TestWallClockAdvances(t *testing.T) {
	c := NewWallClock()
	first := c.Now()
	time.Sleep(2 * time.Millisecond)
	if c.Now() <= first {
		t.Error("expected wall clock to advance")
	}
}
