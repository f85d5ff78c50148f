// ABOUTME: Automatable gain parameter evaluated against the playback clock
// ABOUTME: Holds a timeline of set, linear and exponential ramp events
package envelope

import (
	"math"
	"sort"
	"sync"
	"time"
)

type eventKind int

const (
	eventSet eventKind = iota
	eventLinear
	eventExponential
)

type event struct {
	kind  eventKind
	at    time.Duration
	value float64
}

// Param is a value that changes over time according to scheduled events.
// A ramp event interpolates from the previous event's value and time to its
// own value and time. Param is safe for concurrent use; the audio thread
// reads it while control code schedules into it.
type Param struct {
	mu      sync.Mutex
	initial float64
	events  []event
}

// NewParam creates a parameter holding v
func NewParam(v float64) *Param {
	return &Param{initial: v}
}

// SetValueAtTime jumps to v at t
func (p *Param) SetValueAtTime(v float64, t time.Duration) {
	p.insert(event{kind: eventSet, at: t, value: v})
}

// LinearRampToValueAtTime ramps linearly from the previous event to v at t
func (p *Param) LinearRampToValueAtTime(v float64, t time.Duration) {
	p.insert(event{kind: eventLinear, at: t, value: v})
}

// ExponentialRampToValueAtTime ramps exponentially from the previous event to v at t.
// Both endpoints must be positive; otherwise the previous value holds until t.
func (p *Param) ExponentialRampToValueAtTime(v float64, t time.Duration) {
	p.insert(event{kind: eventExponential, at: t, value: v})
}

// CancelScheduledValues removes every event at or after t
func (p *Param) CancelScheduledValues(t time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].at >= t })
	p.events = p.events[:i]
}

// CancelAndHoldAtTime freezes the parameter at its value at t, dropping all
// events. Values before t are no longer reproducible afterwards.
func (p *Param) CancelAndHoldAtTime(t time.Duration) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := p.valueAt(t)
	p.initial = v
	p.events = p.events[:0]
	return v
}

// ValueAt evaluates the parameter at t
func (p *Param) ValueAt(t time.Duration) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.valueAt(t)
}

// Fill writes values sampled every step starting at start into out
func (p *Param) Fill(out []float32, start, step time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.events) == 0 || p.events[len(p.events)-1].at <= start {
		v := float32(p.valueAt(start))
		for i := range out {
			out[i] = v
		}
		return
	}

	t := start
	for i := range out {
		out[i] = float32(p.valueAt(t))
		t += step
	}
}

// Settled reports whether no events remain after t
func (p *Param) Settled(t time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events) == 0 || p.events[len(p.events)-1].at <= t
}

func (p *Param) insert(e event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Later events at the same time sort after existing ones
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].at > e.at })
	p.events = append(p.events, event{})
	copy(p.events[i+1:], p.events[i:])
	p.events[i] = e
}

func (p *Param) valueAt(t time.Duration) float64 {
	prevValue := p.initial
	var prevAt time.Duration

	for _, e := range p.events {
		if e.at <= t {
			prevValue = e.value
			prevAt = e.at
			continue
		}

		// t lies between prev and e
		switch e.kind {
		case eventLinear:
			frac := float64(t-prevAt) / float64(e.at-prevAt)
			return prevValue + (e.value-prevValue)*frac
		case eventExponential:
			if prevValue <= 0 || e.value <= 0 {
				return prevValue
			}
			frac := float64(t-prevAt) / float64(e.at-prevAt)
			return prevValue * math.Pow(e.value/prevValue, frac)
		default:
			return prevValue
		}
	}

	return prevValue
}
