// ABOUTME: Perceptual volume ramps for fades and crossfades
// ABOUTME: Schedules exponential curves with a linear tail into silence
package envelope

import (
	"math"
	"time"
)

// Floor is the smallest gain an exponential segment ramps to or from
const Floor = 0.001

// tailSplit is the share of a fade-to-silence spent on the exponential part
const tailSplit = 0.9

// Ramp cancels any automation on p after now and schedules a ramp from
// `from` to `to` lasting d. Non-positive durations set the value directly.
func Ramp(p *Param, now time.Duration, from, to float64, d time.Duration) {
	p.CancelAndHoldAtTime(now)

	if d <= 0 {
		p.SetValueAtTime(to, now)
		return
	}

	end := now + d

	switch {
	case to < Floor && from < Floor:
		p.SetValueAtTime(from, now)
		p.LinearRampToValueAtTime(to, end)

	case from < Floor:
		// Fade up from near-silence
		p.SetValueAtTime(Floor, now)
		p.ExponentialRampToValueAtTime(to, end)

	case to < Floor:
		// Fade down into silence; the exponential never reaches zero
		knee := now + time.Duration(float64(d)*tailSplit)
		p.SetValueAtTime(from, now)
		p.ExponentialRampToValueAtTime(Floor, knee)
		p.LinearRampToValueAtTime(to, end)

	default:
		p.SetValueAtTime(from, now)
		p.ExponentialRampToValueAtTime(to, end)
	}
}

// RampFromCurrent ramps p from whatever value it holds at now
func RampFromCurrent(p *Param, now time.Duration, to float64, d time.Duration) {
	Ramp(p, now, p.ValueAt(now), to, d)
}

// Clamp limits v to [0, 1]. NaN becomes 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
