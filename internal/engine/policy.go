// ABOUTME: Fade window policy shared by loop crossfades
// ABOUTME: Derives a window from track duration within fixed bounds
package engine

import "time"

// FadePolicy sizes loop crossfade windows relative to track duration
type FadePolicy struct {
	Fraction float64
	Min      time.Duration
	Max      time.Duration
}

// DefaultFadePolicy returns 12.5% of the duration, clamped to [2s, 30s]
func DefaultFadePolicy() FadePolicy {
	return FadePolicy{
		Fraction: 0.125,
		Min:      2 * time.Second,
		Max:      30 * time.Second,
	}
}

// Window returns the crossfade window for a track of duration d.
// The window never exceeds half the track so consecutive fades cannot overlap.
func (p FadePolicy) Window(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}

	w := time.Duration(float64(d) * p.Fraction)
	if w < p.Min {
		w = p.Min
	}
	if p.Max > 0 && w > p.Max {
		w = p.Max
	}
	if w > d/2 {
		w = d / 2
	}
	return w
}
