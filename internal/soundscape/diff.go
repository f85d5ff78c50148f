// ABOUTME: Set difference between the current and desired layer sets
// ABOUTME: Keyed by sound identifier, preserving input order
package soundscape

import (
	"math"

	"github.com/Sendspin/soundscape-go/internal/resolver"
)

// VolumeThreshold is the smallest volume change worth a ramp
const VolumeThreshold = 0.05

// Diff is the reconciliation between two layer sets
type Diff struct {
	Remove []resolver.Layer // current layers not desired
	Add    []resolver.Layer // desired layers not current
	Keep   []resolver.Layer // desired layers already current, with the desired volume
}

// Compute diffs desired against current
func Compute(desired, current []resolver.Layer) Diff {
	cur := make(map[string]resolver.Layer, len(current))
	for _, l := range current {
		cur[l.ID] = l
	}
	want := make(map[string]bool, len(desired))
	for _, l := range desired {
		want[l.ID] = true
	}

	var d Diff
	for _, l := range current {
		if !want[l.ID] {
			d.Remove = append(d.Remove, l)
		}
	}
	for _, l := range desired {
		if _, ok := cur[l.ID]; ok {
			d.Keep = append(d.Keep, l)
		} else {
			d.Add = append(d.Add, l)
		}
	}
	return d
}

// VolumeChanged reports whether the move from a to b exceeds VolumeThreshold
func VolumeChanged(a, b float64) bool {
	return math.Abs(a-b) > VolumeThreshold
}

// Empty reports whether the diff issues no stop or play
func (d Diff) Empty() bool {
	return len(d.Remove) == 0 && len(d.Add) == 0
}
