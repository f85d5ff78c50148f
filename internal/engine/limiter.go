// ABOUTME: Peak limiter applied after the master gain
// ABOUTME: Instant attack, exponential release, hard clip as a last resort
package engine

import "math"

// Limiter keeps interleaved float32 audio under a peak threshold
type Limiter struct {
	threshold float32
	release   float32
	gain      float32
	channels  int
}

// NewLimiter creates a limiter for the given format.
// thresholdDB is the ceiling in dBFS; releaseSec the recovery time constant.
func NewLimiter(sampleRate, channels int, thresholdDB, releaseSec float64) *Limiter {
	return &Limiter{
		threshold: float32(math.Pow(10, thresholdDB/20)),
		release:   float32(1 - math.Exp(-1/(releaseSec*float64(sampleRate)))),
		gain:      1,
		channels:  channels,
	}
}

// Process limits buf in place
func (l *Limiter) Process(buf []float32) {
	frames := len(buf) / l.channels
	for f := 0; f < frames; f++ {
		frame := buf[f*l.channels : (f+1)*l.channels]

		var peak float32
		for _, s := range frame {
			if s < 0 {
				s = -s
			}
			if s > peak {
				peak = s
			}
		}

		target := float32(1)
		if peak > l.threshold {
			target = l.threshold / peak
		}
		if target < l.gain {
			l.gain = target
		} else {
			l.gain += (target - l.gain) * l.release
		}

		for i := range frame {
			v := frame[i] * l.gain
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			frame[i] = v
		}
	}
}

// Gain returns the current gain reduction factor
func (l *Limiter) Gain() float32 {
	return l.gain
}
