// ABOUTME: Audio type definitions
// ABOUTME: Defines the PCM format and decoded in-memory buffers shared by all sounds
package audio

import (
	"fmt"
	"time"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes a PCM layout
type Format struct {
	Codec      string // source codec, informational ("mp3", "wav", ...)
	SampleRate int
	Channels   int
	BitDepth   int // bit depth of the source material
}

// Buffer is a fully decoded sound held in memory.
// Samples are interleaved and left-justified in the 24-bit range.
// A Buffer is never mutated once handed out by a decoder.
type Buffer struct {
	Samples []int32
	Format  Format
}

// Frames returns the number of sample frames in the buffer
func (b *Buffer) Frames() int {
	if b == nil || b.Format.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Format.Channels
}

// Duration returns the playback length of the buffer
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.Format.SampleRate == 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.Format.SampleRate)
}

// Validate reports whether the buffer can be played
func (b *Buffer) Validate() error {
	if b == nil {
		return fmt.Errorf("nil buffer")
	}
	if b.Format.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", b.Format.SampleRate)
	}
	if b.Format.Channels <= 0 {
		return fmt.Errorf("invalid channel count: %d", b.Format.Channels)
	}
	if len(b.Samples) == 0 {
		return fmt.Errorf("empty buffer")
	}
	return nil
}

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	return int32(sample) << 8
}

// SampleToFloat32 converts a 24-bit sample to the [-1, 1] range
func SampleToFloat32(sample int32) float32 {
	return float32(sample) / float32(Max24Bit+1)
}

// SampleFromFloat32 converts a [-1, 1] sample into the 24-bit range, clipping
func SampleFromFloat32(sample float32) int32 {
	v := int64(float64(sample) * float64(Max24Bit+1))
	if v > Max24Bit {
		v = Max24Bit
	} else if v < Min24Bit {
		v = Min24Bit
	}
	return int32(v)
}

// SampleFromDepth scales a signed sample of the given bit depth into the 24-bit range
func SampleFromDepth(sample int32, bitDepth int) int32 {
	switch {
	case bitDepth == 24 || bitDepth == 0:
		return sample
	case bitDepth < 24:
		return sample << (24 - bitDepth)
	default:
		return sample >> (bitDepth - 24)
	}
}

// Remix converts interleaved samples between channel counts.
// Mono is duplicated to every output channel; anything else is averaged
// down to mono first when the counts differ.
func Remix(samples []int32, from, to int) []int32 {
	if from == to || from <= 0 || to <= 0 {
		return samples
	}

	frames := len(samples) / from
	out := make([]int32, frames*to)

	for f := 0; f < frames; f++ {
		var mixed int64
		if from == 1 {
			mixed = int64(samples[f])
		} else {
			for ch := 0; ch < from; ch++ {
				mixed += int64(samples[f*from+ch])
			}
			mixed /= int64(from)
		}
		for ch := 0; ch < to; ch++ {
			out[f*to+ch] = int32(mixed)
		}
	}

	return out
}
