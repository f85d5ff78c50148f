// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Converts streamed chunks or whole decoded buffers to the engine rate
package resample

import "github.com/Sendspin/soundscape-go/pkg/audio"

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
	}
}

// Resample converts input samples to output sample rate using linear interpolation
// input: interleaved samples at inputRate
// output: interleaved samples at outputRate
func (r *Resampler) Resample(input []int32, output []int32) int {
	if len(input) == 0 {
		return 0
	}

	inputFrames := len(input) / r.channels
	outputFrames := len(output) / r.channels

	outIdx := 0

	for outIdx < outputFrames {
		inputIdx := int(r.position)

		// Last input frame has no successor to interpolate towards
		if inputIdx >= inputFrames-1 {
			break
		}

		frac := r.position - float64(inputIdx)

		for ch := 0; ch < r.channels; ch++ {
			sample1 := input[inputIdx*r.channels+ch]
			sample2 := input[(inputIdx+1)*r.channels+ch]

			interpolated := float64(sample1)*(1.0-frac) + float64(sample2)*frac
			output[outIdx*r.channels+ch] = int32(interpolated)
		}

		outIdx++
		r.position += r.ratio
	}

	// Keep only the fractional part for the next chunk
	r.position -= float64(int(r.position))

	return outIdx * r.channels
}

// OutputSamplesNeeded calculates how many output samples will be produced from input samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames) / r.ratio)
	return outputFrames * r.channels
}

// Buffer converts a whole decoded buffer to the given rate and channel count.
// The input is returned unchanged when it already matches.
func Buffer(in *audio.Buffer, rate, channels int) *audio.Buffer {
	if in == nil {
		return nil
	}

	samples := in.Samples
	format := in.Format

	if format.Channels != channels {
		samples = audio.Remix(samples, format.Channels, channels)
		format.Channels = channels
	}

	if format.SampleRate != rate {
		r := New(format.SampleRate, rate, channels)
		out := make([]int32, r.OutputSamplesNeeded(len(samples))+channels)
		n := r.Resample(samples, out)
		samples = out[:n]
		format.SampleRate = rate
	}

	if format == in.Format {
		return in
	}
	return &audio.Buffer{Samples: samples, Format: format}
}
