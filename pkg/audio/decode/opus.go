//go:build opus

// ABOUTME: Ogg Opus audio decoder
// ABOUTME: Decodes Ogg Opus files to int32 samples via libopusfile
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/Sendspin/soundscape-go/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// opusRate is the fixed output rate of libopusfile
const opusRate = 48000

// OpusDecoder decodes Ogg Opus audio. The stream does not report its
// channel count, so it must be configured up front.
type OpusDecoder struct {
	Channels int
}

// Decode converts a whole Ogg Opus stream to int32 samples
func (d OpusDecoder) Decode(r io.Reader) (*audio.Buffer, error) {
	channels := d.Channels
	if channels <= 0 {
		channels = 2
	}

	stream, err := opus.NewStream(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open opus stream: %w", err)
	}
	defer stream.Close()

	// 120ms at 48kHz is the largest opus frame
	pcm := make([]int16, 5760*channels)
	var samples []int32

	for {
		n, err := stream.Read(pcm)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("opus decode failed: %w", err)
		}

		for i := 0; i < n*channels; i++ {
			samples = append(samples, audio.SampleFromInt16(pcm[i]))
		}
	}

	return &audio.Buffer{
		Samples: samples,
		Format: audio.Format{
			Codec:      "opus",
			SampleRate: opusRate,
			Channels:   channels,
			BitDepth:   16,
		},
	}, nil
}

func registerOpus(r *Registry) {
	r.Register(".opus", OpusDecoder{Channels: 2})
}
