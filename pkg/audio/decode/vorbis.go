// ABOUTME: Ogg Vorbis audio decoder
// ABOUTME: Decodes Ogg Vorbis audio to int32 samples
package decode

import (
	"fmt"
	"io"

	"github.com/Sendspin/soundscape-go/pkg/audio"
	"github.com/jfreymuth/oggvorbis"
)

// VorbisDecoder decodes Ogg Vorbis audio
type VorbisDecoder struct{}

// Decode converts a whole Ogg Vorbis stream to int32 samples
func (VorbisDecoder) Decode(r io.Reader) (*audio.Buffer, error) {
	data, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("vorbis decode error: %w", err)
	}

	samples := make([]int32, len(data))
	for i, f := range data {
		samples[i] = audio.SampleFromFloat32(f)
	}

	return &audio.Buffer{
		Samples: samples,
		Format: audio.Format{
			Codec:      "vorbis",
			SampleRate: format.SampleRate,
			Channels:   format.Channels,
			BitDepth:   32,
		},
	}, nil
}
