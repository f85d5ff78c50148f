// ABOUTME: WAV audio decoder built on go-audio
// ABOUTME: Decodes through a full PCM IntBuffer shared with the AIFF decoder
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/Sendspin/soundscape-go/pkg/audio"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrNotWAVFile is returned for data without a RIFF/WAVE header
var ErrNotWAVFile = errors.New("not a valid wav file")

// WAVDecoder decodes PCM WAV files
type WAVDecoder struct{}

// Decode converts a whole WAV file to int32 samples
func (WAVDecoder) Decode(r io.Reader) (*audio.Buffer, error) {
	rs, err := readSeeker(r)
	if err != nil {
		return nil, err
	}

	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotWAVFile
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav decode error: %w", err)
	}

	return fromIntBuffer("wav", buf, int(dec.BitDepth))
}

func fromIntBuffer(codec string, buf *goaudio.IntBuffer, bitDepth int) (*audio.Buffer, error) {
	if buf == nil || buf.Format == nil {
		return nil, fmt.Errorf("%s: missing format", codec)
	}
	if bitDepth == 0 {
		bitDepth = buf.SourceBitDepth
	}

	samples := make([]int32, len(buf.Data))
	for i, s := range buf.Data {
		if bitDepth == 8 && codec == "wav" {
			// 8-bit WAV is unsigned
			s -= 128
		}
		samples[i] = audio.SampleFromDepth(int32(s), bitDepth)
	}

	return &audio.Buffer{
		Samples: samples,
		Format: audio.Format{
			Codec:      codec,
			SampleRate: buf.Format.SampleRate,
			Channels:   buf.Format.NumChannels,
			BitDepth:   bitDepth,
		},
	}, nil
}
