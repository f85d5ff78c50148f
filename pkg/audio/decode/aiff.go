// ABOUTME: AIFF audio decoder built on go-audio
// ABOUTME: Decodes big-endian PCM AIFF files to int32 samples
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/Sendspin/soundscape-go/pkg/audio"
	"github.com/go-audio/aiff"
)

// ErrNotAIFFFile is returned for data without a FORM/AIFF header
var ErrNotAIFFFile = errors.New("not a valid aiff file")

// AIFFDecoder decodes PCM AIFF files
type AIFFDecoder struct{}

// Decode converts a whole AIFF file to int32 samples
func (AIFFDecoder) Decode(r io.Reader) (*audio.Buffer, error) {
	rs, err := readSeeker(r)
	if err != nil {
		return nil, err
	}

	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotAIFFFile
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("aiff decode error: %w", err)
	}

	return fromIntBuffer("aiff", buf, int(dec.BitDepth))
}
