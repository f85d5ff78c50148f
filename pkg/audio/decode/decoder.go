// ABOUTME: Decoder interface and extension registry
// ABOUTME: Maps file extensions to whole-file decoders producing in-memory buffers
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Sendspin/soundscape-go/pkg/audio"
)

// ErrUnsupportedFormat is returned when no decoder handles an extension
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Decoder decodes a complete encoded sound into memory
type Decoder interface {
	Decode(r io.Reader) (*audio.Buffer, error)
}

// DecoderFunc adapts a plain function to the Decoder interface
type DecoderFunc func(r io.Reader) (*audio.Buffer, error)

// Decode calls f(r)
func (f DecoderFunc) Decode(r io.Reader) (*audio.Buffer, error) {
	return f(r)
}

// Registry maps lowercase file extensions (with the leading dot) to decoders
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
}

// NewRegistry creates a registry with every built-in decoder registered
func NewRegistry() *Registry {
	r := &Registry{decoders: make(map[string]Decoder)}
	r.Register(".mp3", MP3Decoder{})
	r.Register(".ogg", VorbisDecoder{})
	r.Register(".wav", WAVDecoder{})
	r.Register(".flac", FLACDecoder{})
	r.Register(".aiff", AIFFDecoder{})
	r.Register(".aif", AIFFDecoder{})
	registerOpus(r)
	return r
}

// Register installs (or replaces) the decoder for an extension
func (r *Registry) Register(ext string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[normalizeExt(ext)] = d
}

// Lookup returns the decoder for an extension
func (r *Registry) Lookup(ext string) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.decoders[normalizeExt(ext)]
	return d, ok
}

// Extensions returns the registered extensions
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.decoders))
	for ext := range r.decoders {
		exts = append(exts, ext)
	}
	return exts
}

// Decode decodes data using the decoder registered for ext
func (r *Registry) Decode(ext string, data io.Reader) (*audio.Buffer, error) {
	d, ok := r.Lookup(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	buf, err := d.Decode(data)
	if err != nil {
		return nil, err
	}
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("decoded %s: %w", ext, err)
	}
	return buf, nil
}

// DecodeFile opens and decodes the file at path based on its extension
func (r *Registry) DecodeFile(path string) (*audio.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	buf, err := r.Decode(filepath.Ext(path), f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return buf, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// readSeeker returns r as an io.ReadSeeker, buffering it in memory when needed
func readSeeker(r io.Reader) (io.ReadSeeker, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return bytes.NewReader(data), nil
}
