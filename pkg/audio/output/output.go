// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for pull-based audio playback backends
package output

import "fmt"

// Renderer fills interleaved float32 samples in the [-1, 1] range.
// Render is called from the backend's audio thread and must not block.
type Renderer interface {
	Render(out []float32)
}

// RendererFunc adapts a plain function to the Renderer interface
type RendererFunc func(out []float32)

// Render calls f(out)
func (f RendererFunc) Render(out []float32) { f(out) }

// Output represents an audio output device
type Output interface {
	// Open initializes the output device
	Open(sampleRate, channels int) error

	// Start begins pulling audio from r until Close
	Start(r Renderer) error

	// Close releases output resources
	Close() error
}

// New creates an output backend by name ("oto", "portaudio" or "null")
func New(backend string) (Output, error) {
	switch backend {
	case "", "oto":
		return NewOto(), nil
	case "portaudio":
		return NewPortAudio(), nil
	case "null":
		return NewNull(), nil
	default:
		return nil, fmt.Errorf("unknown output backend: %s", backend)
	}
}
