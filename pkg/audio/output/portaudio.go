//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform audio output using a PortAudio callback stream
package output

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortAudio output implementation
type PortAudio struct {
	sampleRate int
	channels   int
	stream     *portaudio.Stream
}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() *PortAudio {
	return &PortAudio{}
}

// Open initializes PortAudio
func (p *PortAudio) Open(sampleRate, channels int) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	p.sampleRate = sampleRate
	p.channels = channels
	return nil
}

// Start opens the default stream and renders into its callback
func (p *PortAudio) Start(r Renderer) error {
	if p.sampleRate == 0 {
		return fmt.Errorf("output not opened")
	}

	stream, err := portaudio.OpenDefaultStream(0, p.channels, float64(p.sampleRate), 0, func(out []float32) {
		r.Render(out)
	})
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}

	p.stream = stream
	return stream.Start()
}

// Close releases resources
func (p *PortAudio) Close() error {
	if p.stream != nil {
		if err := p.stream.Stop(); err != nil {
			return err
		}
		if err := p.stream.Close(); err != nil {
			return err
		}
		p.stream = nil
	}
	return portaudio.Terminate()
}
