// ABOUTME: Headless output that renders in real time and discards the audio
// ABOUTME: Used by the control server on machines without a sound device
package output

import (
	"fmt"
	"sync"
	"time"
)

// nullPeriod is how much audio the null output renders per tick
const nullPeriod = 10 * time.Millisecond

// Null renders audio at wall-clock pace without playing it
type Null struct {
	mu         sync.Mutex
	sampleRate int
	channels   int
	stopChan   chan struct{}
	done       chan struct{}
	frames     int64
}

// NewNull creates a new null output
func NewNull() *Null {
	return &Null{}
}

// Open records the format
func (n *Null) Open(sampleRate, channels int) error {
	if sampleRate <= 0 || channels <= 0 {
		return fmt.Errorf("invalid format: %dHz %dch", sampleRate, channels)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sampleRate = sampleRate
	n.channels = channels
	return nil
}

// Start renders one period per tick until Close
func (n *Null) Start(r Renderer) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.sampleRate == 0 {
		return fmt.Errorf("output not opened")
	}
	if n.stopChan != nil {
		return fmt.Errorf("output already started")
	}

	n.stopChan = make(chan struct{})
	n.done = make(chan struct{})

	framesPerTick := int(int64(n.sampleRate) * int64(nullPeriod) / int64(time.Second))
	buf := make([]float32, framesPerTick*n.channels)

	go func(stop, done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(nullPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				r.Render(buf)
				n.mu.Lock()
				n.frames += int64(framesPerTick)
				n.mu.Unlock()
			}
		}
	}(n.stopChan, n.done)

	return nil
}

// Frames returns how many frames have been rendered
func (n *Null) Frames() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.frames
}

// Close stops rendering
func (n *Null) Close() error {
	n.mu.Lock()
	stop, done := n.stopChan, n.done
	n.stopChan = nil
	n.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}
