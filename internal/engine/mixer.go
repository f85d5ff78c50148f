// ABOUTME: Software mixer that sums voices through per-track and master gain
// ABOUTME: Its rendered frame count is the engine's playback clock
package engine

import (
	"log"
	"sync"
	"time"

	"github.com/Sendspin/soundscape-go/internal/envelope"
	"github.com/Sendspin/soundscape-go/pkg/audio"
	"github.com/google/uuid"
)

// voice is one buffer being played by the mixer
type voice struct {
	id         string
	instance   uuid.UUID
	buf        *audio.Buffer
	gain       *envelope.Param
	startFrame int64
	pos        int
	loop       bool
}

// Mixer renders every active voice into the output stream
type Mixer struct {
	mu         sync.Mutex
	sampleRate int
	channels   int
	frame      int64
	voices     []*voice
	master     *envelope.Param
	limiter    *Limiter
	ended      chan *voice
	gainBuf    []float32
	masterBuf  []float32
}

// NewMixer creates a mixer producing the given format
func NewMixer(sampleRate, channels int, master *envelope.Param) *Mixer {
	return &Mixer{
		sampleRate: sampleRate,
		channels:   channels,
		master:     master,
		limiter:    NewLimiter(sampleRate, channels, -1, 0.25),
		ended:      make(chan *voice, 256),
	}
}

// Now returns the playback position of the output stream
func (m *Mixer) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frameTime(m.frame)
}

// Ended delivers non-looping voices that reached the end of their buffer
func (m *Mixer) Ended() <-chan *voice {
	return m.ended
}

func (m *Mixer) frameTime(f int64) time.Duration {
	return time.Duration(f * int64(time.Second) / int64(m.sampleRate))
}

func (m *Mixer) timeFrame(t time.Duration) int64 {
	return int64(t) * int64(m.sampleRate) / int64(time.Second)
}

func (m *Mixer) add(v *voice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voices = append(m.voices, v)
}

func (m *Mixer) remove(v *voice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, other := range m.voices {
		if other == v {
			m.voices = append(m.voices[:i], m.voices[i+1:]...)
			return
		}
	}
}

func (m *Mixer) removeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voices = nil
}

// Len returns the number of voices being mixed
func (m *Mixer) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.voices)
}

// Render fills out with the next block of interleaved audio
func (m *Mixer) Render(out []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range out {
		out[i] = 0
	}

	frames := len(out) / m.channels
	if frames == 0 {
		return
	}
	if cap(m.gainBuf) < frames {
		m.gainBuf = make([]float32, frames)
		m.masterBuf = make([]float32, frames)
	}
	gains := m.gainBuf[:frames]
	step := time.Second / time.Duration(m.sampleRate)
	blockStart := m.frameTime(m.frame)

	remaining := m.voices[:0]
	for _, v := range m.voices {
		if m.mixVoice(v, out, gains, frames, blockStart, step) {
			remaining = append(remaining, v)
			continue
		}
		select {
		case m.ended <- v:
		default:
			log.Printf("Mixer end queue full, dropping end notice for %s", v.id)
		}
	}
	for i := len(remaining); i < len(m.voices); i++ {
		m.voices[i] = nil
	}
	m.voices = remaining

	master := m.masterBuf[:frames]
	m.master.Fill(master, blockStart, step)
	for f := 0; f < frames; f++ {
		for c := 0; c < m.channels; c++ {
			out[f*m.channels+c] *= master[f]
		}
	}

	m.limiter.Process(out)
	m.frame += int64(frames)
}

// mixVoice adds v into out and reports whether it is still playing
func (m *Mixer) mixVoice(v *voice, out, gains []float32, frames int, blockStart, step time.Duration) bool {
	total := v.buf.Frames()
	if total == 0 {
		return false
	}

	first := 0
	if v.startFrame > m.frame {
		first = int(v.startFrame - m.frame)
		if first >= frames {
			return true
		}
	}

	v.gain.Fill(gains, blockStart, step)
	srcCh := v.buf.Format.Channels
	samples := v.buf.Samples

	for f := first; f < frames; f++ {
		if v.pos >= total {
			if !v.loop {
				return false
			}
			v.pos = 0
		}

		g := gains[f]
		base := v.pos * srcCh
		for c := 0; c < m.channels; c++ {
			out[f*m.channels+c] += audio.SampleToFloat32(samples[base+c%srcCh]) * g
		}
		v.pos++
	}

	return v.loop || v.pos < total
}
