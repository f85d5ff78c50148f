// ABOUTME: Audio output interface tests
// ABOUTME: Verifies backends implement Output and the null backend renders
package output

import (
	"encoding/binary"
	"math"
	"sync/atomic"
	"testing"
	"time"
)

func TestBackendsImplementOutput(t *testing.T) {
	var _ Output = (*PortAudio)(nil)
	var _ Output = (*Oto)(nil)
	var _ Output = (*Null)(nil)
}

func TestNewByName(t *testing.T) {
	for _, name := range []string{"oto", "portaudio", "null", ""} {
		out, err := New(name)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", name, err)
		}
		if out == nil {
			t.Errorf("%q: expected output", name)
		}
	}

	if _, err := New("alsa-direct"); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestNullRendersUntilClosed(t *testing.T) {
	out := NewNull()
	if err := out.Start(RendererFunc(func([]float32) {})); err == nil {
		t.Fatal("expected error starting before Open")
	}

	if err := out.Open(48000, 2); err != nil {
		t.Fatalf("failed to open: %v", err)
	}

	var calls atomic.Int32
	var size atomic.Int32
	if err := out.Start(RendererFunc(func(buf []float32) {
		size.Store(int32(len(buf)))
		calls.Add(1)
	})); err != nil {
		t.Fatalf("failed to start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if err := out.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}

	if calls.Load() < 3 {
		t.Fatalf("expected at least 3 render calls, got %d", calls.Load())
	}
	if size.Load() != 960 {
		t.Errorf("expected 10ms stereo buffer of 960 samples, got %d", size.Load())
	}
	if out.Frames() < 3*480 {
		t.Errorf("expected frame count to advance, got %d", out.Frames())
	}

	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	if calls.Load() != after {
		t.Error("expected rendering to stop after Close")
	}
}

func TestRenderReaderEncodesFloat32LE(t *testing.T) {
	rr := &renderReader{renderer: RendererFunc(func(buf []float32) {
		for i := range buf {
			buf[i] = float32(i) * 0.25
		}
	})}

	p := make([]byte, 16)
	n, err := rr.Read(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 16 {
		t.Fatalf("expected 16 bytes, got %d", n)
	}

	for i := 0; i < 4; i++ {
		got := math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
		if got != float32(i)*0.25 {
			t.Errorf("sample %d: expected %f, got %f", i, float32(i)*0.25, got)
		}
	}
}

func TestRenderReaderReadsWholeFrames(t *testing.T) {
	tests := []struct {
		name      string
		channels  int
		bytes     int
		wantBytes int
	}{
		{"stereo aligned", 2, 32, 32},
		{"stereo odd sample", 2, 20, 16},
		{"stereo partial sample", 2, 22, 16},
		{"stereo below one frame", 2, 4, 0},
		{"mono", 1, 12, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rendered int
			rr := &renderReader{
				channels: tt.channels,
				renderer: RendererFunc(func(buf []float32) { rendered = len(buf) }),
			}

			n, err := rr.Read(make([]byte, tt.bytes))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n != tt.wantBytes {
				t.Errorf("expected %d bytes, got %d", tt.wantBytes, n)
			}
			if rendered != tt.wantBytes/4 {
				t.Errorf("expected %d samples rendered, got %d", tt.wantBytes/4, rendered)
			}
		})
	}
}
