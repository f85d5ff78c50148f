// ABOUTME: Tests for configuration loading and validation
// ABOUTME: Writes YAML files into temp directories
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "soundscape.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("expected default sample rate, got %d", cfg.Audio.SampleRate)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
audio:
  backend: "null"
  master_volume: 0.5
engine:
  fade_min: 1s
  fade_max: 10s
transition:
  fade_out: 2500ms
  clear_all: true
assets:
  base: https://example.com/sounds
  sounds:
    wind: extra/wind.ogg
server:
  port: 9000
scene:
  biome: ocean
  weather: storm
seed: 42
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Audio.Backend != "null" || cfg.Audio.MasterVolume != 0.5 {
		t.Errorf("audio not overridden: %+v", cfg.Audio)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("unset field lost its default: %d", cfg.Audio.SampleRate)
	}
	if cfg.Engine.FadeMin != time.Second || cfg.Engine.FadeMax != 10*time.Second {
		t.Errorf("fade bounds not parsed: %+v", cfg.Engine)
	}
	if cfg.Transition.FadeOut != 2500*time.Millisecond || !cfg.Transition.ClearAll {
		t.Errorf("transition not parsed: %+v", cfg.Transition)
	}
	if cfg.Transition.FadeIn != 5*time.Second {
		t.Errorf("expected default fade in, got %v", cfg.Transition.FadeIn)
	}
	if cfg.Assets.Sounds["wind"] != "extra/wind.ogg" {
		t.Errorf("sounds not parsed: %v", cfg.Assets.Sounds)
	}
	if cfg.Server.Port != 9000 || !cfg.Server.MDNS {
		t.Errorf("server not parsed: %+v", cfg.Server)
	}
	if cfg.Scene.Biome != "ocean" || cfg.Scene.Weather != "storm" || cfg.Seed != 42 {
		t.Errorf("scene not parsed: %+v seed=%d", cfg.Scene, cfg.Seed)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "audio: [\n"},
		{"sample rate", "audio:\n  sample_rate: 100\n"},
		{"channels", "audio:\n  channels: 6\n"},
		{"volume", "audio:\n  master_volume: 2\n"},
		{"fraction", "engine:\n  fade_fraction: 1.5\n"},
		{"fade bounds", "engine:\n  fade_min: 10s\n  fade_max: 5s\n"},
		{"parallelism", "assets:\n  parallelism: 0\n"},
		{"port", "server:\n  port: 70000\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Seed = 7
	cfg.Engine.FadeMax = 20 * time.Second

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if loaded.Seed != 7 || loaded.Engine.FadeMax != 20*time.Second {
		t.Errorf("values lost in round trip: seed=%d fade_max=%v", loaded.Seed, loaded.Engine.FadeMax)
	}
}
