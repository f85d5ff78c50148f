// ABOUTME: YAML configuration for the soundscape server
// ABOUTME: Defaults are applied first and the file overrides what it names
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the full server configuration
type Config struct {
	Audio      AudioConfig      `yaml:"audio"`
	Engine     EngineConfig     `yaml:"engine"`
	Transition TransitionConfig `yaml:"transition"`
	Assets     AssetsConfig     `yaml:"assets"`
	Server     ServerConfig     `yaml:"server"`
	Scene      SceneConfig      `yaml:"scene"`
	Seed       int64            `yaml:"seed"` // 0 means unseeded
}

// AudioConfig selects the output format and device
type AudioConfig struct {
	SampleRate   int     `yaml:"sample_rate"`
	Channels     int     `yaml:"channels"`
	Backend      string  `yaml:"backend"` // oto, portaudio, null
	MasterVolume float64 `yaml:"master_volume"`
}

// EngineConfig tunes playback timing
type EngineConfig struct {
	MinStartDelay time.Duration `yaml:"min_start_delay"`
	FadeFraction  float64       `yaml:"fade_fraction"`
	FadeMin       time.Duration `yaml:"fade_min"`
	FadeMax       time.Duration `yaml:"fade_max"`
}

// TransitionConfig is the default soundscape transition
type TransitionConfig struct {
	FadeOut  time.Duration `yaml:"fade_out"`
	FadeIn   time.Duration `yaml:"fade_in"`
	ClearAll bool          `yaml:"clear_all"`
}

// AssetsConfig locates sound files
type AssetsConfig struct {
	Base        string            `yaml:"base"` // directory or http(s) URL
	CacheDir    string            `yaml:"cache_dir"`
	Parallelism int               `yaml:"parallelism"`
	Sounds      map[string]string `yaml:"sounds"` // id → relative path, empty uses built-in table
	Fallback    []string          `yaml:"fallback"`
	BiomeGrid   string            `yaml:"biome_grid"`
}

// ServerConfig configures the control server
type ServerConfig struct {
	Port          int           `yaml:"port"`
	Name          string        `yaml:"name"`
	MDNS          bool          `yaml:"mdns"`
	StateInterval time.Duration `yaml:"state_interval"`
}

// SceneConfig is the soundscape applied at startup
type SceneConfig struct {
	Biome     string  `yaml:"biome"`
	TimeOfDay string  `yaml:"time_of_day"` // empty derives it from the local clock
	Weather   string  `yaml:"weather"`     // preset name
	Lat       float64 `yaml:"lat"`
	Lon       float64 `yaml:"lon"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:   48000,
			Channels:     2,
			Backend:      "oto",
			MasterVolume: 0.8,
		},
		Engine: EngineConfig{
			MinStartDelay: 50 * time.Millisecond,
			FadeFraction:  0.125,
			FadeMin:       2 * time.Second,
			FadeMax:       30 * time.Second,
		},
		Transition: TransitionConfig{
			FadeOut: 5 * time.Second,
			FadeIn:  5 * time.Second,
		},
		Assets: AssetsConfig{
			Base:        ".",
			Parallelism: 4,
			Fallback:    []string{".mp3", ".ogg", ".wav", ".flac", ".aiff", ".opus"},
		},
		Server: ServerConfig{
			Port:          8928,
			Name:          "Soundscape",
			MDNS:          true,
			StateInterval: time.Second,
		},
		Scene: SceneConfig{
			Biome:   "forest",
			Weather: "clear",
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	switch {
	case c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000:
		return fmt.Errorf("invalid sample rate: %d", c.Audio.SampleRate)
	case c.Audio.Channels < 1 || c.Audio.Channels > 2:
		return fmt.Errorf("invalid channel count: %d", c.Audio.Channels)
	case c.Audio.MasterVolume < 0 || c.Audio.MasterVolume > 1:
		return fmt.Errorf("master volume out of range: %v", c.Audio.MasterVolume)
	case c.Engine.MinStartDelay < 0:
		return fmt.Errorf("negative min start delay: %v", c.Engine.MinStartDelay)
	case c.Engine.FadeFraction <= 0 || c.Engine.FadeFraction >= 1:
		return fmt.Errorf("fade fraction out of range: %v", c.Engine.FadeFraction)
	case c.Engine.FadeMin < 0 || (c.Engine.FadeMax > 0 && c.Engine.FadeMax < c.Engine.FadeMin):
		return fmt.Errorf("invalid fade bounds: %v..%v", c.Engine.FadeMin, c.Engine.FadeMax)
	case c.Transition.FadeOut < 0 || c.Transition.FadeIn < 0:
		return fmt.Errorf("negative transition fade")
	case c.Assets.Parallelism < 1:
		return fmt.Errorf("invalid asset parallelism: %d", c.Assets.Parallelism)
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	case c.Server.StateInterval <= 0:
		return fmt.Errorf("invalid state interval: %v", c.Server.StateInterval)
	}
	return nil
}
