// ABOUTME: Soundscape control protocol message type definitions
// ABOUTME: Defines the JSON envelope and every payload exchanged over the WebSocket
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Version is the control protocol version
const Version = 1

// Message types
const (
	TypeClientHello      = "client/hello"
	TypeServerHello      = "server/hello"
	TypeEngineInitialize = "engine/initialize"
	TypeSoundscapeSet    = "soundscape/set"
	TypeSoundscapeUpdate = "soundscape/update"
	TypeSoundscapeStop   = "soundscape/stop"
	TypeVolumeSet        = "volume/set"
	TypeMuteToggle       = "mute/toggle"
	TypeStateGet         = "state/get"
	TypeServerState      = "server/state"
	TypeServerError      = "server/error"
)

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// DecodePayload converts a generic payload into v
func DecodePayload(payload interface{}, v interface{}) error {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return nil
}

// ClientHello is sent by clients to initiate the handshake
type ClientHello struct {
	ClientID   string      `json:"client_id"`
	Name       string      `json:"name"`
	Version    int         `json:"version"`
	DeviceInfo *DeviceInfo `json:"device_info,omitempty"`
}

// DeviceInfo contains device identification
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// ServerHello is the server's response to client/hello
type ServerHello struct {
	ServerID   string      `json:"server_id"`
	Name       string      `json:"name"`
	Version    int         `json:"version"`
	DeviceInfo *DeviceInfo `json:"device_info,omitempty"`
}

// Transition overrides the default soundscape transition
type Transition struct {
	FadeOutMs int64 `json:"fade_out_ms"`
	FadeInMs  int64 `json:"fade_in_ms"`
	ClearAll  bool  `json:"clear_all,omitempty"`
}

// FadeOut returns the fade out as a duration
func (t Transition) FadeOut() time.Duration {
	return time.Duration(t.FadeOutMs) * time.Millisecond
}

// FadeIn returns the fade in as a duration
func (t Transition) FadeIn() time.Duration {
	return time.Duration(t.FadeInMs) * time.Millisecond
}

// SetSoundscape selects a soundscape from explicit conditions.
// An empty TimeOfDay is derived from the server's local clock.
type SetSoundscape struct {
	Biome       string      `json:"biome"`
	TimeOfDay   string      `json:"time_of_day,omitempty"`
	WeatherCode int         `json:"weather_code"`
	WindKph     float64     `json:"wind_kph"`
	Humidity    float64     `json:"humidity"`
	Transition  *Transition `json:"transition,omitempty"`
}

// UpdateSoundscape selects a soundscape from a weather snapshot.
// The biome is classified from the coordinates.
type UpdateSoundscape struct {
	WeatherCode int         `json:"weather_code"`
	WindKph     float64     `json:"wind_kph"`
	Humidity    float64     `json:"humidity"`
	LocalTime   time.Time   `json:"local_time"`
	Lat         float64     `json:"lat"`
	Lon         float64     `json:"lon"`
	Transition  *Transition `json:"transition,omitempty"`
}

// StopSoundscape fades out every sound
type StopSoundscape struct {
	FadeMs int64 `json:"fade_ms"`
}

// SetVolume sets the master volume
type SetVolume struct {
	Volume float64 `json:"volume"` // 0.0-1.0
}

// Layer is one active layer of the current soundscape
type Layer struct {
	ID       string  `json:"id"`
	Volume   float64 `json:"volume"`
	Category string  `json:"category"`
}

// Scene describes the current soundscape
type Scene struct {
	Biome       string  `json:"biome"`
	TimeOfDay   string  `json:"time_of_day"`
	WeatherCode int     `json:"weather_code"`
	WindKph     float64 `json:"wind_kph"`
	Humidity    float64 `json:"humidity"`
	Layers      []Layer `json:"layers"`
}

// ServerState reports engine and soundscape status. Request names the
// command a reply answers and is empty for periodic broadcasts.
type ServerState struct {
	Request      string   `json:"request,omitempty"`
	Initialized  bool     `json:"initialized"`
	Preloaded    bool     `json:"preloaded"`
	Muted        bool     `json:"muted"`
	MasterVolume float64  `json:"master_volume"`
	ActiveTracks int      `json:"active_tracks"`
	ActiveSounds []string `json:"active_sounds"`
	FailedLoads  []string `json:"failed_loads,omitempty"`
	Scene        *Scene   `json:"scene,omitempty"`
}

// Error codes
const (
	ErrorBadMessage        = "bad_message"
	ErrorUnknownType       = "unknown_type"
	ErrorInvalidArgument   = "invalid_argument"
	ErrorNotInitialized    = "not_initialized"
	ErrorInternal          = "internal"
	ErrorDuplicateClientID = "duplicate_client_id"
)

// Error reports a rejected command
type Error struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Request string `json:"request,omitempty"`
}
