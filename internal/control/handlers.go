// ABOUTME: Command handlers for the control protocol
// ABOUTME: Translates protocol payloads into soundscape controller calls
package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Sendspin/soundscape-go/internal/biome"
	"github.com/Sendspin/soundscape-go/internal/engine"
	"github.com/Sendspin/soundscape-go/internal/protocol"
	"github.com/Sendspin/soundscape-go/internal/resolver"
	"github.com/Sendspin/soundscape-go/internal/soundscape"
	"github.com/Sendspin/soundscape-go/internal/weather"
)

// invalidArgument marks errors caused by the request itself
type invalidArgument struct {
	err error
}

func (e invalidArgument) Error() string { return e.err.Error() }

func (e invalidArgument) Unwrap() error { return e.err }

func badRequest(format string, args ...interface{}) error {
	return invalidArgument{err: fmt.Errorf(format, args...)}
}

// handleClientMessage processes one message from a client
func (s *Server) handleClientMessage(client *Client, data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		s.sendError(client, "", protocol.ErrorBadMessage, err)
		return
	}

	var err error
	switch msg.Type {
	case protocol.TypeEngineInitialize:
		err = s.ctl.Initialize()
	case protocol.TypeSoundscapeSet:
		err = s.handleSet(msg.Payload)
	case protocol.TypeSoundscapeUpdate:
		err = s.handleUpdate(msg.Payload)
	case protocol.TypeSoundscapeStop:
		err = s.handleStop(msg.Payload)
	case protocol.TypeVolumeSet:
		err = s.handleVolume(msg.Payload)
	case protocol.TypeMuteToggle:
		_, err = s.ctl.ToggleMute()
	case protocol.TypeStateGet:
	default:
		log.Printf("Unknown message type: %s", msg.Type)
		s.sendError(client, msg.Type, protocol.ErrorUnknownType, fmt.Errorf("unknown message type: %s", msg.Type))
		return
	}

	if err != nil {
		log.Printf("Command %s from %s failed: %v", msg.Type, client.Name, err)
		s.sendError(client, msg.Type, errorCode(err), err)
		return
	}

	state := s.stateMessage()
	state.Request = msg.Type
	if err := s.sendMessage(client, protocol.TypeServerState, state); err != nil {
		log.Printf("Error sending state: %v", err)
	}
}

func (s *Server) handleSet(payload interface{}) error {
	var req protocol.SetSoundscape
	if err := protocol.DecodePayload(payload, &req); err != nil {
		return invalidArgument{err: err}
	}

	b, err := biome.Parse(req.Biome)
	if err != nil {
		return invalidArgument{err: err}
	}

	tod := resolver.TimeOfDayOf(s.config.Now())
	if req.TimeOfDay != "" {
		if tod, err = resolver.ParseTimeOfDay(req.TimeOfDay); err != nil {
			return invalidArgument{err: err}
		}
	}

	if err := validateConditions(req.WindKph, req.Humidity); err != nil {
		return err
	}

	return s.ctl.SetSoundscape(b, tod, req.WeatherCode, req.WindKph, req.Humidity, transitions(req.Transition)...)
}

func (s *Server) handleUpdate(payload interface{}) error {
	var req protocol.UpdateSoundscape
	if err := protocol.DecodePayload(payload, &req); err != nil {
		return invalidArgument{err: err}
	}
	if err := validateConditions(req.WindKph, req.Humidity); err != nil {
		return err
	}

	localTime := req.LocalTime
	if localTime.IsZero() {
		localTime = s.config.Now()
	}

	snap := weather.Snapshot{
		Code:      req.WeatherCode,
		WindKph:   req.WindKph,
		Humidity:  req.Humidity,
		LocalTime: localTime,
		Lat:       req.Lat,
		Lon:       req.Lon,
	}
	return s.ctl.UpdateSoundscape(snap, transitions(req.Transition)...)
}

func (s *Server) handleStop(payload interface{}) error {
	var req protocol.StopSoundscape
	if err := protocol.DecodePayload(payload, &req); err != nil {
		return invalidArgument{err: err}
	}
	if req.FadeMs < 0 {
		return badRequest("negative fade: %d", req.FadeMs)
	}
	return s.ctl.StopSoundscape(time.Duration(req.FadeMs) * time.Millisecond)
}

func (s *Server) handleVolume(payload interface{}) error {
	var req protocol.SetVolume
	if err := protocol.DecodePayload(payload, &req); err != nil {
		return invalidArgument{err: err}
	}
	if req.Volume < 0 || req.Volume > 1 {
		return badRequest("volume out of range: %v", req.Volume)
	}
	return s.ctl.SetMasterVolume(req.Volume)
}

func validateConditions(windKph, humidity float64) error {
	if windKph < 0 {
		return badRequest("negative wind speed: %v", windKph)
	}
	if humidity < 0 || humidity > 100 {
		return badRequest("humidity out of range: %v", humidity)
	}
	return nil
}

func transitions(t *protocol.Transition) []soundscape.TransitionConfig {
	if t == nil {
		return nil
	}
	return []soundscape.TransitionConfig{{
		FadeOut:  t.FadeOut(),
		FadeIn:   t.FadeIn(),
		ClearAll: t.ClearAll,
	}}
}

func errorCode(err error) string {
	var invalid invalidArgument
	switch {
	case errors.As(err, &invalid):
		return protocol.ErrorInvalidArgument
	case errors.Is(err, engine.ErrNotInitialized):
		return protocol.ErrorNotInitialized
	default:
		return protocol.ErrorInternal
	}
}

func (s *Server) sendError(client *Client, request, code string, err error) {
	payload := protocol.Error{
		Code:    code,
		Message: err.Error(),
		Request: request,
	}
	if err := s.sendMessage(client, protocol.TypeServerError, payload); err != nil {
		log.Printf("Error sending error: %v", err)
	}
}

// stateMessage snapshots the controller for clients
func (s *Server) stateMessage() protocol.ServerState {
	st := s.ctl.State()
	msg := protocol.ServerState{
		Initialized:  st.Initialized,
		Preloaded:    st.Preloaded,
		Muted:        st.Muted,
		MasterVolume: st.MasterVolume,
		ActiveTracks: st.ActiveTracks,
		ActiveSounds: s.ctl.ActiveSounds(),
		FailedLoads:  st.FailedLoads,
	}

	if scene, ok := s.ctl.CurrentSoundscape(); ok {
		msg.Scene = sceneMessage(scene)
	}
	return msg
}

func sceneMessage(scene soundscape.Scene) *protocol.Scene {
	out := &protocol.Scene{
		Biome:       string(scene.Biome),
		TimeOfDay:   string(scene.TimeOfDay),
		WeatherCode: scene.Code,
		WindKph:     scene.WindKph,
		Humidity:    scene.Humidity,
		Layers:      make([]protocol.Layer, 0, len(scene.Layers)),
	}
	for _, l := range scene.Layers {
		out.Layers = append(out.Layers, protocol.Layer{
			ID:       l.ID,
			Volume:   l.Volume,
			Category: string(l.Category),
		})
	}
	return out
}
