// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the pull-based Output interface and its backends
// Package output provides audio playback backends.
//
// Backends pull interleaved float32 audio from a Renderer:
// Oto (default), PortAudio (build tag "portaudio") and Null (headless).
//
// Example:
//
//	out := output.NewOto()
//	err := out.Open(48000, 2)
//	err = out.Start(mixer)
package output
