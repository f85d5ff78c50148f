// ABOUTME: Audio decoder package for multiple codec support
// ABOUTME: Provides the Decoder interface and whole-file decoders for every supported format
// Package decode turns encoded sound files into in-memory buffers.
//
// Supports: MP3, Ogg Vorbis, WAV, FLAC, AIFF, and Ogg Opus (build tag "opus").
//
// All decoders output int32 samples in the 24-bit range so buffers from
// different sources mix on a common scale.
//
// Example:
//
//	reg := decode.NewRegistry()
//	buf, err := reg.DecodeFile("sounds/rain-light.ogg")
package decode
