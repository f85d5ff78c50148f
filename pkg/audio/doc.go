// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Buffer types and sample conversion functions
// Package audio provides the PCM types shared by the decoders, the asset
// cache and the playback engine.
//
//   - Format: describes a PCM layout (sample rate, channels, source bit depth)
//   - Buffer: a fully decoded sound, interleaved int32 samples in 24-bit range
//
// It also provides sample conversions (16-bit, 24-bit, float) and channel
// remixing used when normalising assets to the engine's output format.
//
// Example:
//
//	buf := &audio.Buffer{
//	    Samples: samples,
//	    Format:  audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 16},
//	}
//	log.Printf("loaded %v of audio", buf.Duration())
package audio
