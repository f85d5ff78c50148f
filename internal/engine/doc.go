// ABOUTME: Playback engine package documentation
// ABOUTME: Describes the registry model and the output graph
// Package engine plays layered, looping ambient sounds.
//
// The engine keeps one registry slot per sound identifier. Each slot holds
// at most one settled track, a pending play waiting on its asset, and the
// loop crossfade timer. Fading instances are moved aside so a fresh play of
// the same identifier can start while the old one finishes its fade.
//
// Audio flows voices → track gain → mixer → master gain → limiter → output.
// Gains are automation timelines evaluated on the mixer's playback clock.
package engine
