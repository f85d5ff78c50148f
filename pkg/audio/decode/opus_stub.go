//go:build !opus

// ABOUTME: Placeholder used when built without libopus
// ABOUTME: Leaves .opus unregistered so lookups report an unsupported format
package decode

func registerOpus(r *Registry) {}
