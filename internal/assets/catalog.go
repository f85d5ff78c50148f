// ABOUTME: Static sound identifier to file path table
// ABOUTME: Expands each identifier into its extension-fallback candidates
package assets

import (
	"path"
	"sort"
	"strings"
)

// FallbackExtensions is the order alternate encodings are tried in
var FallbackExtensions = []string{".mp3", ".ogg", ".wav", ".flac", ".aiff", ".opus"}

// Catalog maps sound identifiers to relative file paths
type Catalog struct {
	paths    map[string]string
	fallback []string
}

// NewCatalog creates a catalog from an id→path table
func NewCatalog(paths map[string]string) *Catalog {
	c := &Catalog{
		paths:    make(map[string]string, len(paths)),
		fallback: FallbackExtensions,
	}
	for id, p := range paths {
		c.paths[id] = p
	}
	return c
}

// DefaultCatalog maps every built-in sound to sounds/<id>.mp3
func DefaultCatalog() *Catalog {
	paths := make(map[string]string, len(DefaultSounds))
	for _, id := range DefaultSounds {
		paths[id] = "sounds/" + id + ".mp3"
	}
	return NewCatalog(paths)
}

// DefaultSounds lists every identifier the layer resolver can emit
var DefaultSounds = []string{
	"ocean-waves", "seagulls",
	"forest-day", "forest-night", "birds", "owls",
	"desert-wind", "insects",
	"mountain-wind", "mountain-stream",
	"city-traffic", "city-night", "city-evening",
	"plains-breeze", "tundra-wind",
	"crickets", "frogs",
	"rain-light", "rain-heavy", "thunder", "wind",
}

// SetFallback replaces the fallback extension order
func (c *Catalog) SetFallback(exts []string) {
	c.fallback = make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.fallback = append(c.fallback, ext)
	}
}

// Path returns the primary path for id
func (c *Catalog) Path(id string) (string, bool) {
	p, ok := c.paths[id]
	return p, ok
}

// Candidates returns the primary path followed by the same path with each
// fallback extension that differs from the primary one
func (c *Catalog) Candidates(id string) []string {
	primary, ok := c.paths[id]
	if !ok {
		return nil
	}

	ext := strings.ToLower(path.Ext(primary))
	stem := strings.TrimSuffix(primary, path.Ext(primary))

	candidates := []string{primary}
	for _, alt := range c.fallback {
		if alt == ext {
			continue
		}
		candidates = append(candidates, stem+alt)
	}
	return candidates
}

// IDs returns every identifier in sorted order
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.paths))
	for id := range c.paths {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
