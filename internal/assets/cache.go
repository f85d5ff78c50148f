// ABOUTME: Decoded sound cache keyed by identifier
// ABOUTME: Collapses concurrent loads, tries fallback encodings, remembers failures
package assets

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/Sendspin/soundscape-go/pkg/audio"
	"github.com/Sendspin/soundscape-go/pkg/audio/decode"
	"github.com/Sendspin/soundscape-go/pkg/audio/resample"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrUnknownSound is returned for identifiers missing from the catalog
	ErrUnknownSound = errors.New("unknown sound")
	// ErrPermanentlyFailed is returned for identifiers that already failed to load
	ErrPermanentlyFailed = errors.New("sound previously failed to load")
)

// LoadError describes a sound that could not be fetched or decoded
type LoadError struct {
	ID       string
	Attempts []string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s after %d attempts: %v", e.ID, len(e.Attempts), e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Asset is a decoded sound ready for playback. It is never mutated.
type Asset struct {
	ID       string
	Path     string
	Buffer   *audio.Buffer
	Duration time.Duration
}

// FileDecoder decodes a local file into memory
type FileDecoder interface {
	DecodeFile(path string) (*audio.Buffer, error)
}

// Config holds cache settings
type Config struct {
	Catalog    *Catalog
	Fetcher    *Fetcher
	Decoder    FileDecoder
	SampleRate int // engine rate every buffer is converted to
	Channels   int
	// Parallelism bounds concurrent loads during Preload
	Parallelism int
}

// Cache loads each sound at most once and shares the result
type Cache struct {
	config Config
	group  singleflight.Group

	// ctx bounds every shared load and is cancelled by Close
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	assets map[string]*Asset
	failed map[string]*LoadError
}

// NewCache creates an empty cache
func NewCache(config Config) *Cache {
	if config.SampleRate == 0 {
		config.SampleRate = 48000
	}
	if config.Channels == 0 {
		config.Channels = 2
	}
	if config.Parallelism <= 0 {
		config.Parallelism = 4
	}
	if config.Fetcher == nil {
		config.Fetcher = &Fetcher{baseDir: "."}
	}
	if config.Decoder == nil {
		config.Decoder = decode.NewRegistry()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Cache{
		config: config,
		ctx:    ctx,
		cancel: cancel,
		assets: make(map[string]*Asset),
		failed: make(map[string]*LoadError),
	}
}

// Get returns a cached asset without loading
func (c *Cache) Get(id string) (*Asset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.assets[id]
	return a, ok
}

// Load returns the asset for id, fetching and decoding it on first use.
// Concurrent calls for the same id share one load.
func (c *Cache) Load(ctx context.Context, id string) (*Asset, error) {
	c.mu.RLock()
	if a, ok := c.assets[id]; ok {
		c.mu.RUnlock()
		return a, nil
	}
	if _, failed := c.failed[id]; failed {
		c.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s", ErrPermanentlyFailed, id)
	}
	c.mu.RUnlock()

	// Shared loads run under the cache's own context so one caller giving
	// up does not fail the others. Each caller still stops waiting on ctx.
	ch := c.group.DoChan(id, func() (interface{}, error) {
		c.mu.RLock()
		a, ok := c.assets[id]
		c.mu.RUnlock()
		if ok {
			return a, nil
		}

		a, loadErr := c.load(c.ctx, id)

		c.mu.Lock()
		defer c.mu.Unlock()
		if loadErr != nil {
			if c.ctx.Err() == nil {
				c.failed[id] = loadErr
			}
			return nil, loadErr
		}
		c.assets[id] = a
		return a, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*Asset), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("load %s: %w", id, ctx.Err())
	}
}

// Close cancels in-flight loads. Loads cancelled this way are not
// recorded as failures.
func (c *Cache) Close() {
	c.cancel()
}

func (c *Cache) load(ctx context.Context, id string) (*Asset, *LoadError) {
	if c.config.Catalog == nil {
		return nil, &LoadError{ID: id, Err: ErrUnknownSound}
	}
	candidates := c.config.Catalog.Candidates(id)
	if len(candidates) == 0 {
		return nil, &LoadError{ID: id, Err: ErrUnknownSound}
	}

	loadErr := &LoadError{ID: id}
	for _, rel := range candidates {
		if err := ctx.Err(); err != nil {
			loadErr.Err = err
			return nil, loadErr
		}
		loadErr.Attempts = append(loadErr.Attempts, rel)

		local, err := c.config.Fetcher.Fetch(ctx, rel)
		if err != nil {
			loadErr.Err = err
			continue
		}

		buf, err := c.config.Decoder.DecodeFile(local)
		if err != nil {
			loadErr.Err = err
			log.Printf("Failed to decode %s (%s): %v", id, rel, err)
			continue
		}

		buf = resample.Buffer(buf, c.config.SampleRate, c.config.Channels)
		asset := &Asset{
			ID:       id,
			Path:     local,
			Buffer:   buf,
			Duration: buf.Duration(),
		}
		log.Printf("Loaded sound %s from %s (%v)", id, rel, asset.Duration.Round(time.Millisecond))
		return asset, nil
	}

	log.Printf("Giving up on sound %s: %v", id, loadErr.Err)
	return nil, loadErr
}

// PreloadResult summarizes a batch load
type PreloadResult struct {
	Loaded []string
	Failed []string
}

// Preload loads every id concurrently. A failure never aborts the batch.
func (c *Cache) Preload(ctx context.Context, ids []string) PreloadResult {
	var (
		mu     sync.Mutex
		result PreloadResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Parallelism)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			_, err := c.Load(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, id)
			} else {
				result.Loaded = append(result.Loaded, id)
			}
			return nil
		})
	}
	g.Wait()

	sort.Strings(result.Loaded)
	sort.Strings(result.Failed)
	return result
}

// Failed returns the identifiers that failed to load, sorted
func (c *Cache) Failed() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.failed))
	for id := range c.failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of cached assets
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.assets)
}
