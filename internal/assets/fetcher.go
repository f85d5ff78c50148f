// ABOUTME: Resolves catalog paths to local files
// ABOUTME: Reads from a local directory or downloads over HTTP into a disk cache
package assets

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when a candidate path does not exist at the source
var ErrNotFound = errors.New("asset not found")

// Fetcher turns a relative asset path into a local file path
type Fetcher struct {
	baseDir  string
	baseURL  *url.URL
	cacheDir string
	client   *http.Client
}

// NewFetcher creates a fetcher rooted at base, which is either a directory
// or an http(s) URL. Remote assets are cached under cacheDir.
func NewFetcher(base, cacheDir string) (*Fetcher, error) {
	f := &Fetcher{client: &http.Client{}}

	if strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://") {
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid asset url: %w", err)
		}
		if cacheDir == "" {
			cacheDir = filepath.Join(os.TempDir(), "soundscape-assets")
		}
		if err := os.MkdirAll(cacheDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		f.baseURL = u
		f.cacheDir = cacheDir
		return f, nil
	}

	f.baseDir = base
	return f, nil
}

// Remote reports whether assets are downloaded
func (f *Fetcher) Remote() bool {
	return f.baseURL != nil
}

// Fetch returns a local path for rel, downloading it first if needed
func (f *Fetcher) Fetch(ctx context.Context, rel string) (string, error) {
	if f.baseURL == nil {
		p := filepath.Join(f.baseDir, filepath.FromSlash(rel))
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				return "", fmt.Errorf("%w: %s", ErrNotFound, p)
			}
			return "", fmt.Errorf("failed to stat %s: %w", p, err)
		}
		return p, nil
	}

	u := *f.baseURL
	u.Path = path.Join(u.Path, rel)
	return f.download(ctx, u.String())
}

func (f *Fetcher) download(ctx context.Context, rawURL string) (string, error) {
	// Cache key from URL hash
	hash := sha256.Sum256([]byte(rawURL))
	cachePath := filepath.Join(f.cacheDir, fmt.Sprintf("%x%s", hash[:8], path.Ext(rawURL)))

	if _, err := os.Stat(cachePath); err == nil {
		log.Printf("Asset cache hit: %s", cachePath)
		return cachePath, nil
	}

	log.Printf("Downloading asset: %s", rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", ErrNotFound, rawURL)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("asset download failed: HTTP %d", resp.StatusCode)
	}

	// Write to a temp file so a partial download never looks cached
	tmp, err := os.CreateTemp(f.cacheDir, "download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create cache file: %w", err)
	}

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save asset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save asset: %w", err)
	}
	if err := os.Rename(tmp.Name(), cachePath); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save asset: %w", err)
	}

	log.Printf("Asset saved: %s", cachePath)
	return cachePath, nil
}

// Cleanup removes the download cache
func (f *Fetcher) Cleanup() error {
	if f.cacheDir == "" {
		return nil
	}
	return os.RemoveAll(f.cacheDir)
}
