// Package fetch holds the thin per-source clients that perform one real
// layer download, and the registry that maps source ids to them.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/minhvu/geofetch/internal/core/domain"
)

// Source is one upstream data provider.
type Source interface {
	// ID returns the stable identifier a request selects the source by
	ID() string

	// Name returns a human-readable source name
	Name() string

	// Description returns a one-line source description
	Description() string

	// Layers returns the datasets this source can fetch
	Layers() []domain.LayerInfo

	// FetchLayer performs one download attempt for a layer, writing its
	// output under outDir. It returns a populated outcome on success.
	FetchLayer(ctx context.Context, layerID string, bounds domain.Bounds,
		outDir string, opts domain.SourceOptions) (*domain.LayerOutcome, error)
}

// Registry maps source ids to Sources.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// DefaultRegistry returns a registry with all built-in sources sharing one
// HTTP client with the given timeout. A non-positive timeout falls back to
// 60 seconds.
func DefaultRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := NewHTTPClient(timeout)
	r := NewRegistry()
	r.Register(NewFEMASource(client))
	r.Register(NewUSGSSource(client))
	r.Register(NewNOAASource(client))
	return r
}

// Register adds a source, replacing any previous one with the same id.
func (r *Registry) Register(s Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.ID()] = s
}

// Get returns the source for an id, or domain.ErrUnknownSource.
func (r *Registry) Get(id string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSource, id)
	}
	return s, nil
}

// List returns all registered sources ordered by id.
func (r *Registry) List() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Source, 0, len(r.sources))
	for _, s := range r.sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// StatusError reports a non-2xx upstream response. The status code drives
// retry classification.
type StatusError struct {
	Status int
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned HTTP %d for %s", e.Status, e.URL)
}

// HTTPStatusCode returns the upstream status code.
func (e *StatusError) HTTPStatusCode() int { return e.Status }

// NewHTTPClient returns the tuned client shared by all sources.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// getToFile issues a GET and streams the body to path, returning the byte
// count. Non-2xx responses become a StatusError; a partial file is left in
// place for the executor's recovery pass to clean up.
func getToFile(ctx context.Context, client *http.Client, url, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "geofetch/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &StatusError{Status: resp.StatusCode, URL: url}
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to write output file: %w", err)
	}
	return n, nil
}
