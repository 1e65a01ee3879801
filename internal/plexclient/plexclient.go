// Package plexclient provides a file-backed stand-in for the real Plex
// Media Server collaborator: it reads a JSON sidecar describing library
// items instead of querying a running server. Talking to an actual Plex
// instance is explicitly out of scope for the core (spec.md §1); this
// package exists so the rest of plexbif can be exercised standalone.
package plexclient

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/plexbif/plexbif/internal/library"
)

// entry is one row of the sidecar file.
type entry struct {
	Key        string   `json:"key"`
	Title      string   `json:"title"`
	Kind       string   `json:"kind"` // "movie" or "episode"
	Section    string   `json:"section"`
	SourceFile string   `json:"source_file"`
	BundleHash string   `json:"bundle_hash"`
	HDRFormat  string   `json:"hdr_format"`
	Locations  []string `json:"locations"`
}

type sidecar struct {
	Items []entry `json:"items"`
}

// FileClient implements library.PlexClient by reading a single JSON
// sidecar file describing the library contents.
type FileClient struct {
	SidecarPath string
}

// NewFileClient creates a FileClient reading sidecarPath.
func NewFileClient(sidecarPath string) *FileClient {
	return &FileClient{SidecarPath: sidecarPath}
}

// ListLibraryItems reads the sidecar and returns every item whose Section
// matches one of sectionNames (all items if sectionNames is empty), wrapped
// in the same bounded-retry-with-backoff pattern the original Plex client
// uses around its (much flakier) live XML queries.
func (c *FileClient) ListLibraryItems(ctx context.Context, sectionNames []string) ([]library.Record, error) {
	var sc sidecar
	err := withRetry(ctx, 3, func() error {
		data, readErr := os.ReadFile(c.SidecarPath)
		if readErr != nil {
			return readErr
		}
		return json.Unmarshal(data, &sc)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read library sidecar %s: %w", c.SidecarPath, err)
	}

	wanted := make(map[string]bool, len(sectionNames))
	for _, s := range sectionNames {
		wanted[s] = true
	}

	records := make([]library.Record, 0, len(sc.Items))
	for _, e := range sc.Items {
		if len(wanted) > 0 && !wanted[e.Section] {
			continue
		}
		kind := library.KindMovie
		if e.Kind == string(library.KindEpisode) {
			kind = library.KindEpisode
		}
		records = append(records, library.Record{
			Item: library.Item{
				Key:        e.Key,
				Title:      e.Title,
				Kind:       kind,
				SourceFile: e.SourceFile,
				BundleHash: e.BundleHash,
				HDRFormat:  e.HDRFormat,
			},
			Locations: e.Locations,
		})
	}
	return records, nil
}

// withRetry retries fn up to attempts times with exponential backoff
// (1.0s, 1.5s, 2.25s, ...), the same shape the original Plex client wraps
// around its XML queries to ride out a server that is momentarily busy.
// The file-backed client's own failure modes (a missing or malformed
// sidecar) won't resolve themselves on retry, but the helper lives here so
// a future live-server PlexClient has a ready idiom to reuse.
func withRetry(ctx context.Context, attempts int, fn func() error) error {
	delay := 1 * time.Second
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = time.Duration(float64(delay) * 1.5)
	}
	return lastErr
}
