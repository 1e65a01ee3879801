// Package library streams items out of a Plex library for thumbnail
// generation, deduping multi-file episodes by their location set. The Plex
// API itself is an external collaborator (§1 Non-goals); this package only
// consumes the thin interface it exposes.
package library

import "context"

// Kind distinguishes the two library item types the core processes.
type Kind string

const (
	KindMovie   Kind = "movie"
	KindEpisode Kind = "episode"
)

// Item is one unit of work: a single video part resolved to a source file
// and the bundle hash Plex assigns it.
type Item struct {
	Key        string
	Title      string
	Kind       Kind
	SourceFile string
	BundleHash string

	// HDRFormat is the HDR transfer format Plex reports for this item's
	// video track, or "" / "None" when the source is SDR. The FFmpeg
	// Driver uses this to decide whether to apply the tone-mapping filter
	// graph.
	HDRFormat string
}

// IsHDR reports whether Item.HDRFormat names an actual HDR format.
func (i Item) IsHDR() bool {
	return i.HDRFormat != "" && i.HDRFormat != "None"
}

// Record is what the Plex collaborator returns for one library item before
// dedup: the raw file locations backing it, before any bundle-hash or
// path-remap resolution.
type Record struct {
	Item
	Locations []string
}

// PlexClient is the external collaborator this package depends on. A real
// implementation talks to a running Plex Media Server; tests and the CLI's
// headless mode may supply a file-backed stand-in.
type PlexClient interface {
	// ListLibraryItems streams every item in the named library sections.
	// An implementation is free to filter by section; kind is reported
	// per item via Record.Kind.
	ListLibraryItems(ctx context.Context, sectionNames []string) ([]Record, error)
}

// Iterate streams deduped items from client. For episodes, an item whose
// location set overlaps one already seen is dropped; movies are never
// deduped.
func Iterate(ctx context.Context, client PlexClient, sectionNames []string) ([]Item, error) {
	records, err := client.ListLibraryItems(ctx, sectionNames)
	if err != nil {
		return nil, err
	}

	seenLocations := make(map[string]bool)
	var items []Item

	for _, rec := range records {
		if rec.Kind == KindEpisode && overlaps(seenLocations, rec.Locations) {
			continue
		}
		for _, loc := range rec.Locations {
			seenLocations[loc] = true
		}
		items = append(items, rec.Item)
	}

	return items, nil
}

func overlaps(seen map[string]bool, locations []string) bool {
	for _, loc := range locations {
		if seen[loc] {
			return true
		}
	}
	return false
}
