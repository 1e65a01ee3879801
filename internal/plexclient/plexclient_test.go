package plexclient

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/plexbif/plexbif/internal/library"
)

func writeSidecar(t *testing.T, entries []entry) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "library.json")
	data, err := json.Marshal(sidecar{Items: entries})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestListLibraryItemsFiltersBySection(t *testing.T) {
	path := writeSidecar(t, []entry{
		{Key: "1", Title: "Movie A", Kind: "movie", Section: "Movies", SourceFile: "/a.mkv", BundleHash: "hasha"},
		{Key: "2", Title: "Show B s1e1", Kind: "episode", Section: "TV Shows", SourceFile: "/b.mkv", BundleHash: "hashb", Locations: []string{"/b.mkv"}},
	})
	client := NewFileClient(path)

	records, err := client.ListLibraryItems(context.Background(), []string{"Movies"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Kind != library.KindMovie {
		t.Fatalf("expected 1 movie record, got %+v", records)
	}
}

func TestListLibraryItemsEmptySectionsReturnsAll(t *testing.T) {
	path := writeSidecar(t, []entry{
		{Key: "1", Title: "Movie A", Kind: "movie", Section: "Movies", SourceFile: "/a.mkv", BundleHash: "hasha"},
		{Key: "2", Title: "Show B", Kind: "episode", Section: "TV Shows", SourceFile: "/b.mkv", BundleHash: "hashb"},
	})
	client := NewFileClient(path)

	records, err := client.ListLibraryItems(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestListLibraryItemsMissingSidecarErrors(t *testing.T) {
	client := NewFileClient(filepath.Join(t.TempDir(), "missing.json"))
	if _, err := client.ListLibraryItems(context.Background(), nil); err == nil {
		t.Error("expected error for missing sidecar")
	}
}
