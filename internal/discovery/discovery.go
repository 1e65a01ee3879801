// Package discovery provides a standalone stand-in for the Plex client
// collaborator: given a root directory instead of a running Plex server,
// it walks the tree for video files and synthesizes library items from
// them, so the core can run against a plain media directory when no Plex
// client is wired (spec.md §1 names the Plex client as an external
// collaborator; this lets the CLI exercise the rest of the pipeline
// without one).
package discovery

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/plexbif/plexbif/internal/library"
	"github.com/plexbif/plexbif/internal/util"
)

// FindVideoFiles recursively finds video files under inputDir. Returns
// files sorted by path.
func FindVideoFiles(inputDir string) ([]string, error) {
	info, err := os.Stat(inputDir)
	if err != nil {
		return nil, fmt.Errorf("directory does not exist: %s", inputDir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", inputDir)
	}

	var files []string
	walkErr := filepath.WalkDir(inputDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip entries we can't access
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != inputDir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if util.IsVideoFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("cannot read directory %s: %w", inputDir, walkErr)
	}

	sort.Strings(files)
	return files, nil
}

// DirClient implements library.PlexClient by walking a plain directory of
// video files instead of querying Plex. Every file becomes a movie item
// (directory-scan mode has no season/episode structure to dedupe); its
// bundle hash is derived from the absolute path so repeated runs address
// the same bundle directory for the same file.
type DirClient struct {
	Root string
}

// NewDirClient creates a DirClient rooted at root.
func NewDirClient(root string) *DirClient {
	return &DirClient{Root: root}
}

// ListLibraryItems ignores sectionNames (a plain directory has no Plex
// library sections) and returns one record per discovered video file.
func (c *DirClient) ListLibraryItems(_ context.Context, _ []string) ([]library.Record, error) {
	files, err := FindVideoFiles(c.Root)
	if err != nil {
		return nil, err
	}

	records := make([]library.Record, 0, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			abs = f
		}
		records = append(records, library.Record{
			Item: library.Item{
				Key:        abs,
				Title:      filepath.Base(f),
				Kind:       library.KindMovie,
				SourceFile: abs,
				BundleHash: bundleHashForPath(abs),
			},
			Locations: []string{abs},
		})
	}
	return records, nil
}

func bundleHashForPath(path string) string {
	sum := sha1.Sum([]byte(path))
	return hex.EncodeToString(sum[:])
}
