// Package bundle resolves a Plex library item into the concrete filesystem
// paths its BIF bundle lives at, applying the "Plex-sees / we-see" path
// remap Plex Media Server needs when the media root differs between the
// machine running Plex and the machine running this tool.
package bundle

import (
	"path/filepath"
	"runtime"
	"strings"
)

// PathMap remaps the path prefix Plex reports in its database to the
// prefix this process should use to actually reach the file. Either side
// may be empty, in which case no remap is applied.
type PathMap struct {
	PlexPrefix  string
	LocalPrefix string
}

// Paths are the filesystem locations derived from a bundle hash, per the
// `<plex_config>/Media/localhost/<h[0]>/<h[1:]>.bundle` layout.
type Paths struct {
	SourceFile string
	BundleDir  string
	IndexesDir string
	OutputBIF  string
	TempDir    string
}

// Resolve applies pathMap to reportedPath to get the local source file,
// then derives the bundle directory tree from bundleHash under plexConfig,
// and the scratch temp dir under workingTmp.
//
// bundleHash must be the 40-character hex content hash Plex assigns to the
// media part; Resolve does not validate its shape.
func Resolve(reportedPath string, pathMap PathMap, plexConfig, workingTmp, bundleHash string) Paths {
	source := remapPath(reportedPath, pathMap)
	source = normalizePath(source)

	bundleDir := filepath.Join(plexConfig, "Media", "localhost", bundleHash[:1], bundleHash[1:]+".bundle")
	indexesDir := filepath.Join(bundleDir, "Contents", "Indexes")

	return Paths{
		SourceFile: source,
		BundleDir:  bundleDir,
		IndexesDir: indexesDir,
		OutputBIF:  filepath.Join(indexesDir, "index-sd.bif"),
		TempDir:    filepath.Join(workingTmp, bundleHash),
	}
}

// remapPath replaces the first occurrence of pathMap.PlexPrefix with
// pathMap.LocalPrefix. If either prefix is empty, reportedPath is returned
// unchanged.
func remapPath(reportedPath string, pathMap PathMap) string {
	if pathMap.PlexPrefix == "" || pathMap.LocalPrefix == "" {
		return reportedPath
	}
	idx := strings.Index(reportedPath, pathMap.PlexPrefix)
	if idx < 0 {
		return reportedPath
	}
	return reportedPath[:idx] + pathMap.LocalPrefix + reportedPath[idx+len(pathMap.PlexPrefix):]
}

// normalizePath converts path separators for the host OS: forward slashes
// to backslashes on Windows (including UNC `//host/share` to `\\host\share`),
// and runs filepath.Clean everywhere else.
func normalizePath(path string) string {
	if runtime.GOOS == "windows" {
		converted := strings.ReplaceAll(path, "/", "\\")
		if strings.HasPrefix(converted, "\\\\") {
			return converted
		}
		if strings.HasPrefix(path, "//") {
			return "\\\\" + strings.TrimPrefix(converted, "\\\\")
		}
		return converted
	}
	return filepath.Clean(path)
}
