package bundle

import "testing"

func TestResolveDerivesBundlePaths(t *testing.T) {
	hash := "abcd1234abcd1234abcd1234abcd1234abcd1234"
	paths := Resolve("/mnt/media/movie.mkv", PathMap{}, "/plex/config", "/tmp/plexbif", hash)

	wantBundleDir := "/plex/config/Media/localhost/a/bcd1234abcd1234abcd1234abcd1234abcd1234.bundle"
	if paths.BundleDir != wantBundleDir {
		t.Errorf("bundle dir: got %q want %q", paths.BundleDir, wantBundleDir)
	}
	wantIndexes := wantBundleDir + "/Contents/Indexes"
	if paths.IndexesDir != wantIndexes {
		t.Errorf("indexes dir: got %q want %q", paths.IndexesDir, wantIndexes)
	}
	if paths.OutputBIF != wantIndexes+"/index-sd.bif" {
		t.Errorf("output bif: got %q", paths.OutputBIF)
	}
	if paths.TempDir != "/tmp/plexbif/"+hash {
		t.Errorf("temp dir: got %q", paths.TempDir)
	}
	if paths.SourceFile != "/mnt/media/movie.mkv" {
		t.Errorf("source file: got %q", paths.SourceFile)
	}
}

func TestResolveAppliesPathMap(t *testing.T) {
	hash := "1111111111111111111111111111111111111a"
	pm := PathMap{PlexPrefix: "/data/media", LocalPrefix: "/mnt/nas/media"}
	paths := Resolve("/data/media/shows/ep01.mkv", pm, "/plex/config", "/tmp/plexbif", hash)

	want := "/mnt/nas/media/shows/ep01.mkv"
	if paths.SourceFile != want {
		t.Errorf("source file: got %q want %q", paths.SourceFile, want)
	}
}

func TestResolveNoMapWhenPrefixesEmpty(t *testing.T) {
	hash := "2222222222222222222222222222222222222b"
	paths := Resolve("/same/path/video.mp4", PathMap{PlexPrefix: "", LocalPrefix: ""}, "/cfg", "/tmp", hash)
	if paths.SourceFile != "/same/path/video.mp4" {
		t.Errorf("expected unmapped path, got %q", paths.SourceFile)
	}
}

func TestRemapPathOnlyFirstOccurrence(t *testing.T) {
	pm := PathMap{PlexPrefix: "/data", LocalPrefix: "/mnt"}
	got := remapPath("/data/nested/data/file.mkv", pm)
	want := "/mnt/nested/data/file.mkv"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}
