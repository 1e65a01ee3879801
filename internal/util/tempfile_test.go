package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCleanupStaleTempDirsRemovesOldOnly(t *testing.T) {
	root := t.TempDir()

	stale := filepath.Join(root, "abcd1234")
	fresh := filepath.Join(root, "ef567890")
	if err := os.MkdirAll(stale, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.MkdirAll(fresh, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	oldTime := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, oldTime, oldTime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	removed, err := CleanupStaleTempDirs(root, 24)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale dir should have been removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh dir should still exist")
	}
}

func TestCheckDiskSpaceReportsSufficientOnNormalDir(t *testing.T) {
	dir := t.TempDir()
	var warned string
	ok := CheckDiskSpace(dir, func(format string, args ...any) {
		warned = format
	})
	if !ok {
		t.Fatalf("expected sufficient disk space for %s, warning: %s", dir, warned)
	}
	if warned != "" {
		t.Fatalf("did not expect a low-disk-space warning, got %q", warned)
	}
}

func TestGetAvailableSpaceNonzeroForExistingDir(t *testing.T) {
	if GetAvailableSpace(t.TempDir()) == 0 {
		t.Error("expected nonzero available space for an existing directory")
	}
}

func TestCleanupStaleTempDirsMissingRootIsNoop(t *testing.T) {
	removed, err := CleanupStaleTempDirs(filepath.Join(t.TempDir(), "missing"), 24)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
}
