package bif

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func writeFixtureJPEG(t *testing.T, dir, name string, size int) {
	t.Helper()
	data := make([]byte, size)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
}

func TestPackThreeImageBIF(t *testing.T) {
	imgDir := t.TempDir()
	writeFixtureJPEG(t, imgDir, "0000000000.jpg", 100)
	writeFixtureJPEG(t, imgDir, "0000000005.jpg", 200)
	writeFixtureJPEG(t, imgDir, "0000000010.jpg", 300)

	outDir := t.TempDir()
	outPath := filepath.Join(outDir, "index-sd.bif")

	if err := Pack(outPath, imgDir, 5); err != nil {
		t.Fatalf("Pack failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}

	if len(data) != 696 {
		t.Fatalf("expected file length 696, got %d", len(data))
	}

	for i, b := range Magic {
		if data[i] != b {
			t.Fatalf("magic byte %d mismatch: got %#x want %#x", i, data[i], b)
		}
	}

	if v := binary.LittleEndian.Uint32(data[8:12]); v != 0 {
		t.Fatalf("version: got %d want 0", v)
	}
	if n := binary.LittleEndian.Uint32(data[12:16]); n != 3 {
		t.Fatalf("image count: got %d want 3", n)
	}
	if ms := binary.LittleEndian.Uint32(data[16:20]); ms != 5000 {
		t.Fatalf("interval ms: got %d want 5000", ms)
	}

	type entry struct{ ts, off uint32 }
	want := []entry{{0, 96}, {1, 196}, {2, 396}, {0xffffffff, 696}}
	for i, e := range want {
		base := HeaderSize + i*8
		ts := binary.LittleEndian.Uint32(data[base : base+4])
		off := binary.LittleEndian.Uint32(data[base+4 : base+8])
		if ts != e.ts || off != e.off {
			t.Fatalf("entry %d: got (%d, %d) want (%d, %d)", i, ts, off, e.ts, e.off)
		}
	}
}

func TestPackEmptyDirFails(t *testing.T) {
	imgDir := t.TempDir()
	outPath := filepath.Join(t.TempDir(), "index-sd.bif")
	if err := Pack(outPath, imgDir, 5); err == nil {
		t.Fatal("expected error packing empty directory, got nil")
	}
	if _, err := os.Stat(outPath); !os.IsNotExist(err) {
		t.Fatal("expected no output file to be created on failure")
	}
}

func TestPackIgnoresNonJPEGFiles(t *testing.T) {
	imgDir := t.TempDir()
	writeFixtureJPEG(t, imgDir, "0000000000.jpg", 10)
	if err := os.WriteFile(filepath.Join(imgDir, "notes.txt"), []byte("hi"), 0644); err != nil {
		t.Fatalf("writing stray file: %v", err)
	}

	outPath := filepath.Join(t.TempDir(), "index-sd.bif")
	if err := Pack(outPath, imgDir, 5); err != nil {
		t.Fatalf("Pack failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if n := binary.LittleEndian.Uint32(data[12:16]); n != 1 {
		t.Fatalf("image count: got %d want 1", n)
	}
}
