// Package bif builds Plex BIF ("Base Index Frames") preview-thumbnail
// sidecar files from a directory of ordered JPEG stills.
package bif

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Magic is the 8-byte BIF file signature.
var Magic = [8]byte{0x89, 0x42, 0x49, 0x46, 0x0d, 0x0a, 0x1a, 0x0a}

// Version is the BIF format version written by this packer.
const Version uint32 = 0

// HeaderSize is the fixed size in bytes of the BIF header.
const HeaderSize = 64

// reservedSize is the number of zero-padding bytes after the fixed header fields.
const reservedSize = HeaderSize - 8 - 4 - 4 - 4

// terminator marks the end of the index table.
const terminator uint32 = 0xffffffff

// Pack reads every *.jpg file in imageDir in ascending filename order and
// writes a BIF file to outputPath. frameIntervalSeconds must be >= 1.
// imageDir must contain at least one JPEG; the caller must not invoke Pack
// with zero images.
//
// Pack writes to a temporary file in the same directory as outputPath and
// renames it into place on success, so outputPath either does not exist or
// is a complete, well-formed BIF: never a torn write.
func Pack(outputPath, imageDir string, frameIntervalSeconds int) error {
	entries, err := os.ReadDir(imageDir)
	if err != nil {
		return fmt.Errorf("io-error: failed to read image directory %s: %w", imageDir, err)
	}

	var images []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if filepath.Ext(e.Name()) == ".jpg" {
			images = append(images, e.Name())
		}
	}
	sort.Strings(images)

	if len(images) == 0 {
		return fmt.Errorf("io-error: no jpg images found in %s", imageDir)
	}

	sizes := make([]int64, len(images))
	for i, name := range images {
		info, err := os.Stat(filepath.Join(imageDir, name))
		if err != nil {
			return fmt.Errorf("io-error: failed to stat %s: %w", name, err)
		}
		sizes[i] = info.Size()
	}

	outDir := filepath.Dir(outputPath)
	tmp, err := os.CreateTemp(outDir, ".bif-*.tmp")
	if err != nil {
		return fmt.Errorf("io-error: failed to create temp file in %s: %w", outDir, err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := writeBIF(tmp, images, sizes, imageDir, frameIntervalSeconds); err != nil {
		_ = tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("io-error: failed to close temp BIF file: %w", err)
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		return fmt.Errorf("io-error: failed to rename temp BIF file into place: %w", err)
	}

	return nil
}

func writeBIF(f *os.File, images []string, sizes []int64, imageDir string, frameIntervalSeconds int) error {
	header := make([]byte, HeaderSize)
	copy(header[0:8], Magic[:])
	binary.LittleEndian.PutUint32(header[8:12], Version)
	binary.LittleEndian.PutUint32(header[12:16], uint32(len(images)))
	binary.LittleEndian.PutUint32(header[16:20], uint32(1000*frameIntervalSeconds))
	// header[20:64] stays zero (reserved).

	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("io-error: failed to write BIF header: %w", err)
	}

	indexTableSize := 8 * (len(images) + 1)
	offset := uint32(HeaderSize + indexTableSize)

	indexTable := make([]byte, indexTableSize)
	pos := 0
	for i, size := range sizes {
		binary.LittleEndian.PutUint32(indexTable[pos:pos+4], uint32(i))
		binary.LittleEndian.PutUint32(indexTable[pos+4:pos+8], offset)
		pos += 8
		offset += uint32(size)
	}
	binary.LittleEndian.PutUint32(indexTable[pos:pos+4], terminator)
	binary.LittleEndian.PutUint32(indexTable[pos+4:pos+8], offset)

	if _, err := f.Write(indexTable); err != nil {
		return fmt.Errorf("io-error: failed to write BIF index table: %w", err)
	}

	for _, name := range images {
		data, err := os.ReadFile(filepath.Join(imageDir, name))
		if err != nil {
			return fmt.Errorf("io-error: failed to read image %s: %w", name, err)
		}
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("io-error: failed to write image %s into BIF: %w", name, err)
		}
	}

	return nil
}
