// Package config provides configuration types and defaults for plexbif.
package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Default constants.
const (
	// DefaultFrameIntervalSeconds is the spacing between preview thumbnails.
	DefaultFrameIntervalSeconds int = 5

	// DefaultThumbnailQuality is the FFmpeg -q:v value for the downscaled JPEGs (1=best, 10=worst).
	DefaultThumbnailQuality int = 4

	// DefaultFFmpegPath assumes ffmpeg is on PATH.
	DefaultFFmpegPath string = "ffmpeg"

	// DefaultWorkerPoolTimeoutSecs bounds how long graceful shutdown waits
	// for each cancelled in-flight job to finish before giving up on it.
	DefaultWorkerPoolTimeoutSecs int = 30

	// StaleTempFileMaxAgeHours is how old an orphaned per-item temp dir from
	// a crashed prior run must be before a new run's startup sweep removes it.
	StaleTempFileMaxAgeHours uint64 = 24
)

// GPUSelection identifies one accelerator the Pool may assign a GPU worker to.
type GPUSelection struct {
	Vendor     string
	DevicePath string // optional, meaningful for VAAPI
}

// PathMap remaps the path Plex reports for a source file to the path this
// host actually sees it at. Both fields may be empty (no remapping).
type PathMap struct {
	PlexPrefix  string
	LocalPrefix string
}

// Config holds the External Config fields spec.md §6 names, plus the
// ambient fields (log directory, verbosity, worker pool timeout) needed to
// run plexbif as a standalone program.
type Config struct {
	// Core generation parameters.
	FrameIntervalSeconds int
	ThumbnailQuality     int
	Regenerate           bool

	// Plex/filesystem layout.
	PlexConfig  string
	PlexPathMap PathMap
	WorkingTmp  string

	// Worker pool sizing.
	GPUWorkers   int
	CPUWorkers   int
	SelectedGPUs []GPUSelection

	// External tool.
	FFmpegPath string

	// Ambient (not in spec.md's External Config, needed to run the CLI).
	LogDir              string
	Verbose             bool
	WorkerPoolTimeoutSecs int
}

// NewConfig creates a new Config with default values. plexConfig and
// workingTmp are required Plex/filesystem roots; logDir is the directory
// run logs are written to.
func NewConfig(plexConfig, workingTmp, logDir string) *Config {
	return &Config{
		FrameIntervalSeconds:  DefaultFrameIntervalSeconds,
		ThumbnailQuality:      DefaultThumbnailQuality,
		Regenerate:            false,
		PlexConfig:            plexConfig,
		WorkingTmp:            workingTmp,
		GPUWorkers:            0,
		CPUWorkers:            1,
		FFmpegPath:            DefaultFFmpegPath,
		LogDir:                logDir,
		WorkerPoolTimeoutSecs: DefaultWorkerPoolTimeoutSecs,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.FrameIntervalSeconds < 1 {
		return fmt.Errorf("frame_interval_seconds must be >= 1, got %d", c.FrameIntervalSeconds)
	}
	if c.ThumbnailQuality < 1 || c.ThumbnailQuality > 10 {
		return fmt.Errorf("thumbnail_quality must be 1-10, got %d", c.ThumbnailQuality)
	}
	if c.PlexConfig == "" {
		return fmt.Errorf("plex_config must not be empty")
	}
	if c.WorkingTmp == "" {
		return fmt.Errorf("working_tmp must not be empty")
	}
	if c.GPUWorkers < 0 {
		return fmt.Errorf("gpu_workers must be non-negative, got %d", c.GPUWorkers)
	}
	if c.CPUWorkers < 0 {
		return fmt.Errorf("cpu_workers must be non-negative, got %d", c.CPUWorkers)
	}
	if c.GPUWorkers == 0 && c.CPUWorkers == 0 {
		return fmt.Errorf("at least one of gpu_workers or cpu_workers must be > 0")
	}
	if c.GPUWorkers > 0 && len(c.SelectedGPUs) == 0 {
		return fmt.Errorf("gpu_workers > 0 requires at least one entry in selected_gpus")
	}
	if c.FFmpegPath == "" {
		return fmt.Errorf("ffmpeg_path must not be empty")
	}
	if c.WorkerPoolTimeoutSecs < 1 {
		return fmt.Errorf("worker_pool_timeout must be >= 1 second, got %d", c.WorkerPoolTimeoutSecs)
	}
	return nil
}

// ParseGPUSelection narrows a detected GPU list down to the SelectedGPUs the
// Pool should use, following the original's "all" | comma-separated-indices
// grammar for the CLI's --gpu flag.
func ParseGPUSelection(spec string, detected []GPUSelection) ([]GPUSelection, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, "all") {
		return detected, nil
	}

	var selected []GPUSelection
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid gpu index %q in selection %q: %w", part, spec, err)
		}
		if idx < 0 || idx >= len(detected) {
			return nil, fmt.Errorf("gpu index %d out of range (0-%d detected)", idx, len(detected)-1)
		}
		selected = append(selected, detected[idx])
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("gpu selection %q resolved to no GPUs", spec)
	}
	return selected, nil
}
