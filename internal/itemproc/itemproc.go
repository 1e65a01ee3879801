// Package itemproc implements the per-item pipeline: resolve paths, drive
// FFmpeg into a scratch directory, pack the result into a BIF, and clean up
// on every exit path.
package itemproc

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/plexbif/plexbif/internal/bif"
	"github.com/plexbif/plexbif/internal/bundle"
	"github.com/plexbif/plexbif/internal/ffmpegdriver"
	"github.com/plexbif/plexbif/internal/library"
	"github.com/plexbif/plexbif/internal/util"
)

// Outcome classifies how a Process call ended.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeCodecUnsupported
	OutcomeFailed
)

// Reason names why a Process call failed. It is meaningless unless Outcome
// is OutcomeFailed.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonMissingSource Reason = "missing-source"
	ReasonIO            Reason = "io"
	ReasonFFmpegError   Reason = "ffmpeg-error"
	ReasonNoFrames      Reason = "no-frames"
	ReasonWorkerCrash   Reason = "worker-crash"
)

// Result is the outcome of one Process call plus whatever detail is useful
// for reporting.
type Result struct {
	Outcome       Outcome
	Reason        Reason
	Warning       string // set on failed(missing-source), or on an OK run when working_tmp is low on disk space
	Skipped       bool   // true when output already existed and regenerate was off
	ImageCount    int
	HWUsed        bool
	ElapsedSecs   float64
	ReportedSpeed string
}

// Config holds the knobs the Processor needs beyond the per-call item and accel.
type Config struct {
	PlexConfig      string
	WorkingTmp      string
	PathMap         bundle.PathMap
	Regenerate      bool
	FrameIntervalS  int
	ThumbnailQuality int
	FFmpegPath      string
}

// ProgressFunc mirrors ffmpegdriver.ProgressFunc; it is threaded straight
// through to the driver so the Worker can forward it to the Pool.
type ProgressFunc = ffmpegdriver.ProgressFunc

// Process resolves item, runs the FFmpeg Driver into a fresh temp dir, and
// packs the result into the item's BIF, honoring the regenerate flag.
//
// Each call must own a unique temp dir; the caller guarantees this by
// serializing calls per bundle_hash (a worker only runs one job at a time,
// and bundle_hash is unique per item).
func Process(ctx context.Context, cfg Config, item library.Item, accel ffmpegdriver.Accel, progressCb ProgressFunc) Result {
	paths := bundle.Resolve(item.SourceFile, cfg.PathMap, cfg.PlexConfig, cfg.WorkingTmp, item.BundleHash)

	if _, err := os.Stat(paths.SourceFile); err != nil {
		return Result{Outcome: OutcomeFailed, Reason: ReasonMissingSource,
			Warning: fmt.Sprintf("source file missing: %s", paths.SourceFile)}
	}

	if _, err := os.Stat(paths.OutputBIF); err == nil {
		if !cfg.Regenerate {
			return Result{Outcome: OutcomeOK, Skipped: true}
		}
		if err := os.Remove(paths.OutputBIF); err != nil {
			return Result{Outcome: OutcomeFailed, Reason: ReasonIO}
		}
	}

	defer func() { _ = os.RemoveAll(paths.TempDir) }()

	if err := os.MkdirAll(paths.IndexesDir, 0755); err != nil {
		return Result{Outcome: OutcomeFailed, Reason: ReasonIO}
	}

	var diskWarning string
	util.CheckDiskSpace(cfg.WorkingTmp, func(format string, args ...any) {
		diskWarning = fmt.Sprintf(format, args...)
	})

	if err := os.MkdirAll(paths.TempDir, 0755); err != nil {
		return Result{Outcome: OutcomeFailed, Reason: ReasonIO}
	}

	driverCfg := ffmpegdriver.Config{
		FFmpegPath:       cfg.FFmpegPath,
		FrameIntervalS:   cfg.FrameIntervalS,
		ThumbnailQuality: cfg.ThumbnailQuality,
	}

	genResult, err := ffmpegdriver.Generate(ctx, driverCfg, paths.SourceFile, paths.TempDir, accel, item.IsHDR(), progressCb)
	if err != nil {
		var codecErr *ffmpegdriver.CodecUnsupportedError
		if errors.As(err, &codecErr) {
			return Result{Outcome: OutcomeCodecUnsupported}
		}
		return Result{Outcome: OutcomeFailed, Reason: ReasonFFmpegError}
	}

	if !genResult.Success || genResult.ImageCount == 0 {
		return Result{Outcome: OutcomeFailed, Reason: ReasonNoFrames}
	}

	if err := bif.Pack(paths.OutputBIF, paths.TempDir, cfg.FrameIntervalS); err != nil {
		_ = os.Remove(paths.OutputBIF)
		return Result{Outcome: OutcomeFailed, Reason: ReasonIO}
	}

	return Result{
		Outcome:       OutcomeOK,
		Warning:       diskWarning,
		ImageCount:    genResult.ImageCount,
		HWUsed:        genResult.HWUsed,
		ElapsedSecs:   genResult.ElapsedSecs,
		ReportedSpeed: genResult.ReportedSpeed,
	}
}
