// Package ffmpegdriver drives the per-item FFmpeg decode that produces the
// downscaled JPEG stills a BIF bundle is packed from: hardware-acceleration
// selection, HDR-aware filter graphs, a fast-probe skip-frame heuristic, and
// GPU-codec-unsupported detection.
package ffmpegdriver

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/plexbif/plexbif/internal/progress"
)

// shutdownGrace is how long a killed ffmpeg process gets to exit after
// SIGTERM before the driver escalates to SIGKILL.
const shutdownGrace = 5 * time.Second

// probeTimeout bounds the fast-probe ffmpeg call: a hard timeout, not the
// job's own deadline, so a pathological source can't hang a worker forever
// deciding whether -skip_frame:v nokey is safe.
const probeTimeout = 10 * time.Second

// Accel selects the hardware-acceleration flags passed to FFmpeg. The
// driver does no detection of its own; it trusts the accel it is handed.
type Accel struct {
	Kind       AccelKind
	DevicePath string // only meaningful when Kind == AccelVAAPI
}

// AccelKind enumerates the hwaccel backends the driver knows how to wire.
type AccelKind int

const (
	AccelNone AccelKind = iota
	AccelCUDA
	AccelD3D11VA
	AccelVideoToolbox
	AccelVAAPI
)

// NoAccel is the zero-value CPU-only accel.
var NoAccel = Accel{Kind: AccelNone}

// CodecUnsupportedError signals that the current accel's decoder could not
// handle the source codec. The Item Processor propagates this unchanged so
// the Pool can requeue the item on its CPU-fallback queue.
type CodecUnsupportedError struct {
	Source string
	Err    error
}

func (e *CodecUnsupportedError) Error() string {
	return fmt.Sprintf("codec not supported by accel for %s: %v", e.Source, e.Err)
}

func (e *CodecUnsupportedError) Unwrap() error { return e.Err }

// Result is the outcome of a successful or partial Generate call.
type Result struct {
	Success      bool
	ImageCount   int
	HWUsed       bool
	ElapsedSecs  float64
	ReportedSpeed string
}

// ProgressFunc receives per-line progress updates from a running FFmpeg job.
type ProgressFunc func(percent int, currentSecs, totalSecs float64, speed string, eta time.Duration,
	frame int, fps, q float64, sizeKB int, timeStr string, bitrateKbps float64)

// Config holds the knobs the driver needs beyond the per-call arguments.
type Config struct {
	FFmpegPath      string // defaults to "ffmpeg" if empty
	FrameIntervalS  int    // >= 1
	ThumbnailQuality int   // 1..10, passed as -q:v
}

var jobCounter int64

// Generate runs FFmpeg against sourceFile, writing downscaled JPEG stills
// into outDir, and returns once the process (and any retry) has finished.
//
// isHDR controls whether the tone-mapping filter graph is used. Codec
// unsupported failures are reported as *CodecUnsupportedError when accel is
// not AccelNone and the run produced zero images.
func Generate(ctx context.Context, cfg Config, sourceFile, outDir string, accel Accel, isHDR bool, progressCb ProgressFunc) (Result, error) {
	ffmpegPath := cfg.FFmpegPath
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return Result{}, fmt.Errorf("io-error: failed to create output dir %s: %w", outDir, err)
	}

	useSkip := heuristicAllowsSkip(ctx, ffmpegPath, sourceFile)

	rc, elapsed, speed, stderrLines, err := runFFmpeg(ctx, ffmpegPath, sourceFile, outDir, accel, isHDR, cfg, useSkip, progressCb)
	if err != nil {
		return Result{}, fmt.Errorf("ffmpeg-error: failed to start ffmpeg: %w", err)
	}

	if rc != 0 && useSkip {
		for _, img := range globJPEGs(outDir) {
			_ = os.Remove(img)
		}
		rc, elapsed, speed, stderrLines, err = runFFmpeg(ctx, ffmpegPath, sourceFile, outDir, accel, isHDR, cfg, false, progressCb)
		if err != nil {
			return Result{}, fmt.Errorf("ffmpeg-error: failed to start ffmpeg retry: %w", err)
		}
	}

	imageCount := len(globJPEGs(outDir))

	if rc != 0 && imageCount == 0 && accel.Kind != AccelNone {
		if detectCodecError(rc, stderrLines) {
			for _, img := range globJPEGs(outDir) {
				_ = os.Remove(img)
			}
			return Result{}, &CodecUnsupportedError{
				Source: sourceFile,
				Err:    fmt.Errorf("ffmpeg exit code %d", rc),
			}
		}
	}

	if imageCount > 0 {
		if err := renameByInterval(outDir, cfg.FrameIntervalS); err != nil {
			return Result{}, fmt.Errorf("io-error: failed to rename thumbnails: %w", err)
		}
		imageCount = len(globJPEGs(outDir))
	}

	success := imageCount > 0
	hwUsed := accel.Kind != AccelNone && success

	if !success {
		if rc != 0 {
			return Result{Success: false, ImageCount: 0, ElapsedSecs: elapsed, ReportedSpeed: speed},
				fmt.Errorf("ffmpeg-error: 0 images produced for %s (exit code %d)", sourceFile, rc)
		}
		// ffmpeg exited clean but produced nothing: not a process failure,
		// let the caller decide (spec: failed(no-frames) is distinct from
		// ffmpeg-error).
		return Result{Success: false, ImageCount: 0, ElapsedSecs: elapsed, ReportedSpeed: speed}, nil
	}

	return Result{
		Success:       true,
		ImageCount:    imageCount,
		HWUsed:        hwUsed,
		ElapsedSecs:   elapsed,
		ReportedSpeed: speed,
	}, nil
}

// heuristicAllowsSkip runs a short fast-probe to decide whether
// -skip_frame:v nokey is safe on this source. Returns false on any error,
// which is the conservative (slower but safer) choice.
func heuristicAllowsSkip(ctx context.Context, ffmpegPath, sourceFile string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	nullSink := "/dev/null"
	args := []string{
		"-hide_banner", "-nostats",
		"-v", "error",
		"-xerror",
		"-err_detect", "explode",
		"-skip_frame:v", "nokey",
		"-threads:v", "1",
		"-i", sourceFile,
		"-an", "-sn", "-dn",
		"-frames:v", "10",
		"-f", "null", nullSink,
	}
	cmd := exec.CommandContext(probeCtx, ffmpegPath, args...)
	return cmd.Run() == nil
}

func buildFilterGraph(frameIntervalS int, isHDR bool) string {
	fps := roundTo6(1.0 / float64(frameIntervalS))
	fpsFilter := fmt.Sprintf("fps=fps=%s:round=up", trimTrailingZeros(fps))
	scale := "scale=w=320:h=240:force_original_aspect_ratio=decrease"
	if !isHDR {
		return fpsFilter + "," + scale
	}
	tonemap := "zscale=t=linear:npl=100,format=gbrpf32le,zscale=p=bt709,tonemap=tonemap=hable:desat=0,zscale=t=bt709:m=bt709:r=tv,format=yuv420p"
	return fpsFilter + "," + tonemap + "," + scale
}

func roundTo6(f float64) float64 {
	const factor = 1e6
	return float64(int64(f*factor+0.5)) / factor
}

func trimTrailingZeros(f float64) string {
	s := strconv.FormatFloat(f, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}

func accelArgs(accel Accel) []string {
	switch accel.Kind {
	case AccelCUDA:
		return []string{"-hwaccel", "cuda"}
	case AccelD3D11VA:
		return []string{"-hwaccel", "d3d11va"}
	case AccelVideoToolbox:
		return []string{"-hwaccel", "videotoolbox"}
	case AccelVAAPI:
		return []string{"-hwaccel", "vaapi", "-vaapi_device", accel.DevicePath}
	default:
		return nil
	}
}

// runFFmpeg launches one FFmpeg attempt and blocks until it exits, polling
// the stderr log file at ~200Hz to feed the progress parser.
func runFFmpeg(ctx context.Context, ffmpegPath, sourceFile, outDir string, accel Accel, isHDR bool, cfg Config, useSkip bool, progressCb ProgressFunc) (rc int, elapsedSecs float64, speed string, stderrLines []string, err error) {
	args := []string{"-loglevel", "info", "-threads:v", "1"}
	args = append(args, accelArgs(accel)...)
	if useSkip {
		args = append(args, "-skip_frame:v", "nokey")
	}
	quality := cfg.ThumbnailQuality
	if quality == 0 {
		quality = 4
	}
	args = append(args,
		"-i", sourceFile, "-an", "-sn", "-dn",
		"-q:v", strconv.Itoa(quality),
		"-vf", buildFilterGraph(cfg.FrameIntervalS, isHDR),
		filepath.Join(outDir, "img-%06d.jpg"),
	)

	logPath := jobLogPath(outDir)
	logFile, openErr := os.Create(logPath)
	if openErr != nil {
		return 0, 0, "0.0x", nil, fmt.Errorf("failed to create ffmpeg log file: %w", openErr)
	}
	defer func() {
		_ = logFile.Close()
		_ = os.Remove(logPath)
	}()

	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	cmd.Stderr = logFile
	cmd.Stdout = nil
	cmd.Cancel = func() error {
		return unix.Kill(cmd.Process.Pid, unix.SIGTERM)
	}
	cmd.WaitDelay = shutdownGrace

	start := time.Now()
	if startErr := cmd.Start(); startErr != nil {
		return 0, 0, "0.0x", nil, startErr
	}

	var totalDuration time.Duration
	lastSpeed := "0.0x"
	var allLines []string

	pollDone := make(chan struct{})
	stopPolling := make(chan struct{})
	drain := func(offset int64) int64 {
		lines, newOffset := readNewLines(logPath, offset)
		for _, line := range lines {
			allLines = append(allLines, line)
			if d, ok := progress.ParseDuration(line); ok {
				totalDuration = d
			}
			if snap, ok := progress.ParseLine(line); ok {
				if snap.HasSpeed {
					lastSpeed = snap.Speed
				}
				if progressCb != nil {
					pct := progress.PercentComplete(snap.Time, totalDuration)
					var eta time.Duration
					if totalDuration > snap.Time {
						eta = totalDuration - snap.Time
					}
					progressCb(pct, snap.Time.Seconds(), totalDuration.Seconds(), snap.Speed, eta,
						snap.Frame, snap.FPS, snap.Q, snap.SizeKB, snap.Time.String(), snap.Bitrate)
				}
			}
		}
		return newOffset
	}

	go func() {
		defer close(pollDone)
		offset := int64(0)
		ticker := time.NewTicker(5 * time.Millisecond) // ~200Hz
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				offset = drain(offset)
			case <-stopPolling:
				drain(offset)
				return
			}
		}
	}()

	waitErr := cmd.Wait()
	close(stopPolling)
	<-pollDone

	elapsed := time.Since(start).Seconds()
	exitCode := 0
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	if lastSpeed == "0.0x" && totalDuration > 0 && elapsed > 0 {
		lastSpeed = fmt.Sprintf("%.0fx", totalDuration.Seconds()/elapsed)
	}

	return exitCode, elapsed, lastSpeed, allLines, nil
}

func jobLogPath(outDir string) string {
	n := atomic.AddInt64(&jobCounter, 1)
	return filepath.Join(outDir, fmt.Sprintf(".ffmpeg-%d-%d.log", os.Getpid(), n))
}

func readNewLines(path string, offset int64) ([]string, int64) {
	f, err := os.Open(path)
	if err != nil {
		return nil, offset
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Seek(offset, 0); err != nil {
		return nil, offset
	}

	var lines []string
	scanner := bufio.NewScanner(f)
	read := offset
	for scanner.Scan() {
		line := scanner.Text()
		read += int64(len(line)) + 1
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, read
}

func globJPEGs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jpg") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out
}

// renameByInterval renames FFmpeg's img-NNNNNN.jpg output into the
// 10-digit, frame-interval-spaced timestamp names a finished temp dir must
// contain.
func renameByInterval(dir string, frameIntervalS int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "img-") && strings.HasSuffix(e.Name(), ".jpg") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for i, name := range names {
		frameSecond := i * frameIntervalS
		newName := fmt.Sprintf("%010d.jpg", frameSecond)
		if err := os.Rename(filepath.Join(dir, name), filepath.Join(dir, newName)); err != nil {
			return err
		}
	}
	return nil
}

var codecErrorPatterns = []string{
	"no decoder for",
	"unknown decoder",
	"decoder not found",
	"could not find codec",
	"unsupported codec id",
	"hardware decoder not found",
	"hardware decoder unavailable",
	"hwaccel decoder not found",
	"hwaccel decoder unavailable",
	"unsupported codec",
	"codec not supported",
}

func detectCodecError(exitCode int, stderrLines []string) bool {
	text := strings.ToLower(strings.Join(stderrLines, " "))
	for _, pattern := range codecErrorPatterns {
		if strings.Contains(text, pattern) {
			return true
		}
	}
	switch exitCode {
	case -22, 234, 69:
		return true
	}
	return false
}
