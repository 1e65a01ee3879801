package reporter

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/plexbif/plexbif/internal/util"
)

// LogReporter writes BIF-generation events to a log file as timestamped
// plain-text lines.
type LogReporter struct {
	w                  io.Writer
	mu                 sync.Mutex
	lastProgressBucket map[string]int // per-item 5% progress bucket
}

// NewLogReporter creates a new log reporter that writes to the given writer.
func NewLogReporter(w io.Writer) *LogReporter {
	return &LogReporter{
		w:                  w,
		lastProgressBucket: make(map[string]int),
	}
}

func (r *LogReporter) log(level, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintf(r.w, "%s [%s] %s\n", timestamp, level, msg)
}

func (r *LogReporter) Hardware(summary HardwareSummary) {
	r.log("INFO", "=== HARDWARE ===")
	r.log("INFO", "Hostname: %s", summary.Hostname)
}

func (r *LogReporter) LibrarySummary(summary LibrarySummary) {
	r.log("INFO", "=== LIBRARY === items=%d gpu_workers=%d cpu_workers=%d",
		summary.TotalItems, summary.GPUWorkers, summary.CPUWorkers)
}

func (r *LogReporter) ItemStarted(info ItemStartInfo) {
	accel := "cpu"
	if info.UsedAccel {
		accel = info.AccelLabel
	}
	r.mu.Lock()
	r.lastProgressBucket[info.Title] = -1
	r.mu.Unlock()
	r.log("INFO", "Started %q on %s (%s)", info.Title, info.WorkerID, accel)
}

func (r *LogReporter) ItemProgress(progress ItemProgressInfo) {
	bucket := progress.Percent / 5
	r.mu.Lock()
	last, ok := r.lastProgressBucket[progress.Title]
	if !ok {
		last = -1
	}
	if bucket > last && bucket <= 20 {
		r.lastProgressBucket[progress.Title] = bucket
		r.mu.Unlock()
		r.log("INFO", "%q progress: %d%% (speed %s, fps %.1f, eta %s)",
			progress.Title, progress.Percent, progress.Speed, progress.FPS,
			util.FormatDurationFromSecs(int64(progress.ETA.Seconds())))
		return
	}
	r.mu.Unlock()
}

func (r *LogReporter) ItemComplete(outcome ItemOutcome) {
	r.mu.Lock()
	delete(r.lastProgressBucket, outcome.Title)
	r.mu.Unlock()

	switch outcome.Outcome {
	case "ok":
		r.log("INFO", "%q done (hw=%v, %.1fs, speed %s)", outcome.Title, outcome.HWUsed, outcome.ElapsedSecs, outcome.ReportedSpeed)
	case "skipped":
		r.log("INFO", "%q skipped (already generated)", outcome.Title)
	case "failed":
		r.log("ERROR", "%q failed (%s)", outcome.Title, outcome.Reason)
	}
}

func (r *LogReporter) PoolSummary(summary PoolSummary) {
	r.log("INFO", "=== SUMMARY === completed=%d failed=%d skipped=%d total=%d time=%s",
		summary.Completed, summary.Failed, summary.Skipped, summary.Total,
		util.FormatDurationFromSecs(int64(summary.Duration.Seconds())))
}

func (r *LogReporter) Warning(message string) {
	r.log("WARN", "%s", message)
}

func (r *LogReporter) Error(err ReporterError) {
	r.log("ERROR", "%s: %s", err.Title, err.Message)
	if err.Context != "" {
		r.log("ERROR", "  Context: %s", err.Context)
	}
	if err.Suggestion != "" {
		r.log("ERROR", "  Suggestion: %s", err.Suggestion)
	}
}

func (r *LogReporter) Verbose(message string) {
	r.log("DEBUG", "%s", message)
}
