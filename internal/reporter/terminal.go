package reporter

import (
	"fmt"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/plexbif/plexbif/internal/util"
)

// TerminalReporter outputs human-friendly text to the terminal, with a
// live progress bar for the item currently being processed.
type TerminalReporter struct {
	mu         sync.Mutex
	progress   *progressbar.ProgressBar
	maxPercent int
	verbose    bool
	cyan       *color.Color
	green      *color.Color
	yellow     *color.Color
	red        *color.Color
	magenta    *color.Color
	bold       *color.Color
	dim        *color.Color
}

// NewTerminalReporter creates a new terminal reporter with verbose mode disabled.
func NewTerminalReporter() *TerminalReporter {
	return NewTerminalReporterVerbose(false)
}

// NewTerminalReporterVerbose creates a new terminal reporter with configurable verbose mode.
func NewTerminalReporterVerbose(verbose bool) *TerminalReporter {
	return &TerminalReporter{
		verbose: verbose,
		cyan:    color.New(color.FgCyan, color.Bold),
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow, color.Bold),
		red:     color.New(color.FgRed, color.Bold),
		magenta: color.New(color.FgMagenta),
		bold:    color.New(color.Bold),
		dim:     color.New(color.Faint),
	}
}

const labelWidth = 14

func (r *TerminalReporter) printLabel(label, value string) {
	paddedLabel := fmt.Sprintf("%-*s", labelWidth, label)
	fmt.Printf("  %s %s\n", r.bold.Sprint(paddedLabel), value)
}

func (r *TerminalReporter) Hardware(summary HardwareSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("HARDWARE")
	r.printLabel("Hostname:", summary.Hostname)
}

func (r *TerminalReporter) LibrarySummary(summary LibrarySummary) {
	fmt.Println()
	_, _ = r.cyan.Println("LIBRARY")
	r.printLabel("Items:", fmt.Sprintf("%d", summary.TotalItems))
	r.printLabel("GPU workers:", fmt.Sprintf("%d", summary.GPUWorkers))
	r.printLabel("CPU workers:", fmt.Sprintf("%d", summary.CPUWorkers))
}

func (r *TerminalReporter) finishProgress() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
	r.maxPercent = 0
}

func (r *TerminalReporter) ItemStarted(info ItemStartInfo) {
	r.finishProgress()

	fmt.Println()
	accel := "cpu"
	if info.UsedAccel {
		accel = info.AccelLabel
	}
	fmt.Printf("  %s %s [%s, %s]\n", r.magenta.Sprint("›"), r.bold.Sprint(info.Title), info.WorkerID, accel)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = progressbar.NewOptions64(
		100,
		progressbar.OptionSetDescription(""),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (r *TerminalReporter) ItemProgress(progress ItemProgressInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.progress == nil {
		return
	}

	clamped := progress.Percent
	if clamped > 100 {
		clamped = 100
	}
	if clamped < 0 {
		clamped = 0
	}

	if clamped >= r.maxPercent {
		r.maxPercent = clamped
		_ = r.progress.Set64(int64(clamped))
	}

	desc := fmt.Sprintf("speed %s, fps %.1f, eta %s",
		progress.Speed, progress.FPS, util.FormatDurationFromSecs(int64(progress.ETA.Seconds())))
	r.progress.Describe(desc)
}

func (r *TerminalReporter) ItemComplete(outcome ItemOutcome) {
	r.finishProgress()

	switch outcome.Outcome {
	case "ok":
		hw := ""
		if outcome.HWUsed {
			hw = " (hw)"
		}
		r.printLabel(outcome.Title+":", fmt.Sprintf("%s done%s in %s, speed %s",
			r.green.Sprint("✓"), hw, util.FormatDurationFromSecs(int64(outcome.ElapsedSecs)), outcome.ReportedSpeed))
	case "skipped":
		r.printLabel(outcome.Title+":", r.dim.Sprint("skipped (already generated)"))
	case "failed":
		r.printLabel(outcome.Title+":", fmt.Sprintf("%s failed (%s)", r.red.Sprint("✗"), outcome.Reason))
	}
}

func (r *TerminalReporter) PoolSummary(summary PoolSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("SUMMARY")
	r.printLabel("Completed:", r.green.Sprintf("%d", summary.Completed))
	r.printLabel("Failed:", r.red.Sprintf("%d", summary.Failed))
	r.printLabel("Skipped:", fmt.Sprintf("%d", summary.Skipped))
	r.printLabel("Total:", fmt.Sprintf("%d", summary.Total))
	r.printLabel("Time:", util.FormatDurationFromSecs(int64(summary.Duration.Seconds())))
}

func (r *TerminalReporter) Warning(message string) {
	fmt.Println()
	_, _ = r.yellow.Printf("WARN: %s\n", message)
}

func (r *TerminalReporter) Error(err ReporterError) {
	_, _ = fmt.Fprintln(os.Stderr)
	_, _ = r.red.Fprintf(os.Stderr, "ERROR %s\n", err.Title)
	_, _ = fmt.Fprintf(os.Stderr, "  %s\n", err.Message)
	if err.Context != "" {
		_, _ = fmt.Fprintf(os.Stderr, "  Context: %s\n", err.Context)
	}
	if err.Suggestion != "" {
		_, _ = fmt.Fprintf(os.Stderr, "  Suggestion: %s\n", err.Suggestion)
	}
}

func (r *TerminalReporter) Verbose(message string) {
	if !r.verbose {
		return
	}
	fmt.Printf("  %s %s\n", r.dim.Sprint("›"), r.dim.Sprint(message))
}
