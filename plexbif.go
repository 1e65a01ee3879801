// Package plexbif generates Plex BIF preview-thumbnail sidecars for a Plex
// library: it resolves each item to a source video file and a bundle
// directory, drives FFmpeg to produce downscaled stills, and packs them
// into the BIF format Plex Media Server reads for the video-preview
// scrubber.
//
// Basic usage:
//
//	p, err := plexbif.New(
//	    plexbif.WithPlexConfig("/var/lib/plexmediaserver"),
//	    plexbif.WithWorkingTmp("/tmp/plexbif"),
//	    plexbif.WithCPUWorkers(4),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	summary, err := p.Run(ctx, client, []string{"Movies"}, nil)
package plexbif

import (
	"context"
	"fmt"
	"time"

	"github.com/plexbif/plexbif/internal/bundle"
	"github.com/plexbif/plexbif/internal/config"
	"github.com/plexbif/plexbif/internal/itemproc"
	"github.com/plexbif/plexbif/internal/library"
	"github.com/plexbif/plexbif/internal/pool"
	"github.com/plexbif/plexbif/internal/reporter"
	"github.com/plexbif/plexbif/internal/util"
	"github.com/plexbif/plexbif/internal/worker"
)

// Processor is the main entry point for BIF generation.
type Processor struct {
	config *config.Config
}

// Option configures the Processor.
type Option func(*config.Config)

// New creates a new Processor with the given options. PlexConfig and
// WorkingTmp are required; callers must supply them via WithPlexConfig and
// WithWorkingTmp or New returns a validation error.
func New(opts ...Option) (*Processor, error) {
	cfg := config.NewConfig("", "", "")

	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Processor{config: cfg}, nil
}

// WithPlexConfig sets the Plex config root the bundle directory tree is
// derived from.
func WithPlexConfig(path string) Option {
	return func(c *config.Config) { c.PlexConfig = path }
}

// WithWorkingTmp sets the root directory per-item temp dirs are created
// under.
func WithWorkingTmp(path string) Option {
	return func(c *config.Config) { c.WorkingTmp = path }
}

// WithFrameInterval sets the spacing, in seconds, between preview
// thumbnails. Must be >= 1.
func WithFrameInterval(seconds int) Option {
	return func(c *config.Config) { c.FrameIntervalSeconds = seconds }
}

// WithThumbnailQuality sets the FFmpeg -q:v value for the downscaled JPEGs
// (1 = best, 10 = worst).
func WithThumbnailQuality(quality int) Option {
	return func(c *config.Config) { c.ThumbnailQuality = quality }
}

// WithRegenerate forces existing BIF files to be removed and rebuilt.
func WithRegenerate() Option {
	return func(c *config.Config) { c.Regenerate = true }
}

// WithPathMap sets the Plex-sees/we-see path remap applied before resolving
// a reported source file on this host.
func WithPathMap(plexPrefix, localPrefix string) Option {
	return func(c *config.Config) {
		c.PlexPathMap = config.PathMap{PlexPrefix: plexPrefix, LocalPrefix: localPrefix}
	}
}

// WithGPUWorkers sets the number of GPU-lane workers and the accelerators
// they round-robin across.
func WithGPUWorkers(count int, gpus []config.GPUSelection) Option {
	return func(c *config.Config) {
		c.GPUWorkers = count
		c.SelectedGPUs = gpus
	}
}

// WithCPUWorkers sets the number of CPU-lane workers.
func WithCPUWorkers(count int) Option {
	return func(c *config.Config) { c.CPUWorkers = count }
}

// WithFFmpegPath overrides the ffmpeg binary invoked (default: "ffmpeg" on PATH).
func WithFFmpegPath(path string) Option {
	return func(c *config.Config) { c.FFmpegPath = path }
}

// WithWorkerPoolTimeout bounds how long graceful shutdown waits for each
// cancelled in-flight job to finish before giving up on it.
func WithWorkerPoolTimeout(d time.Duration) Option {
	return func(c *config.Config) { c.WorkerPoolTimeoutSecs = int(d.Seconds()) }
}

// WithLogDir sets the directory run logs are written to.
func WithLogDir(dir string) Option {
	return func(c *config.Config) { c.LogDir = dir }
}

// WithVerbose enables verbose reporting.
func WithVerbose() Option {
	return func(c *config.Config) { c.Verbose = true }
}

// Summary is the result of one Run: the final aggregate counts.
type Summary struct {
	Completed int
	Failed    int
	Skipped   int
	Total     int
	Duration  time.Duration
}

// Run sweeps stale temp dirs left by a crashed prior run, streams the
// library through client, and drives the Worker Pool to completion,
// reporting every lifecycle event to rep (a NullReporter is used if rep is
// nil).
func (p *Processor) Run(ctx context.Context, client library.PlexClient, sectionNames []string, rep Reporter) (Summary, error) {
	if rep == nil {
		rep = reporter.NullReporter{}
	}

	if removed, err := util.CleanupStaleTempDirs(p.config.WorkingTmp, config.StaleTempFileMaxAgeHours); err != nil {
		rep.Warning(fmt.Sprintf("stale temp-dir sweep failed: %v", err))
	} else if removed > 0 {
		rep.Verbose(fmt.Sprintf("removed %d stale temp dirs from %s", removed, p.config.WorkingTmp))
	}

	items, err := library.Iterate(ctx, client, sectionNames)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list library items: %w", err)
	}

	rep.Hardware(reporter.HardwareSummary{Hostname: util.GetSystemInfo().Hostname})
	rep.LibrarySummary(reporter.LibrarySummary{
		TotalItems: len(items),
		GPUWorkers: p.config.GPUWorkers,
		CPUWorkers: p.config.CPUWorkers,
	})

	selectedGPUs := make([]pool.GPUSelection, len(p.config.SelectedGPUs))
	for i, g := range p.config.SelectedGPUs {
		selectedGPUs[i] = pool.GPUSelection{Vendor: g.Vendor, DevicePath: g.DevicePath}
	}

	itemCfg := itemproc.Config{
		PlexConfig:        p.config.PlexConfig,
		WorkingTmp:        p.config.WorkingTmp,
		PathMap:           bundle.PathMap{PlexPrefix: p.config.PlexPathMap.PlexPrefix, LocalPrefix: p.config.PlexPathMap.LocalPrefix},
		Regenerate:        p.config.Regenerate,
		FrameIntervalS:    p.config.FrameIntervalSeconds,
		ThumbnailQuality:  p.config.ThumbnailQuality,
		FFmpegPath:        p.config.FFmpegPath,
	}

	pl := pool.New(pool.Config{
		GPUWorkerCount:  p.config.GPUWorkers,
		CPUWorkerCount:  p.config.CPUWorkers,
		SelectedGPUs:    selectedGPUs,
		ItemProc:        itemCfg,
		ShutdownTimeout: time.Duration(p.config.WorkerPoolTimeoutSecs) * time.Second,
	})

	started := make(map[string]bool)
	start := time.Now()

	pl.Run(ctx, items,
		func(snap pool.Snapshot) {
			for _, ws := range snap.Workers {
				if !ws.Busy {
					delete(started, ws.ID)
					continue
				}
				if !started[ws.ID] {
					started[ws.ID] = true
					accel := ws.Kind == worker.GPU
					rep.ItemStarted(reporter.ItemStartInfo{
						Title:      ws.Item.Title,
						Kind:       string(ws.Item.Kind),
						WorkerID:   ws.ID,
						UsedAccel:  accel,
						AccelLabel: ws.Vendor,
					})
				}
				rep.ItemProgress(reporter.ItemProgressInfo{
					Title:   ws.Item.Title,
					Percent: ws.Progress.Percent,
					FPS:     ws.Progress.FPS,
					Speed:   ws.Progress.Speed,
					ETA:     ws.Progress.ETA,
					Frame:   ws.Progress.Frame,
				})
			}
		},
		func(item library.Item, result itemproc.Result) {
			outcome := "ok"
			switch result.Outcome {
			case itemproc.OutcomeFailed:
				outcome = "failed"
			}
			if result.Skipped {
				outcome = "skipped"
			}
			rep.ItemComplete(reporter.ItemOutcome{
				Title:         item.Title,
				Kind:          string(item.Kind),
				Outcome:       outcome,
				Reason:        string(result.Reason),
				HWUsed:        result.HWUsed,
				ElapsedSecs:   result.ElapsedSecs,
				ReportedSpeed: result.ReportedSpeed,
			})
			if result.Warning != "" {
				rep.Warning(result.Warning)
			}
		},
	)

	pl.Shutdown()

	completed, failed, skipped, total := pl.Counts()
	summary := Summary{Completed: completed, Failed: failed, Skipped: skipped, Total: total, Duration: time.Since(start)}
	rep.PoolSummary(reporter.PoolSummary{
		Completed: summary.Completed,
		Failed:    summary.Failed,
		Skipped:   summary.Skipped,
		Total:     summary.Total,
		Duration:  summary.Duration,
	})
	return summary, nil
}

// RunWithEventHandler is like Run but delivers events through handler as
// JSON-serializable Events instead of the Reporter interface, for callers
// that want a flat event stream (e.g. piping to an external process) rather
// than implementing Reporter directly. Item progress, item completion, pool
// summary, warning and error events are delivered; hardware, library
// summary, item-started and verbose events are not.
func (p *Processor) RunWithEventHandler(ctx context.Context, client library.PlexClient, sectionNames []string, handler EventHandler) (Summary, error) {
	var rep Reporter = reporter.NullReporter{}
	if handler != nil {
		rep = newEventReporter(handler)
	}
	return p.Run(ctx, client, sectionNames, rep)
}

// eventReporter adapts EventHandler to the Reporter interface.
type eventReporter struct {
	handler EventHandler
}

func newEventReporter(handler EventHandler) *eventReporter {
	return &eventReporter{handler: handler}
}

func (r *eventReporter) Hardware(reporter.HardwareSummary)           {}
func (r *eventReporter) LibrarySummary(reporter.LibrarySummary)      {}
func (r *eventReporter) ItemStarted(reporter.ItemStartInfo)          {}

func (r *eventReporter) ItemProgress(p reporter.ItemProgressInfo) {
	_ = r.handler(ItemProgressEvent{
		BaseEvent:  BaseEvent{EventType: EventTypeItemProgress, Time: NewTimestamp()},
		Title:      p.Title,
		Percent:    p.Percent,
		FPS:        p.FPS,
		Speed:      p.Speed,
		ETASeconds: int64(p.ETA.Seconds()),
		Frame:      p.Frame,
	})
}

func (r *eventReporter) ItemComplete(o reporter.ItemOutcome) {
	_ = r.handler(ItemCompleteEvent{
		BaseEvent:     BaseEvent{EventType: EventTypeItemComplete, Time: NewTimestamp()},
		Title:         o.Title,
		Kind:          o.Kind,
		Outcome:       o.Outcome,
		Reason:        o.Reason,
		HWUsed:        o.HWUsed,
		ElapsedSecs:   o.ElapsedSecs,
		ReportedSpeed: o.ReportedSpeed,
	})
}

func (r *eventReporter) PoolSummary(s reporter.PoolSummary) {
	_ = r.handler(PoolSummaryEvent{
		BaseEvent:      BaseEvent{EventType: EventTypePoolSummary, Time: NewTimestamp()},
		Completed:      s.Completed,
		Failed:         s.Failed,
		Skipped:        s.Skipped,
		Total:          s.Total,
		DurationSecond: int64(s.Duration.Seconds()),
	})
}

func (r *eventReporter) Warning(message string) {
	_ = r.handler(WarningEvent{
		BaseEvent: BaseEvent{EventType: EventTypeWarning, Time: NewTimestamp()},
		Message:   message,
	})
}

func (r *eventReporter) Error(e reporter.ReporterError) {
	_ = r.handler(ErrorEvent{
		BaseEvent:  BaseEvent{EventType: EventTypeError, Time: NewTimestamp()},
		Title:      e.Title,
		Message:    e.Message,
		Context:    e.Context,
		Suggestion: e.Suggestion,
	})
}

func (r *eventReporter) Verbose(string) {}
