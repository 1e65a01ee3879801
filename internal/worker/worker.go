// Package worker implements a single hardware lane that runs one Item
// Processor job at a time and reports its outcome back to the Pool.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/plexbif/plexbif/internal/ffmpegdriver"
	"github.com/plexbif/plexbif/internal/itemproc"
	"github.com/plexbif/plexbif/internal/library"
)

// Kind distinguishes a GPU lane from a CPU lane.
type Kind int

const (
	CPU Kind = iota
	GPU
)

// Lane identifies the hardware slot a worker owns.
type Lane struct {
	Kind       Kind
	GPUIndex   int
	Vendor     string
	DevicePath string
}

// State is the worker's externally observable lifecycle state.
type State int

const (
	Idle State = iota
	Running
	Done
)

// Progress is a point-in-time snapshot of the in-flight job, or the zero
// value when the worker is idle.
type Progress struct {
	Percent     int
	CurrentSecs float64
	TotalSecs   float64
	Speed       string
	ETA         time.Duration
	Frame       int
	FPS         float64
	Q           float64
	SizeKB      int
	TimeStr     string
	BitrateKbps float64
}

// Completion is what PollCompletion returns once a job has finished.
type Completion struct {
	Item    library.Item
	Outcome itemproc.Outcome
	Reason  itemproc.Reason
	Result  itemproc.Result
}

// Worker owns one lane and at most one live job.
type Worker struct {
	ID   string
	Lane Lane
	cfg  itemproc.Config

	mu         sync.Mutex
	state      State
	progress   Progress
	job        library.Item
	completion Completion
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	CompletedCount int
	FailedCount    int
}

// New constructs an idle worker for the given lane.
func New(id string, lane Lane, cfg itemproc.Config) *Worker {
	return &Worker{ID: id, Lane: lane, cfg: cfg, state: Idle}
}

// accel derives the ffmpegdriver.Accel this worker's lane should pass to
// the Processor. CPU workers always pass AccelNone.
func (w *Worker) accel() ffmpegdriver.Accel {
	if w.Lane.Kind == CPU {
		return ffmpegdriver.NoAccel
	}
	kind := ffmpegdriver.AccelNone
	switch w.Lane.Vendor {
	case "nvidia":
		kind = ffmpegdriver.AccelCUDA
	case "intel", "amd":
		kind = ffmpegdriver.AccelVAAPI
	case "d3d11va":
		kind = ffmpegdriver.AccelD3D11VA
	case "videotoolbox":
		kind = ffmpegdriver.AccelVideoToolbox
	}
	return ffmpegdriver.Accel{Kind: kind, DevicePath: w.Lane.DevicePath}
}

// Assign starts item running on a background goroutine. Returns an error
// if the worker is already busy.
func (w *Worker) Assign(ctx context.Context, item library.Item) error {
	w.mu.Lock()
	if w.state != Idle {
		w.mu.Unlock()
		return fmt.Errorf("worker %s is busy", w.ID)
	}
	jobCtx, cancel := context.WithCancel(ctx)
	w.state = Running
	w.job = item
	w.progress = Progress{}
	w.cancel = cancel
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(jobCtx, item)
	return nil
}

func (w *Worker) run(ctx context.Context, item library.Item) {
	defer w.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			w.finish(Completion{
				Item:    item,
				Outcome: itemproc.OutcomeFailed,
				Reason:  itemproc.ReasonWorkerCrash,
				Result:  itemproc.Result{Outcome: itemproc.OutcomeFailed, Reason: itemproc.ReasonWorkerCrash},
			})
		}
	}()

	progressCb := func(percent int, currentSecs, totalSecs float64, speed string, eta time.Duration,
		frame int, fps, q float64, sizeKB int, timeStr string, bitrateKbps float64) {
		w.mu.Lock()
		w.progress = Progress{
			Percent: percent, CurrentSecs: currentSecs, TotalSecs: totalSecs,
			Speed: speed, ETA: eta, Frame: frame, FPS: fps, Q: q,
			SizeKB: sizeKB, TimeStr: timeStr, BitrateKbps: bitrateKbps,
		}
		w.mu.Unlock()
	}

	result := itemproc.Process(ctx, w.cfg, item, w.accel(), progressCb)

	w.finish(Completion{
		Item:    item,
		Outcome: result.Outcome,
		Reason:  result.Reason,
		Result:  result,
	})
}

func (w *Worker) finish(c Completion) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.completion = c
	w.state = Done
}

// PollCompletion reports the worker's current state. When state is Done,
// the completion is consumed and the worker transitions back to Idle so it
// can be reassigned in the same scheduling pass.
func (w *Worker) PollCompletion() (State, Completion) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != Done {
		return w.state, Completion{}
	}
	c := w.completion
	w.state = Idle
	w.job = library.Item{}
	w.progress = Progress{}

	if c.Outcome == itemproc.OutcomeCodecUnsupported && w.Lane.Kind == CPU {
		// A CPU lane has nothing further to fall back to: this is terminal.
		c.Outcome = itemproc.OutcomeFailed
		c.Reason = itemproc.ReasonFFmpegError
		c.Result.Outcome = itemproc.OutcomeFailed
		c.Result.Reason = itemproc.ReasonFFmpegError
	}

	switch c.Outcome {
	case itemproc.OutcomeOK:
		w.CompletedCount++
	case itemproc.OutcomeFailed:
		w.FailedCount++
	}

	return Done, c
}

// CurrentProgress returns a consistent snapshot of the in-flight job's
// progress, or the zero value when idle.
func (w *Worker) CurrentProgress() Progress {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.progress
}

// CurrentJob returns the item the worker is presently running, or the zero
// Item when idle.
func (w *Worker) CurrentJob() library.Item {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.job
}

// Busy reports whether the worker currently owns a live job.
func (w *Worker) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state != Idle
}

// Shutdown signals the in-flight job to stop (if any) and waits up to
// timeout for it to finish before returning.
func (w *Worker) Shutdown(timeout time.Duration) {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
	}
}
