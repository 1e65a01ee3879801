// Package pool implements the Worker Pool: it holds GPU and CPU workers,
// pulls items from a main queue, owns a CPU-fallback queue for GPU
// codec-unsupported requeues, and drives a single-threaded scheduling loop
// that is the sole writer to the worker array and both queues.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/plexbif/plexbif/internal/itemproc"
	"github.com/plexbif/plexbif/internal/library"
	"github.com/plexbif/plexbif/internal/worker"
)

// GPUSelection names one accelerator the Pool may assign to a GPU worker.
type GPUSelection struct {
	Vendor     string
	DevicePath string
}

// Config configures pool construction.
type Config struct {
	GPUWorkerCount  int
	CPUWorkerCount  int
	SelectedGPUs    []GPUSelection
	ItemProc        itemproc.Config
	ShutdownTimeout time.Duration // default 30s, per the original worker_pool_timeout
	PollInterval    time.Duration // default 5ms
}

// WorkerSnapshot is one worker's progress as seen from outside the Pool.
type WorkerSnapshot struct {
	ID       string
	Kind     worker.Kind
	Vendor   string
	Busy     bool
	Progress worker.Progress
	ItemKey  string
	Item     library.Item
}

// Snapshot is a consistent point-in-time view of the Pool's aggregate
// state, read under a single lock.
type Snapshot struct {
	Completed int
	Failed    int
	Skipped   int
	Total     int
	Workers   []WorkerSnapshot
}

// ProgressFunc receives a Snapshot every scheduling pass.
type ProgressFunc func(Snapshot)

// ItemOutcomeFunc is invoked once per terminal item outcome (not per
// retry): success, skip, or failure. It never fires for an item that was
// requeued to the CPU-fallback queue.
type ItemOutcomeFunc func(item library.Item, result itemproc.Result)

// Pool owns all workers, both queues, and the aggregate progress state.
type Pool struct {
	workers []*worker.Worker

	mu            sync.Mutex
	mainQueue     []library.Item
	fallbackQueue []library.Item
	completed     int
	failed        int
	skipped       int
	total         int

	shutdownTimeout time.Duration
	pollInterval    time.Duration
}

// New constructs a Pool with GPU workers created first (round-robin across
// selectedGPUs), followed by CPU workers, matching the availability-scan
// preference for GPU lanes.
func New(cfg Config) *Pool {
	p := &Pool{
		shutdownTimeout: cfg.ShutdownTimeout,
		pollInterval:    cfg.PollInterval,
	}
	if p.shutdownTimeout <= 0 {
		p.shutdownTimeout = 30 * time.Second
	}
	if p.pollInterval <= 0 {
		p.pollInterval = 5 * time.Millisecond
	}

	for i := 0; i < cfg.GPUWorkerCount; i++ {
		lane := worker.Lane{Kind: worker.GPU}
		if len(cfg.SelectedGPUs) > 0 {
			gpu := cfg.SelectedGPUs[i%len(cfg.SelectedGPUs)]
			lane.GPUIndex = i % len(cfg.SelectedGPUs)
			lane.Vendor = gpu.Vendor
			lane.DevicePath = gpu.DevicePath
		}
		p.workers = append(p.workers, worker.New(gpuWorkerID(i), lane, cfg.ItemProc))
	}
	for i := 0; i < cfg.CPUWorkerCount; i++ {
		p.workers = append(p.workers, worker.New(cpuWorkerID(i), worker.Lane{Kind: worker.CPU}, cfg.ItemProc))
	}

	return p
}

func gpuWorkerID(i int) string { return "gpu-" + itoa(i) }
func cpuWorkerID(i int) string { return "cpu-" + itoa(i) }

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}

// Run drives the scheduling loop to completion: while there is work in
// either queue or a busy worker, it polls completions, requeues
// codec-unsupported GPU outcomes onto the fallback queue, and assigns idle
// workers new items (CPU workers prefer the fallback queue; GPU workers
// never read it). Run returns once both queues are empty and no worker is
// busy, or ctx is cancelled.
func (p *Pool) Run(ctx context.Context, items []library.Item, progressCb ProgressFunc, outcomeCb ItemOutcomeFunc) {
	p.mu.Lock()
	p.mainQueue = append([]library.Item(nil), items...)
	p.total = len(items)
	p.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		anyBusy := false

		for _, w := range p.workers {
			state, completion := w.PollCompletion()
			if state == worker.Done {
				p.handleCompletion(w, completion, outcomeCb)
			}
			if w.Busy() {
				anyBusy = true
			}
		}

		p.assignIdleWorkers(ctx)

		if progressCb != nil {
			progressCb(p.snapshot())
		}

		p.mu.Lock()
		workRemains := len(p.mainQueue) > 0 || len(p.fallbackQueue) > 0
		p.mu.Unlock()

		if !workRemains && !anyBusy {
			return
		}

		if anyBusy {
			time.Sleep(p.pollInterval)
		}
	}
}

func (p *Pool) handleCompletion(w *worker.Worker, c worker.Completion, outcomeCb ItemOutcomeFunc) {
	p.mu.Lock()
	switch c.Outcome {
	case itemproc.OutcomeOK:
		if c.Result.Skipped {
			p.skipped++
		} else {
			p.completed++
		}
	case itemproc.OutcomeFailed:
		p.failed++
	case itemproc.OutcomeCodecUnsupported:
		// Only a GPU worker can still be reporting this after
		// worker.PollCompletion's CPU conversion; requeue for CPU.
		p.fallbackQueue = append(p.fallbackQueue, c.Item)
	}
	p.mu.Unlock()

	if c.Outcome != itemproc.OutcomeCodecUnsupported && outcomeCb != nil {
		outcomeCb(c.Item, c.Result)
	}
}

func (p *Pool) assignIdleWorkers(ctx context.Context) {
	for _, w := range p.workers {
		if w.Busy() {
			continue
		}
		item, ok := p.nextItemFor(w.Lane.Kind)
		if !ok {
			continue
		}
		if err := w.Assign(ctx, item); err != nil {
			// Worker became busy between the check and the assign; put
			// the item back at the front of the queue it came from.
			p.requeueFront(w.Lane.Kind, item)
		}
	}
}

func (p *Pool) nextItemFor(kind worker.Kind) (library.Item, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if kind == worker.CPU && len(p.fallbackQueue) > 0 {
		item := p.fallbackQueue[0]
		p.fallbackQueue = p.fallbackQueue[1:]
		return item, true
	}
	if len(p.mainQueue) > 0 {
		item := p.mainQueue[0]
		p.mainQueue = p.mainQueue[1:]
		return item, true
	}
	return library.Item{}, false
}

func (p *Pool) requeueFront(kind worker.Kind, item library.Item) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if kind == worker.CPU {
		p.fallbackQueue = append([]library.Item{item}, p.fallbackQueue...)
		return
	}
	p.mainQueue = append([]library.Item{item}, p.mainQueue...)
}

func (p *Pool) snapshot() Snapshot {
	p.mu.Lock()
	s := Snapshot{Completed: p.completed, Failed: p.failed, Skipped: p.skipped, Total: p.total}
	p.mu.Unlock()

	for _, w := range p.workers {
		job := w.CurrentJob()
		s.Workers = append(s.Workers, WorkerSnapshot{
			ID:       w.ID,
			Kind:     w.Lane.Kind,
			Vendor:   w.Lane.Vendor,
			Busy:     w.Busy(),
			Progress: w.CurrentProgress(),
			ItemKey:  job.Key,
			Item:     job,
		})
	}
	return s
}

// Shutdown stops admitting new work, cancels every worker's in-flight job,
// and waits bounded for each to finish before returning. Each worker's shutdown runs on
// its own supervised goroutine so a panic in one lane's cleanup can't wedge
// the others or crash the process.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.mainQueue = nil
	p.fallbackQueue = nil
	p.mu.Unlock()

	g, _ := errgroup.WithContext(context.Background())
	for _, w := range p.workers {
		w := w
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("worker %s panicked during shutdown: %v", w.ID, r)
				}
			}()
			w.Shutdown(p.shutdownTimeout)
			return nil
		})
	}
	// Shutdown itself never fails the run; errors here are a last-resort
	// log signal, not a reason to abort.
	_ = g.Wait()
}

// Counts returns the current aggregate counters.
func (p *Pool) Counts() (completed, failed, skipped, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed, p.failed, p.skipped, p.total
}
