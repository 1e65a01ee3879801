package pool

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/plexbif/plexbif/internal/itemproc"
	"github.com/plexbif/plexbif/internal/library"
	"github.com/plexbif/plexbif/internal/worker"
)

func testItemProcConfig(t *testing.T) itemproc.Config {
	t.Helper()
	return itemproc.Config{
		PlexConfig:       t.TempDir(),
		WorkingTmp:       t.TempDir(),
		FrameIntervalS:   5,
		ThumbnailQuality: 4,
		FFmpegPath:       "ffmpeg-does-not-exist-on-this-machine",
	}
}

func makeItem(t *testing.T, hash string) library.Item {
	t.Helper()
	src := filepath.Join(t.TempDir(), "video.mkv")
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatalf("writing fixture source: %v", err)
	}
	return library.Item{BundleHash: hash, SourceFile: src}
}

func TestRunProcessesAllItemsAndTerminates(t *testing.T) {
	cfg := Config{
		GPUWorkerCount: 0,
		CPUWorkerCount: 2,
		ItemProc:       testItemProcConfig(t),
		PollInterval:   time.Millisecond,
	}
	p := New(cfg)

	items := []library.Item{
		makeItem(t, "5555555555555555555555555555555555555e"),
		makeItem(t, "6666666666666666666666666666666666666f"),
		makeItem(t, "7777777777777777777777777777777777777a"),
	}

	var outcomes int
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		p.Run(ctx, items, nil, func(item library.Item, result itemproc.Result) {
			outcomes++
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(9 * time.Second):
		t.Fatal("Run did not terminate")
	}

	completed, failed, _, total := p.Counts()
	if total != 3 {
		t.Fatalf("expected total=3, got %d", total)
	}
	if completed+failed != 3 {
		t.Fatalf("expected completed+failed=3, got completed=%d failed=%d", completed, failed)
	}
	if outcomes != 3 {
		t.Fatalf("expected 3 outcome callbacks, got %d", outcomes)
	}
}

func TestGPUWorkersCreatedBeforeCPU(t *testing.T) {
	cfg := Config{
		GPUWorkerCount: 2,
		CPUWorkerCount: 1,
		SelectedGPUs:   []GPUSelection{{Vendor: "nvidia", DevicePath: "/dev/nvidia0"}},
		ItemProc:       testItemProcConfig(t),
	}
	p := New(cfg)

	if len(p.workers) != 3 {
		t.Fatalf("expected 3 workers, got %d", len(p.workers))
	}
	if p.workers[0].Lane.Kind != worker.GPU || p.workers[1].Lane.Kind != worker.GPU {
		t.Fatal("expected first two workers to be GPU lanes")
	}
	if p.workers[2].Lane.Kind != worker.CPU {
		t.Fatal("expected last worker to be a CPU lane")
	}
}
