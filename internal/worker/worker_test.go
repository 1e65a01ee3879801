package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/plexbif/plexbif/internal/itemproc"
	"github.com/plexbif/plexbif/internal/library"
)

func testConfig(t *testing.T) itemproc.Config {
	t.Helper()
	return itemproc.Config{
		PlexConfig:       t.TempDir(),
		WorkingTmp:       t.TempDir(),
		FrameIntervalS:   5,
		ThumbnailQuality: 4,
		FFmpegPath:       "ffmpeg-does-not-exist-on-this-machine",
	}
}

func TestAssignRejectedWhenBusy(t *testing.T) {
	w := New("gpu-0", Lane{Kind: GPU}, testConfig(t))
	src := filepath.Join(t.TempDir(), "video.mkv")
	_ = os.WriteFile(src, []byte("x"), 0644)
	item := library.Item{BundleHash: "3333333333333333333333333333333333333c", SourceFile: src}

	if err := w.Assign(context.Background(), item); err != nil {
		t.Fatalf("first assign should succeed: %v", err)
	}
	if err := w.Assign(context.Background(), item); err == nil {
		t.Fatal("second assign while busy should be rejected")
	}
	w.Shutdown(2 * time.Second)
}

func TestPollCompletionReturnsFailedAndGoesIdle(t *testing.T) {
	w := New("cpu-0", Lane{Kind: CPU}, testConfig(t))
	src := filepath.Join(t.TempDir(), "video.mkv")
	_ = os.WriteFile(src, []byte("x"), 0644)
	item := library.Item{BundleHash: "4444444444444444444444444444444444444d", SourceFile: src}

	if err := w.Assign(context.Background(), item); err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	var state State
	var completion Completion
	for time.Now().Before(deadline) {
		state, completion = w.PollCompletion()
		if state == Done {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if state != Done {
		t.Fatal("expected job to complete within deadline")
	}
	if completion.Outcome != itemproc.OutcomeFailed {
		t.Fatalf("expected failed outcome (ffmpeg binary absent), got %+v", completion)
	}
	if w.Busy() {
		t.Fatal("worker should be idle after completion consumed")
	}
	if w.FailedCount != 1 {
		t.Fatalf("expected FailedCount=1, got %d", w.FailedCount)
	}
}

func TestCPUWorkerTreatsCodecUnsupportedAsFailed(t *testing.T) {
	w := New("cpu-0", Lane{Kind: CPU}, testConfig(t))
	w.completion = Completion{Outcome: itemproc.OutcomeCodecUnsupported}
	w.state = Done

	state, c := w.PollCompletion()
	if state != Done {
		t.Fatal("expected Done")
	}
	if c.Outcome != itemproc.OutcomeFailed {
		t.Fatalf("expected CPU codec-unsupported to convert to failed, got %v", c.Outcome)
	}
	if w.FailedCount != 1 {
		t.Fatalf("expected FailedCount=1, got %d", w.FailedCount)
	}
}

func TestGPUWorkerKeepsCodecUnsupportedForRequeue(t *testing.T) {
	w := New("gpu-0", Lane{Kind: GPU}, testConfig(t))
	w.completion = Completion{Outcome: itemproc.OutcomeCodecUnsupported, Item: library.Item{Key: "x"}}
	w.state = Done

	_, c := w.PollCompletion()
	if c.Outcome != itemproc.OutcomeCodecUnsupported {
		t.Fatalf("expected GPU codec-unsupported preserved for requeue, got %v", c.Outcome)
	}
	if w.FailedCount != 0 {
		t.Fatalf("expected GPU worker to not count codec-unsupported as failed, got %d", w.FailedCount)
	}
}
