package ffmpegdriver

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// fakeFFmpeg writes an executable shell script standing in for the real
// ffmpeg binary: it always exits 0 and never writes any img-*.jpg files,
// modeling a clean exit that still produced zero frames.
func fakeFFmpeg(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake binary not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "fake-ffmpeg.sh")
	script := "#!/bin/sh\nexit 0\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("writing fake ffmpeg: %v", err)
	}
	return path
}

func TestBuildFilterGraphSDR(t *testing.T) {
	got := buildFilterGraph(5, false)
	want := "fps=fps=0.2:round=up,scale=w=320:h=240:force_original_aspect_ratio=decrease"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestBuildFilterGraphHDR(t *testing.T) {
	got := buildFilterGraph(10, true)
	want := "fps=fps=0.1:round=up," +
		"zscale=t=linear:npl=100,format=gbrpf32le,zscale=p=bt709,tonemap=tonemap=hable:desat=0,zscale=t=bt709:m=bt709:r=tv,format=yuv420p," +
		"scale=w=320:h=240:force_original_aspect_ratio=decrease"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestAccelArgs(t *testing.T) {
	cases := []struct {
		accel Accel
		want  []string
	}{
		{NoAccel, nil},
		{Accel{Kind: AccelCUDA}, []string{"-hwaccel", "cuda"}},
		{Accel{Kind: AccelD3D11VA}, []string{"-hwaccel", "d3d11va"}},
		{Accel{Kind: AccelVideoToolbox}, []string{"-hwaccel", "videotoolbox"}},
		{Accel{Kind: AccelVAAPI, DevicePath: "/dev/dri/renderD128"}, []string{"-hwaccel", "vaapi", "-vaapi_device", "/dev/dri/renderD128"}},
	}
	for _, c := range cases {
		got := accelArgs(c.accel)
		if len(got) != len(c.want) {
			t.Fatalf("accel %+v: got %v want %v", c.accel, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("accel %+v: got %v want %v", c.accel, got, c.want)
			}
		}
	}
}

func TestDetectCodecErrorByExitCode(t *testing.T) {
	for _, code := range []int{-22, 234, 69} {
		if !detectCodecError(code, nil) {
			t.Errorf("exit code %d should be detected as codec error", code)
		}
	}
	if detectCodecError(1, nil) {
		t.Error("generic exit code 1 should not be detected as codec error")
	}
}

func TestDetectCodecErrorByStderr(t *testing.T) {
	lines := []string{"some other output", "Error: Hardware decoder not found for stream 0"}
	if !detectCodecError(1, lines) {
		t.Error("expected stderr pattern match to detect codec error")
	}
}

func TestDetectCodecErrorNoMatch(t *testing.T) {
	lines := []string{"frame=  100 fps= 30 q=2.0 size=100kB time=00:00:04.00 speed=1.0x"}
	if detectCodecError(1, lines) {
		t.Error("normal progress output should not be detected as codec error")
	}
}

func TestRenameByInterval(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"img-000001.jpg", "img-000002.jpg", "img-000003.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("writing fixture: %v", err)
		}
	}

	if err := renameByInterval(dir, 5); err != nil {
		t.Fatalf("renameByInterval failed: %v", err)
	}

	for _, name := range []string{"0000000000.jpg", "0000000005.jpg", "0000000010.jpg"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected renamed file %s to exist: %v", name, err)
		}
	}
}

func TestGenerateCleanExitZeroImagesReturnsNilError(t *testing.T) {
	ffmpegPath := fakeFFmpeg(t)
	src := filepath.Join(t.TempDir(), "video.mkv")
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatalf("writing fixture source: %v", err)
	}
	outDir := t.TempDir()

	cfg := Config{FFmpegPath: ffmpegPath, FrameIntervalS: 5, ThumbnailQuality: 4}
	result, err := Generate(context.Background(), cfg, src, outDir, NoAccel, false, nil)
	if err != nil {
		t.Fatalf("expected nil error on clean exit with zero frames, got %v", err)
	}
	if result.Success || result.ImageCount != 0 {
		t.Fatalf("expected Success=false, ImageCount=0, got %+v", result)
	}
}

func TestGlobJPEGsIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("x"), 0644)
	_ = os.WriteFile(filepath.Join(dir, "b.log"), []byte("x"), 0644)
	got := globJPEGs(dir)
	if len(got) != 1 {
		t.Fatalf("expected 1 jpg, got %d: %v", len(got), got)
	}
}
