package config

import "testing"

func TestNewConfigDefaults(t *testing.T) {
	c := NewConfig("/plex", "/tmp/work", "/tmp/logs")
	if err := c.Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
	if c.FrameIntervalSeconds != DefaultFrameIntervalSeconds {
		t.Errorf("FrameIntervalSeconds = %d, want %d", c.FrameIntervalSeconds, DefaultFrameIntervalSeconds)
	}
	if c.CPUWorkers != 1 || c.GPUWorkers != 0 {
		t.Errorf("default workers = gpu:%d cpu:%d, want gpu:0 cpu:1", c.GPUWorkers, c.CPUWorkers)
	}
}

func TestValidateRejectsBadFields(t *testing.T) {
	base := func() *Config { return NewConfig("/plex", "/tmp/work", "/tmp/logs") }

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"interval zero", func(c *Config) { c.FrameIntervalSeconds = 0 }},
		{"quality too low", func(c *Config) { c.ThumbnailQuality = 0 }},
		{"quality too high", func(c *Config) { c.ThumbnailQuality = 11 }},
		{"empty plex_config", func(c *Config) { c.PlexConfig = "" }},
		{"empty working_tmp", func(c *Config) { c.WorkingTmp = "" }},
		{"negative gpu workers", func(c *Config) { c.GPUWorkers = -1 }},
		{"negative cpu workers", func(c *Config) { c.CPUWorkers = -1 }},
		{"no workers at all", func(c *Config) { c.GPUWorkers = 0; c.CPUWorkers = 0 }},
		{"gpu workers without selection", func(c *Config) { c.GPUWorkers = 1; c.CPUWorkers = 0 }},
		{"empty ffmpeg path", func(c *Config) { c.FFmpegPath = "" }},
		{"zero shutdown timeout", func(c *Config) { c.WorkerPoolTimeoutSecs = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Errorf("expected validation error for %s", tt.name)
			}
		})
	}
}

func TestParseGPUSelectionAll(t *testing.T) {
	detected := []GPUSelection{{Vendor: "nvidia"}, {Vendor: "intel"}}
	got, err := ParseGPUSelection("all", detected)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d selections, want 2", len(got))
	}
}

func TestParseGPUSelectionIndices(t *testing.T) {
	detected := []GPUSelection{{Vendor: "nvidia"}, {Vendor: "intel"}, {Vendor: "amd"}}
	got, err := ParseGPUSelection("0,2", detected)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Vendor != "nvidia" || got[1].Vendor != "amd" {
		t.Fatalf("unexpected selection: %+v", got)
	}
}

func TestParseGPUSelectionOutOfRange(t *testing.T) {
	detected := []GPUSelection{{Vendor: "nvidia"}}
	if _, err := ParseGPUSelection("5", detected); err == nil {
		t.Error("expected error for out-of-range index")
	}
}

func TestParseGPUSelectionEmptyDefaultsToAll(t *testing.T) {
	detected := []GPUSelection{{Vendor: "nvidia"}}
	got, err := ParseGPUSelection("", detected)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d, want 1", len(got))
	}
}
