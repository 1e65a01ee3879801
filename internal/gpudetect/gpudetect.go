// Package gpudetect is a minimal stand-in for the GPU-discovery
// collaborator: out of scope for the core (spec's Pool only ever consumes
// an opaque selected-GPU list), but wired here so the CLI has something
// real to call when the user asks for GPU workers (--gpu-workers > 0).
package gpudetect

import (
	"context"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Accelerator is one usable hardware lane the detector found.
type Accelerator struct {
	Vendor     string // "nvidia", "intel", "amd"
	Index      int
	DevicePath string
}

// Detect probes for NVIDIA GPUs via nvidia-smi and VAAPI render nodes under
// /dev/dri, best-effort. Any probe that fails to run (binary missing,
// no permission) is treated as "no GPUs of that kind", not an error.
func Detect(ctx context.Context) []Accelerator {
	var found []Accelerator
	found = append(found, detectNvidia(ctx)...)
	found = append(found, detectVAAPI()...)
	return found
}

func detectNvidia(ctx context.Context) []Accelerator {
	out, err := exec.CommandContext(ctx, "nvidia-smi", "--query-gpu=index", "--format=csv,noheader").Output()
	if err != nil {
		return nil
	}
	var accels []Accelerator
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx, err := strconv.Atoi(line)
		if err != nil {
			continue
		}
		accels = append(accels, Accelerator{Vendor: "nvidia", Index: idx})
	}
	return accels
}

func detectVAAPI() []Accelerator {
	matches, err := filepath.Glob("/dev/dri/renderD*")
	if err != nil {
		return nil
	}
	var accels []Accelerator
	for i, path := range matches {
		accels = append(accels, Accelerator{Vendor: "intel", Index: i, DevicePath: path})
	}
	return accels
}
