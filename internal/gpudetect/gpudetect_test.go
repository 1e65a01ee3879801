package gpudetect

import (
	"context"
	"testing"
)

func TestDetectDoesNotPanicWithoutHardware(t *testing.T) {
	// On a machine with no nvidia-smi and no /dev/dri, Detect should
	// simply return an empty (possibly nil) slice rather than erroring.
	accels := Detect(context.Background())
	_ = accels
}
