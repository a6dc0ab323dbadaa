// Package device resolves the compute device a run is placed on.
package device

import (
	"errors"
	"fmt"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

var (
	// ErrUnsupported is returned for accelerators this build cannot drive.
	ErrUnsupported = errors.New("device: accelerator not supported")
	// ErrUnknown is returned for names that are not devices at all.
	ErrUnknown = errors.New("device: unknown device")
)

// Device identifies where tensors live during training.
type Device struct {
	Kind string
}

// CPU is the host processor.
var CPU = Device{Kind: "cpu"}

// Parse resolves a device name. An empty name selects the CPU.
func Parse(name string) (Device, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if i := strings.IndexByte(n, ':'); i >= 0 {
		n = n[:i]
	}
	switch n {
	case "", "cpu":
		return CPU, nil
	case "cuda", "gpu", "mps", "xla", "tpu":
		return Device{}, fmt.Errorf("%w: %s", ErrUnsupported, name)
	default:
		return Device{}, fmt.Errorf("%w: %s", ErrUnknown, name)
	}
}

func (d Device) String() string {
	if d.Kind == "" {
		return CPU.Kind
	}
	return d.Kind
}

// Describe reports the processor behind the device.
func (d Device) Describe() string {
	brand := strings.TrimSpace(cpuid.CPU.BrandName)
	if brand == "" {
		brand = cpuid.CPU.VendorString
	}
	var simd []string
	for _, f := range []struct {
		id   cpuid.FeatureID
		name string
	}{
		{cpuid.AVX512F, "avx512f"},
		{cpuid.AVX2, "avx2"},
		{cpuid.FMA3, "fma3"},
		{cpuid.ASIMD, "asimd"},
	} {
		if cpuid.CPU.Supports(f.id) {
			simd = append(simd, f.name)
		}
	}
	if len(simd) == 0 {
		simd = append(simd, "scalar")
	}
	return fmt.Sprintf("%s (%s, %d cores, %s)", d, brand, cpuid.CPU.LogicalCores, strings.Join(simd, "+"))
}
