package exposure

import (
	"fmt"
	"slices"
	"strings"
)

// Kernel identifies one of the three compute stages. Each kernel maps to a fixed WGSL
// entry point name which is resolved once at setup.
type Kernel int

const (
	// KernelAccumulateLuminance reduces the color image into the state's luminance and importance sums.
	KernelAccumulateLuminance Kernel = iota

	// KernelComputeTargetEV smooths the EV history toward the metered target and derives the exposure factor.
	KernelComputeTargetEV

	// KernelApplyExposure scales every pixel by the current exposure factor.
	KernelApplyExposure
)

// Kernels lists every kernel in dispatch order.
var Kernels = []Kernel{
	KernelAccumulateLuminance,
	KernelComputeTargetEV,
	KernelApplyExposure,
}

var kernelEntryPoints = map[Kernel]string{
	KernelAccumulateLuminance: "AccumulateLuminance",
	KernelComputeTargetEV:     "ComputeTargetEV",
	KernelApplyExposure:       "ApplyExposure",
}

// EntryPoint returns the WGSL function name of the kernel.
func (k Kernel) EntryPoint() string {
	return kernelEntryPoints[k]
}

func (k Kernel) String() string {
	if ep, ok := kernelEntryPoints[k]; ok {
		return ep
	}
	return fmt.Sprintf("Kernel(%d)", int(k))
}

// ResolveEntryPoints checks that every kernel's entry point is among the entry points a
// compiled module declares. It fails on the first missing kernel.
//
// Parameters:
//   - available: the @compute entry point names declared by the module
//
// Returns:
//   - map[Kernel]string: each kernel mapped to its entry point
//   - error: an error wrapping ErrMissingEntryPoint naming every absent kernel
func ResolveEntryPoints(available []string) (map[Kernel]string, error) {
	resolved := make(map[Kernel]string, len(Kernels))
	var missing []string
	for _, k := range Kernels {
		ep := k.EntryPoint()
		if !slices.Contains(available, ep) {
			missing = append(missing, ep)
			continue
		}
		resolved[k] = ep
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingEntryPoint, strings.Join(missing, ", "))
	}
	return resolved, nil
}
