package auto_exposure

import (
	"time"

	"github.com/Carmen-Shannon/oxy-exposure/engine/exposure"
)

// StageTimings holds the wall-clock time spent in each phase of a Render call. On the WGPU
// backend the kernel stages measure command encoding and Readback includes waiting on the GPU.
type StageTimings struct {
	Upload     time.Duration
	Accumulate time.Duration
	Target     time.Duration
	Apply      time.Duration
	Readback   time.Duration
}

// Total returns the sum of all stages.
func (t StageTimings) Total() time.Duration {
	return t.Upload + t.Accumulate + t.Target + t.Apply + t.Readback
}

// Stage returns the timing recorded for a kernel.
func (t StageTimings) Stage(k exposure.Kernel) time.Duration {
	switch k {
	case exposure.KernelAccumulateLuminance:
		return t.Accumulate
	case exposure.KernelComputeTargetEV:
		return t.Target
	case exposure.KernelApplyExposure:
		return t.Apply
	}
	return 0
}

func (t *StageTimings) set(k exposure.Kernel, d time.Duration) {
	switch k {
	case exposure.KernelAccumulateLuminance:
		t.Accumulate = d
	case exposure.KernelComputeTargetEV:
		t.Target = d
	case exposure.KernelApplyExposure:
		t.Apply = d
	}
}

// FrameStats describes the outcome of one Render call.
type FrameStats struct {
	// Frame is the 1-based index of the rendered frame.
	Frame uint64

	// Width and Height are the resolution the frame was dispatched at.
	Width, Height int

	// WorkGroups is the dispatch grid of the per-pixel kernels.
	WorkGroups [3]uint32

	// State is the exposure state after the frame. On the WGPU backend without state readback
	// it is the last state that was observed.
	State exposure.GPUExposureState

	// AverageLuminance is the metered weighted log-average luminance of the frame, valid when Metered is true.
	AverageLuminance float32

	// Metered reports whether any pixel of the frame carried metering weight.
	Metered bool

	// TargetEV is the EV the controller moved toward. Equal to State.HistoryEV when nothing was metered.
	TargetEV float32

	Timings StageTimings
}

// EV returns the smoothed exposure value after the frame.
func (s FrameStats) EV() float32 {
	return s.State.HistoryEV
}

// Exposure returns the multiplicative factor applied to the frame.
func (s FrameStats) Exposure() float32 {
	return s.State.Exposure
}
