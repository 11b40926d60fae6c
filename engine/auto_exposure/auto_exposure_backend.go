package auto_exposure

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-exposure/engine/exposure"
	"github.com/Carmen-Shannon/oxy-exposure/engine/renderer/bind_group_provider"
)

// BackendType selects where the three exposure stages execute.
type BackendType int

const (
	// BackendTypeWGPU runs the stages as WGSL compute kernels through the renderer.
	BackendTypeWGPU BackendType = iota

	// BackendTypeSoftware runs the stages on the CPU across a worker pool.
	BackendTypeSoftware
)

func (b BackendType) String() string {
	switch b {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeSoftware:
		return "software"
	}
	return fmt.Sprintf("BackendType(%d)", int(b))
}

// ParseBackendType resolves a backend from its name as printed by String.
//
// Parameters:
//   - name: "wgpu" or "software" (case-insensitive)
//
// Returns:
//   - BackendType: the matching backend
//   - error: an error if the name is unknown
func ParseBackendType(name string) (BackendType, error) {
	switch strings.ToLower(name) {
	case "wgpu", "gpu":
		return BackendTypeWGPU, nil
	case "software", "cpu":
		return BackendTypeSoftware, nil
	}
	return 0, fmt.Errorf("unknown backend %q", name)
}

// autoExposureBackend executes one frame of the exposure stages. Calls arrive in the order
// BeginFrame, Dispatch for every kernel in exposure.Kernels order, then EndFrame, and are
// serialized by the owning autoExposure.
type autoExposureBackend interface {
	// WriteSettings stages a validated settings block for every following frame.
	WriteSettings(s exposure.Settings) error

	// BeginFrame uploads the frame parameters, color image and importance mask.
	//
	// Parameters:
	//   - frame: the validated frame
	//
	// Returns:
	//   - error: an error wrapping exposure.ErrResourceAllocation if buffers could not be sized
	BeginFrame(frame Frame) error

	// Dispatch runs one kernel over the current frame. A kernel observes every write made
	// by the kernels dispatched before it.
	//
	// Parameters:
	//   - k: the kernel to run
	//
	// Returns:
	//   - error: an error if the kernel could not be dispatched
	Dispatch(k exposure.Kernel) error

	// EndFrame finishes the frame. When readback is set the corrected image is copied into
	// frame.Color.
	//
	// Parameters:
	//   - frame: the frame passed to BeginFrame
	//   - readback: whether the corrected image must reach the host
	//
	// Returns:
	//   - frameResult: the metering and state observed for the frame
	//   - error: an error if submission or readback failed
	EndFrame(frame Frame, readback bool) (frameResult, error)

	// State returns the last observed exposure state.
	State() exposure.GPUExposureState

	// ColorBindGroupProvider returns the provider holding the color buffer, nil when the
	// backend keeps no GPU resources.
	ColorBindGroupProvider() bind_group_provider.BindGroupProvider

	// Release frees every resource the backend holds.
	Release()
}

// frameResult is what a backend observed while running one frame.
type frameResult struct {
	state    exposure.GPUExposureState
	metered  exposure.GPUExposureState // accumulators as they stood before ComputeTargetEV reset them
	observed bool                      // false when nothing was read back this frame
}
