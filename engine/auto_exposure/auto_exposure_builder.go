package auto_exposure

import (
	"github.com/Carmen-Shannon/oxy-exposure/engine/exposure"
	"github.com/Carmen-Shannon/oxy-exposure/engine/renderer"
)

// AutoExposureBuilderOption is a functional option applied to the pass during NewAutoExposure.
type AutoExposureBuilderOption func(*autoExposure)

// WithSettings sets the initial controller settings. They are validated by NewAutoExposure.
//
// Parameters:
//   - s: the settings to start with
//
// Returns:
//   - AutoExposureBuilderOption: a function that applies the settings
func WithSettings(s exposure.Settings) AutoExposureBuilderOption {
	return func(a *autoExposure) {
		a.settings = s
	}
}

// WithBackend selects where the stages execute. Defaults to BackendTypeWGPU.
//
// Parameters:
//   - backendType: the backend to use
//
// Returns:
//   - AutoExposureBuilderOption: a function that applies the backend
func WithBackend(backendType BackendType) AutoExposureBuilderOption {
	return func(a *autoExposure) {
		a.backendType = backendType
	}
}

// WithRenderer sets the renderer the WGPU backend registers its pipelines and buffers on.
// The renderer must outlive the pass.
//
// Parameters:
//   - r: the renderer, headless or windowed
//
// Returns:
//   - AutoExposureBuilderOption: a function that applies the renderer
func WithRenderer(r renderer.Renderer) AutoExposureBuilderOption {
	return func(a *autoExposure) {
		a.r = r
	}
}

// WithReadback controls whether the corrected image is copied back into Frame.Color after
// each Render. Defaults to true. Disable it when the image is consumed on the GPU through
// ColorBindGroupProvider. The software backend always corrects in place.
//
// Parameters:
//   - enabled: true to copy the image back
//
// Returns:
//   - AutoExposureBuilderOption: a function that applies the readback flag
func WithReadback(enabled bool) AutoExposureBuilderOption {
	return func(a *autoExposure) {
		a.readback = enabled
	}
}

// WithStateReadback controls whether the 16 byte exposure state is read back after each
// Render on the WGPU backend. Defaults to true. Without it FrameStats carries the last
// observed state.
//
// Parameters:
//   - enabled: true to read the state back every frame
//
// Returns:
//   - AutoExposureBuilderOption: a function that applies the state readback flag
func WithStateReadback(enabled bool) AutoExposureBuilderOption {
	return func(a *autoExposure) {
		a.stateReadback = enabled
	}
}

// WithShaderValidation validates the kernel module with naga before creating pipelines.
//
// Parameters:
//   - enabled: true to validate
//
// Returns:
//   - AutoExposureBuilderOption: a function that applies the validation flag
func WithShaderValidation(enabled bool) AutoExposureBuilderOption {
	return func(a *autoExposure) {
		a.validateShader = enabled
	}
}

// WithKernelSource replaces the embedded WGSL kernel module. The module must declare the
// AccumulateLuminance, ComputeTargetEV and ApplyExposure entry points and annotate its bindings.
//
// Parameters:
//   - source: the WGSL source, before pre-processing
//
// Returns:
//   - AutoExposureBuilderOption: a function that applies the kernel source
func WithKernelSource(source string) AutoExposureBuilderOption {
	return func(a *autoExposure) {
		a.kernelSource = source
	}
}

// WithWorkers sets the worker pool size of the software backend.
// Defaults to one less than the number of CPUs, at least one.
//
// Parameters:
//   - n: the number of workers
//
// Returns:
//   - AutoExposureBuilderOption: a function that applies the worker count
func WithWorkers(n int) AutoExposureBuilderOption {
	return func(a *autoExposure) {
		if n > 0 {
			a.workers = n
		}
	}
}
