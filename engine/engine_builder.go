package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-exposure/engine/auto_exposure"
	"github.com/Carmen-Shannon/oxy-exposure/engine/renderer"
	"github.com/Carmen-Shannon/oxy-exposure/engine/source"
	"github.com/Carmen-Shannon/oxy-exposure/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithWindow sets the window exposed frames are presented to. Without one the engine runs
// headless.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer sets the renderer used to present to the window. It should be the renderer the
// auto exposure pass dispatches through, so the color buffer can be shared.
//
// Parameters:
//   - r: the renderer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithAutoExposure sets the auto exposure pass run on every frame.
//
// Parameters:
//   - ae: the pass
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithAutoExposure(ae auto_exposure.AutoExposure) EngineBuilderOption {
	return func(e *engine) {
		e.exposure = ae
	}
}

// WithSource sets the frame source the loop pulls scene images from.
//
// Parameters:
//   - s: the frame source
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSource(s source.FrameSource) EngineBuilderOption {
	return func(e *engine) {
		e.source = s
	}
}

// WithFixedDeltaTime replaces wall-clock frame times with a constant, making runs reproducible.
//
// Parameters:
//   - dt: seconds per frame, values <= 0 restore wall-clock timing
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFixedDeltaTime(dt float32) EngineBuilderOption {
	return func(e *engine) {
		e.fixedDelta = max(dt, 0)
	}
}

// WithMaxFrames stops the loop after a number of frames.
//
// Parameters:
//   - n: frames to render, 0 = unlimited
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithMaxFrames(n int) EngineBuilderOption {
	return func(e *engine) {
		e.maxFrames = max(n, 0)
	}
}

// WithFrameCallback registers the function called after every rendered frame.
//
// Parameters:
//   - callback: function receiving the frame stats and corrected image
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameCallback(callback FrameCallback) EngineBuilderOption {
	return func(e *engine) {
		e.frameCallback = callback
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.SetRenderFrameLimit(fps)
	}
}
