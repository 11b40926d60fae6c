package renderer

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithStorageBufferLimit raises the device's storage buffer binding and buffer size limits to
// at least size bytes. Values below the WebGPU defaults are ignored.
//
// Parameters:
//   - size: the largest storage buffer the caller will bind, in bytes
//
// Returns:
//   - RendererBuilderOption: a function that applies the limit to a renderer
func WithStorageBufferLimit(size uint64) RendererBuilderOption {
	return func(r *renderer) {
		r.storageBufferLimit = size
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
// Ignored by headless renderers.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe). Useful on CI machines without a GPU.
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}
