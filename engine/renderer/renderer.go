package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-exposure/engine/log"
	"github.com/Carmen-Shannon/oxy-exposure/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-exposure/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-exposure/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

var logger = log.New("renderer")

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend
	headless    bool

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	storageBufferLimit   uint64
	pendingPresentMode   *PresentMode
}

// Renderer defines the interface for the rendering system.
//
// This is a high-level API designed to simplify GPU work into a streamlined and idiomatic flow.
// The Renderer manages a cache of pipelines, batches compute dispatches into one submission per
// frame, reads buffers back to the host, and when created with a window presents a fullscreen
// pass to its surface. A Renderer created without a window is headless and only runs compute work.
type Renderer interface {
	// Pipeline retrieves the cached Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Pipelines retrieves the entire cache of Pipelines.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: a map of pipeline keys to their corresponding Pipeline objects
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines registers one or more pipelines by creating the corresponding GPU
	// pipeline objects (render or compute) via the backend, then caching them by PipelineKey.
	// Pipelines whose keys are already registered are skipped to avoid duplicate GPU resource creation.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// Headless reports whether the renderer was created without a window surface.
	//
	// Returns:
	//   - bool: true if the renderer cannot present frames
	Headless() bool

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window. Headless renderers ignore it.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	// A call to Resize is required after changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// InitBindGroup creates GPU buffers and a bind group from a layout descriptor and stores them
	// on the given BindGroupProvider. Buffers already present on the provider (shared buffers) are
	// bound as-is. Buffer usage and size can be overridden per binding.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created bind group on
	//   - descriptor: the layout descriptor defining the bind group entries
	//   - bufferUsageOverrides: additional buffer usage flags to OR into the derived usage, keyed by binding index (nil safe)
	//   - bufferSizeOverrides: custom buffer sizes to use instead of MinBindingSize, keyed by binding index (nil safe)
	//
	// Returns:
	//   - error: an error if bind group creation fails
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error

	// WriteBuffers writes all staged buffer writes to the GPU queue.
	// Each BufferWrite targets a specific buffer on a BindGroupProvider at a given binding and offset.
	//
	// Parameters:
	//   - writes: a slice of BufferWrite structs describing the data to write
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// ReadBuffer copies a buffer into a mappable staging buffer, waits for the GPU and returns
	// the bytes. The source buffer must have been created with wgpu.BufferUsageCopySrc.
	//
	// Parameters:
	//   - provider: the BindGroupProvider holding the buffer
	//   - binding: the binding index of the buffer
	//   - size: the number of bytes to read from offset 0, a multiple of 4
	//
	// Returns:
	//   - []byte: a host copy of the buffer contents
	//   - error: an error if the buffer is missing or the map fails
	ReadBuffer(provider bind_group_provider.BindGroupProvider, binding int, size uint64) ([]byte, error)

	// BeginComputeFrame creates a single command encoder for batching all compute dispatches
	// within a frame into one GPU submission. Must be paired with EndComputeFrame after all
	// DispatchCompute calls for the frame.
	//
	// Returns:
	//   - error: an error if the command encoder could not be created
	BeginComputeFrame() error

	// DispatchCompute looks up the cached compute Pipeline by key, then encodes a compute pass
	// within the current batched compute frame started by BeginComputeFrame. Each dispatch gets
	// its own pass so writes from one dispatch are visible to the next.
	//
	// Parameters:
	//   - pipelineKey: the unique identifier for the cached compute Pipeline to use
	//   - computeProvider: the BindGroupProvider whose BindGroup will be set on the compute pass
	//   - workGroupCount: the number of workgroups to dispatch in the x, y, and z dimensions
	//
	// Returns:
	//   - error: an error if the pipeline is unknown or no compute frame is open
	DispatchCompute(pipelineKey string, computeProvider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error

	// CopyBuffer encodes a copy between two provider buffers within the current compute frame.
	// The source needs wgpu.BufferUsageCopySrc and the destination wgpu.BufferUsageCopyDst.
	//
	// Parameters:
	//   - src: the provider holding the source buffer
	//   - srcBinding: the binding index of the source buffer
	//   - dst: the provider holding the destination buffer
	//   - dstBinding: the binding index of the destination buffer
	//   - size: the number of bytes to copy from offset 0
	//
	// Returns:
	//   - error: an error if no compute frame is open or either buffer is missing
	CopyBuffer(src bind_group_provider.BindGroupProvider, srcBinding int, dst bind_group_provider.BindGroupProvider, dstBinding int, size uint64) error

	// EndComputeFrame finishes the batched compute command encoder and submits the resulting
	// command buffer to the GPU queue.
	//
	// Returns:
	//   - error: an error if the command buffer could not be finished
	EndComputeFrame() error

	// CancelComputeFrame discards the compute frame started by BeginComputeFrame. Dispatches
	// and copies encoded so far are dropped, leaving GPU buffers as they were before the frame.
	// Does nothing when no compute frame is open.
	CancelComputeFrame()

	// BeginFrame acquires the swapchain texture and begins the main render pass.
	// Must be paired with EndFrame after all Draw invocations within a single frame.
	//
	// Returns:
	//   - error: an error if the renderer is headless or the swapchain texture could not be acquired
	BeginFrame() error

	// Draw encodes a non-indexed draw without vertex buffers, used for fullscreen passes whose
	// vertex shader derives positions from the vertex index.
	//
	// Parameters:
	//   - pipelineKey: the unique identifier for the cached render Pipeline to use
	//   - vertexCount: the number of vertices to draw
	//   - bindGroups: BindGroupProviders whose BindGroups are set at their slice index
	//
	// Returns:
	//   - error: an error if the pipeline is not found or no frame is open
	Draw(pipelineKey string, vertexCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error

	// EndFrame ends the current render pass and submits the command buffer to the GPU.
	// Does not present the surface, call Present() after EndFrame to display the frame.
	EndFrame()

	// Present presents the surface to the display and releases the swapchain texture.
	// Must be called once per frame after EndFrame.
	Present()

	// Release releases the pipelines, device, adapter, surface and instance.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer instance with the specified backend type. When win is nil the
// renderer is headless: no surface is created and only compute work, buffer writes and readbacks
// are available.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - win: the window to present to, or nil for a headless renderer
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
//   - error: an error if no adapter or device could be acquired
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
		headless:      win == nil,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	var surfaceDescriptor *wgpu.SurfaceDescriptor
	if win != nil {
		surfaceDescriptor = win.SurfaceDescriptor()
	}

	var err error
	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend, err = newWGPURendererBackend(surfaceDescriptor, r.forceFallbackAdapter, r.storageBufferLimit)
	}
	if err != nil {
		return nil, err
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	if win != nil {
		r.backend.ConfigureSurface(win.Width(), win.Height())
	}
	return r, nil
}

func (r *renderer) Headless() bool {
	return r.headless
}

func (r *renderer) Resize(width, height int) {
	if r.headless || width <= 0 || height <= 0 {
		return
	}
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		switch p.Type() {
		case pipeline.PipelineTypeCompute:
			if err := r.backend.RegisterComputePipeline(p); err != nil {
				return fmt.Errorf("compute pipeline %q: %w", key, err)
			}
		case pipeline.PipelineTypeRender:
			if r.headless {
				return fmt.Errorf("render pipeline %q: renderer is headless", key)
			}
			if err := r.backend.RegisterRenderPipeline(p); err != nil {
				return fmt.Errorf("render pipeline %q: %w", key, err)
			}
		}
		r.pipelineCache[key] = p
	}
	return nil
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	return r.backend.InitBindGroup(provider, descriptor, bufferUsageOverrides, bufferSizeOverrides)
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend.WriteBuffers(writes)
}

func (r *renderer) ReadBuffer(provider bind_group_provider.BindGroupProvider, binding int, size uint64) ([]byte, error) {
	return r.backend.ReadBuffer(provider, binding, size)
}

func (r *renderer) BeginComputeFrame() error {
	return r.backend.BeginComputeFrame()
}

func (r *renderer) EndComputeFrame() error {
	return r.backend.EndComputeFrame()
}

func (r *renderer) CancelComputeFrame() {
	r.backend.CancelComputeFrame()
}

func (r *renderer) DispatchCompute(pipelineKey string, computeProvider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error {
	r.mu.Lock()
	p, exists := r.pipelineCache[pipelineKey]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("compute pipeline %q not found in cache", pipelineKey)
	}
	return r.backend.DispatchCompute(p, computeProvider, workGroupCount)
}

func (r *renderer) CopyBuffer(src bind_group_provider.BindGroupProvider, srcBinding int, dst bind_group_provider.BindGroupProvider, dstBinding int, size uint64) error {
	return r.backend.CopyBuffer(src, srcBinding, dst, dstBinding, size)
}

func (r *renderer) BeginFrame() error {
	if r.headless {
		return fmt.Errorf("renderer is headless")
	}
	return r.backend.BeginFrame()
}

func (r *renderer) Draw(pipelineKey string, vertexCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	r.mu.Lock()
	p, exists := r.pipelineCache[pipelineKey]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("render pipeline %q not found in cache", pipelineKey)
	}
	return r.backend.Draw(p, vertexCount, bindGroups)
}

func (r *renderer) EndFrame() {
	r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, p := range r.pipelineCache {
		switch created := p.Pipeline().(type) {
		case *wgpu.ComputePipeline:
			if created != nil {
				created.Release()
			}
		case *wgpu.RenderPipeline:
			if created != nil {
				created.Release()
			}
		}
		delete(r.pipelineCache, key)
	}
	r.backend.Release()
}
