package auto_exposure

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-exposure/common"
	"github.com/Carmen-Shannon/oxy-exposure/engine/exposure"
	"github.com/Carmen-Shannon/oxy-exposure/engine/renderer"
	"github.com/Carmen-Shannon/oxy-exposure/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-exposure/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// MaxColorBufferBytes is the largest color buffer the WGPU backend allocates, a 4096x4096 frame.
// Frames above the 128 MiB WebGPU default binding size need a renderer created with
// renderer.WithStorageBufferLimit(MaxColorBufferBytes).
const MaxColorBufferBytes = 256 << 20

const (
	colorBytesPerPixel = 16 // vec4<f32>
	maskBytesPerPixel  = 4  // f32
)

// wgpuAutoExposureBackend dispatches the kernel module through a Renderer. All five resources
// live on one bind group provider. The state buffer is never rewritten by the host after setup,
// so the exposure history survives across frames and resolution changes.
type wgpuAutoExposureBackend struct {
	r        renderer.Renderer
	kernels  *Kernels
	bindings kernelBindings

	provider bind_group_provider.BindGroupProvider
	// snapshot receives a copy of the state between AccumulateLuminance and ComputeTargetEV
	snapshot bind_group_provider.BindGroupProvider

	stateReadback bool
	state         exposure.GPUExposureState
	metered       exposure.GPUExposureState

	width, height int
	dispatched    bool
}

var _ autoExposureBackend = &wgpuAutoExposureBackend{}

func newWGPUAutoExposureBackend(r renderer.Renderer, source string, validate, stateReadback bool) (*wgpuAutoExposureBackend, error) {
	kernels, err := LoadKernels(source, validate)
	if err != nil {
		return nil, err
	}

	pipelines := make([]pipeline.Pipeline, 0, len(exposure.Kernels))
	for _, k := range exposure.Kernels {
		pipelines = append(pipelines, pipeline.NewPipeline(pipelineKey(k), pipeline.PipelineTypeCompute,
			pipeline.WithComputeShader(kernels.Shader),
			pipeline.WithEntryPoint(kernels.EntryPoints[k]),
		))
	}
	if err := r.RegisterPipelines(pipelines...); err != nil {
		return nil, fmt.Errorf("%w: %v", exposure.ErrResourceAllocation, err)
	}

	b := &wgpuAutoExposureBackend{
		r:             r,
		kernels:       kernels,
		bindings:      kernels.bindings,
		provider:      bind_group_provider.NewBindGroupProvider("Auto Exposure"),
		snapshot:      bind_group_provider.NewBindGroupProvider("Auto Exposure Snapshot"),
		stateReadback: stateReadback,
		state:         exposure.NewGPUExposureState(),
	}

	// Buffers start at their minimum size and are resized on the first frame.
	if err := b.allocate(0, 0); err != nil {
		b.Release()
		return nil, err
	}
	if err := r.InitBindGroup(b.snapshot, wgpu.BindGroupLayoutDescriptor{
		Label: "Auto Exposure Snapshot",
		Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: wgpu.ShaderStageCompute,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeStorage,
				MinBindingSize: uint64(b.state.Size()),
			},
		}},
	}, nil, nil); err != nil {
		b.Release()
		return nil, fmt.Errorf("%w: snapshot buffer: %v", exposure.ErrResourceAllocation, err)
	}

	r.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: b.provider, Binding: b.bindings.state, Data: b.state.Marshal()},
	})
	return b, nil
}

// allocate (re)creates the color and importance buffers for a resolution and rebuilds the
// bind group around them. The settings, frame and state buffers are created once and kept.
func (b *wgpuAutoExposureBackend) allocate(width, height int) error {
	pixels := uint64(width) * uint64(height)
	colorBytes := max(pixels*colorBytesPerPixel, colorBytesPerPixel)
	maskBytes := max(pixels*maskBytesPerPixel, maskBytesPerPixel)
	if colorBytes > MaxColorBufferBytes {
		return fmt.Errorf("%w: %dx%d needs a %d byte color buffer, limit is %d",
			exposure.ErrResourceAllocation, width, height, colorBytes, MaxColorBufferBytes)
	}

	b.provider.ReleaseBindGroup()
	for _, binding := range []int{b.bindings.color, b.bindings.importance} {
		if buf := b.provider.Buffer(binding); buf != nil {
			buf.Release()
			b.provider.SetBuffer(binding, nil)
		}
	}

	usage := map[int]wgpu.BufferUsage{
		b.bindings.state: wgpu.BufferUsageCopySrc,
		b.bindings.color: wgpu.BufferUsageCopySrc,
	}
	sizes := map[int]uint64{
		b.bindings.color:      colorBytes,
		b.bindings.importance: maskBytes,
	}
	if err := b.r.InitBindGroup(b.provider, b.kernels.Shader.BindGroupLayoutDescriptor(0), usage, sizes); err != nil {
		// the old buffers are gone, so no resolution matches until a retry succeeds
		b.width, b.height = -1, -1
		return fmt.Errorf("%w: %v", exposure.ErrResourceAllocation, err)
	}

	b.width, b.height = width, height
	logger.Debugf("allocated %dx%d color buffer (%d bytes)", width, height, colorBytes)
	return nil
}

func (b *wgpuAutoExposureBackend) WriteSettings(s exposure.Settings) error {
	gpu := s.GPU()
	b.r.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: b.provider, Binding: b.bindings.settings, Data: gpu.Marshal()},
	})
	return nil
}

func (b *wgpuAutoExposureBackend) BeginFrame(frame Frame) error {
	width, height := frame.Color.Width, frame.Color.Height
	if width != b.width || height != b.height {
		if err := b.allocate(width, height); err != nil {
			return err
		}
	}

	params := exposure.NewGPUFrameParams(frame.DeltaTime, width, height)
	writes := []bind_group_provider.BufferWrite{
		{Provider: b.provider, Binding: b.bindings.frame, Data: params.Marshal()},
		{Provider: b.provider, Binding: b.bindings.color, Data: common.SliceToBytes(frame.Color.Pix)},
	}
	if frame.Mask != nil {
		writes = append(writes, bind_group_provider.BufferWrite{
			Provider: b.provider, Binding: b.bindings.importance, Data: common.SliceToBytes(frame.Mask.Weights),
		})
	}
	b.r.WriteBuffers(writes)

	b.dispatched = false
	return b.r.BeginComputeFrame()
}

func (b *wgpuAutoExposureBackend) Dispatch(k exposure.Kernel) error {
	if err := b.r.DispatchCompute(pipelineKey(k), b.provider, exposure.DispatchSize(k, b.width, b.height)); err != nil {
		b.abort()
		return err
	}
	if k == exposure.KernelAccumulateLuminance && b.stateReadback {
		if err := b.r.CopyBuffer(b.provider, b.bindings.state, b.snapshot, 0, uint64(b.state.Size())); err != nil {
			b.abort()
			return err
		}
	}
	b.dispatched = true
	return nil
}

// abort drops a compute frame left open by a failed dispatch. Submitting it would run
// AccumulateLuminance without the ComputeTargetEV that zeroes the accumulators, folding this
// frame's sums into the next.
func (b *wgpuAutoExposureBackend) abort() {
	logger.Warningf("dropping compute frame %dx%d after failed dispatch", b.width, b.height)
	b.r.CancelComputeFrame()
}

func (b *wgpuAutoExposureBackend) EndFrame(frame Frame, readback bool) (frameResult, error) {
	if err := b.r.EndComputeFrame(); err != nil {
		return frameResult{}, err
	}

	result := frameResult{state: b.state}
	if b.stateReadback && b.dispatched {
		if err := b.readState(b.provider, b.bindings.state, &b.state); err != nil {
			return frameResult{}, err
		}
		if err := b.readState(b.snapshot, 0, &b.metered); err != nil {
			return frameResult{}, err
		}
		result = frameResult{state: b.state, metered: b.metered, observed: true}
	}

	if readback {
		size := uint64(len(frame.Color.Pix)) * 4
		data, err := b.r.ReadBuffer(b.provider, b.bindings.color, size)
		if err != nil {
			return frameResult{}, fmt.Errorf("color readback: %w", err)
		}
		common.BytesToFloat32s(frame.Color.Pix, data)
	}
	return result, nil
}

func (b *wgpuAutoExposureBackend) readState(provider bind_group_provider.BindGroupProvider, binding int, dst *exposure.GPUExposureState) error {
	data, err := b.r.ReadBuffer(provider, binding, uint64(dst.Size()))
	if err != nil {
		return fmt.Errorf("state readback: %w", err)
	}
	return dst.Unmarshal(data)
}

func (b *wgpuAutoExposureBackend) State() exposure.GPUExposureState {
	return b.state
}

func (b *wgpuAutoExposureBackend) ColorBindGroupProvider() bind_group_provider.BindGroupProvider {
	return b.provider
}

func (b *wgpuAutoExposureBackend) Release() {
	b.provider.Release()
	b.snapshot.Release()
}
