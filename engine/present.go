package engine

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-exposure/common"
	"github.com/Carmen-Shannon/oxy-exposure/engine/auto_exposure"
	"github.com/Carmen-Shannon/oxy-exposure/engine/exposure"
	"github.com/Carmen-Shannon/oxy-exposure/engine/renderer"
	"github.com/Carmen-Shannon/oxy-exposure/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-exposure/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-exposure/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/present_vertex.wgsl
var presentVertexSource string

//go:embed assets/present_fragment.wgsl
var presentFragmentSource string

const presentPipelineKey = "present"

// presentPass draws the exposed color buffer to the window surface with a fullscreen triangle.
// With the WGPU auto exposure backend it binds the pass's own frame and color buffers, so the
// image never leaves the GPU. Otherwise it owns both buffers and uploads the corrected image
// every frame.
type presentPass struct {
	r        renderer.Renderer
	ae       auto_exposure.AutoExposure
	fragment shader.Shader
	provider bind_group_provider.BindGroupProvider

	frameBinding, colorBinding int

	// shared is the auto exposure color buffer currently bound, nil when the pass owns its buffers
	shared        *wgpu.Buffer
	width, height int
}

func newPresentPass(r renderer.Renderer, ae auto_exposure.AutoExposure) (*presentPass, error) {
	vs, err := shader.NewShaderFromSource("present_vertex", shader.ShaderTypeVertex, presentVertexSource)
	if err != nil {
		return nil, err
	}
	fs, err := shader.NewShaderFromSource("present_fragment", shader.ShaderTypeFragment, presentFragmentSource)
	if err != nil {
		return nil, err
	}
	if err := r.RegisterPipelines(pipeline.NewPipeline(presentPipelineKey, pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
		pipeline.WithCullMode(wgpu.CullModeNone),
	)); err != nil {
		return nil, fmt.Errorf("present pipeline: %w", err)
	}

	p := &presentPass{r: r, ae: ae, fragment: fs}
	var ok bool
	if _, p.frameBinding, ok = fs.Binding(shader.AnnotationArgFrameParams); !ok {
		return nil, fmt.Errorf("present shader does not bind %s", shader.AnnotationArgFrameParams)
	}
	if _, p.colorBinding, ok = fs.Binding(shader.AnnotationArgColor); !ok {
		return nil, fmt.Errorf("present shader does not bind %s", shader.AnnotationArgColor)
	}
	return p, nil
}

// bind rebuilds the bind group when the source buffers change, either because the auto
// exposure pass reallocated its color buffer or because the owned buffers must grow.
func (p *presentPass) bind(img *common.ColorImage) error {
	if aeProvider := p.ae.ColorBindGroupProvider(); aeProvider != nil {
		color := aeProvider.Buffer(p.ae.ColorBinding())
		if p.provider != nil && color == p.shared {
			return nil
		}
		frame := aeProvider.Buffer(p.ae.FrameBinding())
		if frame == nil || color == nil {
			return fmt.Errorf("%w: auto exposure buffers are not allocated", exposure.ErrNotInitialized)
		}
		p.release()
		p.provider = bind_group_provider.NewBindGroupProvider("Present",
			bind_group_provider.WithBuffer(p.frameBinding, frame),
			bind_group_provider.WithBuffer(p.colorBinding, color),
		)
		p.shared = color
		return p.r.InitBindGroup(p.provider, p.fragment.BindGroupLayoutDescriptor(0), nil, nil)
	}

	if p.provider != nil && img.Width == p.width && img.Height == p.height {
		return nil
	}
	p.release()
	p.provider = bind_group_provider.NewBindGroupProvider("Present")
	p.width, p.height = img.Width, img.Height
	return p.r.InitBindGroup(p.provider, p.fragment.BindGroupLayoutDescriptor(0), nil, map[int]uint64{
		p.colorBinding: uint64(len(img.Pix)) * 4,
	})
}

// draw presents one exposed frame.
func (p *presentPass) draw(img *common.ColorImage) error {
	if err := p.bind(img); err != nil {
		return err
	}
	if p.shared == nil {
		params := exposure.NewGPUFrameParams(0, img.Width, img.Height)
		p.r.WriteBuffers([]bind_group_provider.BufferWrite{
			{Provider: p.provider, Binding: p.frameBinding, Data: params.Marshal()},
			{Provider: p.provider, Binding: p.colorBinding, Data: common.SliceToBytes(img.Pix)},
		})
	}

	if err := p.r.BeginFrame(); err != nil {
		return err
	}
	if err := p.r.Draw(presentPipelineKey, 3, []bind_group_provider.BindGroupProvider{p.provider}); err != nil {
		p.r.EndFrame()
		return err
	}
	p.r.EndFrame()
	p.r.Present()
	return nil
}

// release drops the bind group. Shared buffers stay with the auto exposure pass.
func (p *presentPass) release() {
	if p.provider != nil {
		p.provider.Release()
		p.provider = nil
	}
	p.shared = nil
}
