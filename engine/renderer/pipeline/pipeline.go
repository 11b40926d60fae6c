package pipeline

import (
	"github.com/Carmen-Shannon/oxy-exposure/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates a compute pipeline with a single compute shader entry point.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with vertex and fragment shader entry points.
	PipelineTypeRender
)

func (t PipelineType) String() string {
	switch t {
	case PipelineTypeCompute:
		return "compute"
	case PipelineTypeRender:
		return "render"
	default:
		return "unknown"
	}
}

// RenderState is the fixed-function state of a render pipeline. Compute pipelines ignore it.
type RenderState struct {
	Topology  wgpu.PrimitiveTopology
	CullMode  wgpu.CullMode
	WriteMask wgpu.ColorWriteMask
	// Blend is nil for opaque output.
	Blend *wgpu.BlendState
}

// DefaultRenderState is an opaque, unculled triangle list writing every channel, which is what a
// fullscreen image pass needs.
//
// Returns:
//   - RenderState: the default state
func DefaultRenderState() RenderState {
	return RenderState{
		Topology:  wgpu.PrimitiveTopologyTriangleList,
		CullMode:  wgpu.CullModeNone,
		WriteMask: wgpu.ColorWriteMaskAll,
	}
}

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	pipelineType PipelineType
	// pipelineKey is the renderer cache key
	pipelineKey string

	vertexShader, fragmentShader, computeShader shader.Shader

	// entryPoint selects one kernel out of a compute module that declares several
	entryPoint string

	renderPipeline  *wgpu.RenderPipeline
	computePipeline *wgpu.ComputePipeline

	state RenderState
}

// Pipeline wraps either a render pipeline (vertex + fragment shaders) or a compute pipeline
// running one entry point of a compute shader. The GPU object is created by the Renderer on
// registration.
type Pipeline interface {
	// Type returns the type of the pipeline
	//
	// Returns:
	//   - PipelineType: the type of the pipeline (render or compute)
	Type() PipelineType

	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader retrieves the shader associated with the specified type if it exists, nil otherwise.
	//
	// Parameters:
	//   - shaderType: the type of shader to retrieve (vertex, fragment, or compute)
	//
	// Returns:
	//   - shader.Shader: the shader associated with the specified type, or nil if not set
	Shader(shaderType shader.ShaderType) shader.Shader

	// Pipeline returns the underlying *wgpu.RenderPipeline or *wgpu.ComputePipeline.
	// The caller type asserts the result.
	//
	// Returns:
	//   - any: the underlying pipeline object.
	Pipeline() any

	// EntryPoint returns the compute entry point this pipeline runs. Defaults to the
	// compute shader's first entry point when no explicit one was set.
	//
	// Returns:
	//   - string: the entry point name, or an empty string for render pipelines
	EntryPoint() string

	// RenderState returns the fixed-function state used when the render pipeline is created.
	//
	// Returns:
	//   - RenderState: the state
	RenderState() RenderState

	// SetRenderPipeline sets the render pipeline
	//
	// Parameters:
	//   - p: the WebGPU render pipeline to set
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// SetComputePipeline sets the compute pipeline
	//
	// Parameters:
	//   - p: the WebGPU compute pipeline to set
	SetComputePipeline(p *wgpu.ComputePipeline)
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a Pipeline of the given type. The GPU object is not created until the
// pipeline is registered with a Renderer.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - pipelineType: the type of pipeline to create (render or compute)
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified type and configuration
func NewPipeline(pipelineKey string, pipelineType PipelineType, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:  pipelineKey,
		pipelineType: pipelineType,
		state:        DefaultRenderState(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Pipeline() any {
	switch p.pipelineType {
	case PipelineTypeRender:
		return p.renderPipeline
	case PipelineTypeCompute:
		return p.computePipeline
	default:
		return nil
	}
}

func (p *pipeline) EntryPoint() string {
	if p.pipelineType != PipelineTypeCompute {
		return ""
	}
	if p.entryPoint != "" {
		return p.entryPoint
	}
	if p.computeShader != nil {
		return p.computeShader.EntryPoint()
	}
	return ""
}

func (p *pipeline) RenderState() RenderState {
	return p.state
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	case shader.ShaderTypeCompute:
		return p.computeShader
	default:
		return nil
	}
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}

func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline) {
	p.computePipeline = cp
}
