package pipeline

import (
	"github.com/Carmen-Shannon/oxy-exposure/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithVertexShader sets the vertex stage of a render pipeline.
func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexShader = s
	}
}

// WithFragmentShader sets the fragment stage of a render pipeline.
func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.fragmentShader = s
	}
}

// WithComputeShader sets the module a compute pipeline runs one entry point of.
func WithComputeShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.computeShader = s
	}
}

// WithEntryPoint selects which compute entry point of the compute shader this pipeline runs.
// Ignored by render pipelines.
//
// Parameters:
//   - name: the compute function name, e.g. "AccumulateLuminance"
//
// Returns:
//   - PipelineBuilderOption: a function that sets the compute entry point for this pipeline
func WithEntryPoint(name string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.entryPoint = name
	}
}

// WithCullMode overrides the cull mode of a render pipeline.
//
// Parameters:
//   - mode: e.g. wgpu.CullModeNone or wgpu.CullModeBack
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode for this pipeline
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.CullMode = mode
	}
}

