package auto_exposure

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-exposure/engine/exposure"
	"github.com/Carmen-Shannon/oxy-exposure/engine/renderer/shader"
)

// KernelSource is the WGSL module holding the AccumulateLuminance, ComputeTargetEV and
// ApplyExposure compute entry points, before pre-processing.
//
//go:embed assets/auto_exposure.wgsl
var KernelSource string

// kernelBindings holds the binding index of every resource of the kernel module in group 0.
type kernelBindings struct {
	settings   int
	frame      int
	state      int
	color      int
	importance int
}

// Kernels is the parsed kernel module together with its resolved entry points and bindings.
type Kernels struct {
	Shader      shader.Shader
	EntryPoints map[exposure.Kernel]string

	bindings kernelBindings
}

// LoadKernels pre-processes and parses a kernel module, optionally validates it with naga, and
// resolves every kernel's entry point and every binding from the module's annotations.
//
// Parameters:
//   - source: the WGSL source, typically KernelSource
//   - validate: true to compile the module with naga
//
// Returns:
//   - *Kernels: the resolved module
//   - error: an error wrapping exposure.ErrMissingEntryPoint, or a parse, validation or binding error
func LoadKernels(source string, validate bool) (*Kernels, error) {
	s, err := shader.NewShaderFromSource("auto_exposure", shader.ShaderTypeCompute, source)
	if err != nil {
		return nil, err
	}
	if validate {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}

	entryPoints, err := exposure.ResolveEntryPoints(s.EntryPoints())
	if err != nil {
		return nil, err
	}
	for k, ep := range entryPoints {
		size, _ := s.WorkgroupSizeOf(ep)
		if want := kernelWorkgroupSize(k); size != want {
			return nil, fmt.Errorf("kernel %s has workgroup size %v, want %v", ep, size, want)
		}
	}

	k := &Kernels{Shader: s, EntryPoints: entryPoints}
	for _, b := range []struct {
		identity shader.AnnotationArg
		dst      *int
	}{
		{shader.AnnotationArgExposureSettings, &k.bindings.settings},
		{shader.AnnotationArgFrameParams, &k.bindings.frame},
		{shader.AnnotationArgExposureState, &k.bindings.state},
		{shader.AnnotationArgColor, &k.bindings.color},
		{shader.AnnotationArgImportance, &k.bindings.importance},
	} {
		group, binding, ok := s.Binding(b.identity)
		if !ok {
			return nil, fmt.Errorf("kernel module does not bind %s", b.identity)
		}
		if group != 0 {
			return nil, fmt.Errorf("kernel module binds %s in group %d, all resources must be in group 0", b.identity, group)
		}
		*b.dst = binding
	}
	return k, nil
}

// kernelWorkgroupSize is the @workgroup_size each kernel's dispatch grid assumes.
func kernelWorkgroupSize(k exposure.Kernel) [3]uint32 {
	if k == exposure.KernelComputeTargetEV {
		return [3]uint32{1, 1, 1}
	}
	return [3]uint32{exposure.TileSize, exposure.TileSize, 1}
}

// pipelineKey is the renderer cache key of a kernel's compute pipeline.
func pipelineKey(k exposure.Kernel) string {
	return "auto_exposure_" + k.EntryPoint()
}
