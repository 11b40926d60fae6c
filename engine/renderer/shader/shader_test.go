package shader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKernelSource = `//@oxy:include exposure_settings
//@oxy:include frame_params
//@oxy:include exposure_state

//@oxy:group 0 0 storage_uniform settings exposure_settings
//@oxy:group 0 1 storage_uniform frame frame_params
//@oxy:group 0 2 storage_read_write state exposure_state

//@oxy:provider 0 3 color
@group(0) @binding(3) var<storage, read_write> color: array<vec4<f32>>;
//@oxy:provider 0 4 importance
@group(0) @binding(4) var<storage, read> importance: array<f32>;

@compute @workgroup_size(16, 16, 1)
fn Accumulate(@builtin(global_invocation_id) gid: vec3<u32>) {
}

/* a block comment with @compute @workgroup_size(2) fn Hidden( inside */

@compute
@workgroup_size(1)
fn Resolve() {
}

@compute @workgroup_size(8, 4,)
fn Apply(@builtin(global_invocation_id) gid: vec3<u32>) {
}
`

func TestNewShaderFromSourceCollectsComputeEntryPoints(t *testing.T) {
	s, err := NewShaderFromSource("kernels", ShaderTypeCompute, testKernelSource)
	require.NoError(t, err)

	assert.Equal(t, []string{"Accumulate", "Resolve", "Apply"}, s.EntryPoints())
	assert.Equal(t, "Accumulate", s.EntryPoint())
	assert.Equal(t, [3]uint32{16, 16, 1}, s.WorkgroupSize())

	size, ok := s.WorkgroupSizeOf("Resolve")
	require.True(t, ok)
	assert.Equal(t, [3]uint32{1, 1, 1}, size)

	size, ok = s.WorkgroupSizeOf("Apply")
	require.True(t, ok)
	assert.Equal(t, [3]uint32{8, 4, 1}, size)

	_, ok = s.WorkgroupSizeOf("Hidden")
	assert.False(t, ok, "entry points inside comments are ignored")
}

func TestNewShaderFromSourceBuildsLayouts(t *testing.T) {
	s, err := NewShaderFromSource("kernels", ShaderTypeCompute, testKernelSource)
	require.NoError(t, err)

	desc := s.BindGroupLayoutDescriptor(0)
	require.Len(t, desc.Entries, 5)

	want := []struct {
		binding uint32
		kind    wgpu.BufferBindingType
		size    uint64
	}{
		{0, wgpu.BufferBindingTypeUniform, 32},
		{1, wgpu.BufferBindingTypeUniform, 16},
		{2, wgpu.BufferBindingTypeStorage, 16},
		{3, wgpu.BufferBindingTypeStorage, 16},
		{4, wgpu.BufferBindingTypeReadOnlyStorage, 4},
	}
	for i, w := range want {
		e := desc.Entries[i]
		assert.Equal(t, w.binding, e.Binding)
		assert.Equal(t, w.kind, e.Buffer.Type, "binding %d", w.binding)
		assert.Equal(t, w.size, e.Buffer.MinBindingSize, "binding %d", w.binding)
		assert.Equal(t, wgpu.ShaderStageCompute, e.Visibility)
	}

	assert.Equal(t, "state", s.BindGroupVarName(0, 2))
	assert.Equal(t, "", s.BindGroupVarName(1, 0))
	binding, ok := s.BindGroupFromVarName(0, "importance")
	require.True(t, ok)
	assert.Equal(t, 4, binding)
	_, ok = s.BindGroupFromVarName(0, "missing")
	assert.False(t, ok)
}

func TestShaderBindingLookup(t *testing.T) {
	s, err := NewShaderFromSource("kernels", ShaderTypeCompute, testKernelSource)
	require.NoError(t, err)

	cases := map[AnnotationArg][2]int{
		AnnotationArgExposureSettings: {0, 0},
		AnnotationArgFrameParams:      {0, 1},
		AnnotationArgExposureState:    {0, 2},
		AnnotationArgColor:            {0, 3},
		AnnotationArgImportance:       {0, 4},
	}
	for identity, want := range cases {
		group, binding, ok := s.Binding(identity)
		require.True(t, ok, identity)
		assert.Equal(t, want, [2]int{group, binding}, identity)
	}

	_, _, ok := s.Binding("unknown")
	assert.False(t, ok)
	assert.Len(t, s.Declarations(), 5)
}

func TestShaderModuleCarriesProcessedSource(t *testing.T) {
	s, err := NewShaderFromSource("kernels", ShaderTypeCompute, testKernelSource)
	require.NoError(t, err)

	require.NotNil(t, s.Module())
	assert.Equal(t, "kernels", s.Module().Label)
	assert.Equal(t, s.Source(), s.Module().WGSLDescriptor.Code)
	assert.Contains(t, s.Source(), "struct ExposureState {")
	assert.Contains(t, s.Source(), "@group(0) @binding(2) var<storage, read_write> state: ExposureState;")
	assert.NotContains(t, s.Source(), "@oxy:group")
}

func TestNewShaderFromSourceFiltersByStage(t *testing.T) {
	src := `//@oxy:include frame_params
//@oxy:group 0 1 storage_uniform frame frame_params

@vertex
fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}

@fragment
fn fs_main(@builtin(position) pos: vec4<f32>) -> @location(0) vec4<f32> {
    return vec4<f32>(1.0);
}
`
	vs, err := NewShaderFromSource("present_vs", ShaderTypeVertex, src)
	require.NoError(t, err)
	assert.Equal(t, []string{"vs_main"}, vs.EntryPoints())
	assert.Equal(t, [3]uint32{}, vs.WorkgroupSize())
	assert.Equal(t, wgpu.ShaderStageVertex, vs.BindGroupLayoutDescriptor(0).Entries[0].Visibility)

	fs, err := NewShaderFromSource("present_fs", ShaderTypeFragment, src)
	require.NoError(t, err)
	assert.Equal(t, "fs_main", fs.EntryPoint())

	_, err = NewShaderFromSource("present_cs", ShaderTypeCompute, src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no compute entry point")
}

func TestNewShaderReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(testKernelSource), 0o644))

	s, err := NewShader("file", ShaderTypeCompute, path)
	require.NoError(t, err)
	assert.Len(t, s.EntryPoints(), 3)

	_, err = NewShader("missing", ShaderTypeCompute, filepath.Join(t.TempDir(), "nope.wgsl"))
	assert.Error(t, err)
}

func TestShaderTypeString(t *testing.T) {
	assert.Equal(t, "compute", ShaderTypeCompute.String())
	assert.Equal(t, "fragment", ShaderTypeFragment.String())
	assert.True(t, strings.HasPrefix(ShaderType(7).String(), "ShaderType("))
}
