package shader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnnotation(t *testing.T) {
	a, err := parseAnnotation("let x = 1; // not an annotation", 1)
	require.NoError(t, err)
	assert.Nil(t, a)

	a, err = parseAnnotation("var y = 2; // @oxy:include frame_params", 1)
	require.NoError(t, err)
	assert.Nil(t, a, "annotations must start the line")

	a, err = parseAnnotation("  //@oxy:group 1 3 storage_read_write state exposure_state", 4)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, AnnotationTypeBindingGroup, a.Type)
	assert.Equal(t, 1, *a.Group)
	assert.Equal(t, 3, *a.Binding)
	assert.Equal(t, 4, a.Line)
	assert.Equal(t, AnnotationArgExposureState, a.Identity())

	a, err = parseAnnotation("// @oxy:provider 0 4 importance", 9)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, AnnotationArgImportance, a.Identity())
}

func TestParseAnnotationErrors(t *testing.T) {
	cases := map[string]string{
		"empty":             "//@oxy:",
		"unknown type":      "//@oxy:texture 0 0 albedo",
		"include arity":     "//@oxy:include",
		"include unknown":   "//@oxy:include camera",
		"group arity":       "//@oxy:group 0 0 storage_uniform settings",
		"group negative":    "//@oxy:group -1 0 storage_uniform settings exposure_settings",
		"group binding nan": "//@oxy:group 0 x storage_uniform settings exposure_settings",
		"group addr space":  "//@oxy:group 0 0 workgroup settings exposure_settings",
		"group type":        "//@oxy:group 0 0 storage_uniform settings camera",
		"group array type":  "//@oxy:group 0 0 storage_read lights array<light>",
		"provider arity":    "//@oxy:provider 0 3",
		"provider identity": "//@oxy:provider 0 3 depth",
	}
	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			a, err := parseAnnotation(line, 7)
			assert.Nil(t, a)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "line 7")
		})
	}
}

func TestPreProcessorProcess(t *testing.T) {
	pp := NewPreProcessor()
	out, err := pp.Process("//@oxy:include exposure_state\n//@oxy:group 0 2 storage_read_write state exposure_state\nfn f() {}")
	require.NoError(t, err)

	assert.Contains(t, out, "history_ev: f32")
	assert.Contains(t, out, "@group(0) @binding(2) var<storage, read_write> state: ExposureState;")
	assert.Contains(t, out, "fn f() {}")

	decls := pp.Declarations()
	require.Len(t, decls, 1)
	assert.Equal(t, 2, decls[0].Line)
}

func TestPreProcessorIncludesOnce(t *testing.T) {
	pp := NewPreProcessor()
	out, err := pp.Process("//@oxy:include frame_params\n//@oxy:include frame_params\n//@oxy:group 0 1 storage_uniform frame frame_params")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "struct FrameParams"))

	out, err = pp.Process("//@oxy:include frame_params")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "struct FrameParams"), "includes reset between calls")
}

func TestPreProcessorResetsDeclarations(t *testing.T) {
	pp := NewPreProcessor()
	_, err := pp.Process("//@oxy:provider 0 3 color\n//@oxy:provider 0 4 importance")
	require.NoError(t, err)
	require.Len(t, pp.Declarations(), 2)

	_, err = pp.Process("//@oxy:provider 0 3 color")
	require.NoError(t, err)
	assert.Len(t, pp.Declarations(), 1)
}

func TestPreProcessorRejectsDuplicateBinding(t *testing.T) {
	pp := NewPreProcessor()
	_, err := pp.Process("//@oxy:group 0 1 storage_uniform frame frame_params\n\n//@oxy:provider 0 1 color")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3: group 0 binding 1 already declared on line 1")
}

func TestComputeStructSizes(t *testing.T) {
	src := stripComments(`
struct Inner { a: vec3<f32>, b: f32 };
struct Outer {
    inner: Inner,
    flag: u32,
    counts: array<u32, 3>,
};
struct Tail { n: u32, rest: array<vec4<f32>> };
`)
	sizes := computeStructSizes(parseStructBlocks(src))

	assert.Equal(t, wgslTypeLayout{16, 16}, sizes["Inner"])
	// inner(16) + flag(4) + counts at 20 (12) = 32, aligned to 16
	assert.Equal(t, wgslTypeLayout{32, 16}, sizes["Outer"])
	// runtime arrays count one element toward the minimum binding size
	assert.Equal(t, uint64(32), sizes["Tail"].size)
}

func TestResolveTypeLayoutRuntimeArray(t *testing.T) {
	layout, ok := resolveTypeLayout("array<vec4<f32>>", nil)
	require.True(t, ok)
	assert.Equal(t, uint64(16), layout.size)

	layout, ok = resolveTypeLayout("array<f32, 256>", nil)
	require.True(t, ok)
	assert.Equal(t, uint64(1024), layout.size)

	_, ok = resolveTypeLayout("Unknown", nil)
	assert.False(t, ok)
}

func TestPrimitiveLayout(t *testing.T) {
	cases := map[string]wgslTypeLayout{
		"u32":         {4, 4},
		"atomic<u32>": {4, 4},
		"vec2<f32>":   {8, 8},
		"vec3f":       {12, 16},
		"vec4<f32>":   {16, 16},
		"vec3<u32>":   {12, 16},
		"vec2h":       {4, 4},
		"vec3<f16>":   {6, 8},
		"mat2x2<f32>": {16, 8},
		"mat3x3f":     {48, 16},
		"mat4x2<f32>": {32, 8},
		"mat4x4<f32>": {64, 16},
	}
	for name, want := range cases {
		got, ok := primitiveLayout(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	for _, name := range []string{"vec", "vec5<f32>", "material", "vector3", "atomic<f32>", "mat3x3<bool>", "mat3<f32>"} {
		_, ok := primitiveLayout(name)
		assert.False(t, ok, name)
	}
}

func TestStripComments(t *testing.T) {
	out := stripComments("a /* x /* nested */ y */ b // tail\nc")
	assert.Equal(t, "a  b \nc\n", out)
}
