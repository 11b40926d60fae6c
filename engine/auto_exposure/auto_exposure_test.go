package auto_exposure

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-exposure/common"
	"github.com/Carmen-Shannon/oxy-exposure/engine/exposure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSoftware(t *testing.T, s exposure.Settings) AutoExposure {
	t.Helper()
	a, err := NewAutoExposure(WithBackend(BackendTypeSoftware), WithSettings(s), WithWorkers(2))
	require.NoError(t, err)
	t.Cleanup(a.Release)
	return a
}

func TestGrayFrameConvergesToTargetExposure(t *testing.T) {
	s := exposure.DefaultSettings()
	a := newSoftware(t, s)

	// 0.18 / 0.5
	const want = 0.36
	prev := a.State().Exposure
	assert.Equal(t, float32(1), prev)

	for i := 0; i < 600; i++ {
		img := common.NewUniformColorImage(32, 32, 0.5)
		stats, err := a.Render(Frame{Color: img, DeltaTime: 1.0 / 60})
		require.NoError(t, err)

		e := stats.Exposure()
		require.LessOrEqual(t, e, prev, "frame %d", i)
		require.Greater(t, e, float32(want)-1e-3, "frame %d overshot", i)
		prev = e

		assert.InDelta(t, common.Clamp(0.5*e, 0, 1), img.At(5, 9)[1], 1e-6)
	}
	assert.InDelta(t, want, prev, 1e-3)
	assert.Equal(t, uint64(600), a.Frames())
}

func TestBlackToWhiteStepIsBounded(t *testing.T) {
	s := exposure.DefaultSettings()
	a := newSoftware(t, s)
	const dt = 1.0 / 30
	bound := exposure.SmoothingAlpha(dt, s.Tau)*(s.MaxEV-s.MinEV) + 1e-5

	prevEV := a.State().HistoryEV
	for i := 0; i < 120; i++ {
		level := float32(0)
		if i >= 60 {
			level = 4
		}
		stats, err := a.Render(Frame{Color: common.NewUniformColorImage(24, 24, level), DeltaTime: dt})
		require.NoError(t, err)

		ev := stats.EV()
		require.LessOrEqual(t, float64(abs(ev-prevEV)), float64(bound), "frame %d jumped from %g to %g", i, prevEV, ev)
		require.GreaterOrEqual(t, ev, s.MinEV)
		require.LessOrEqual(t, ev, s.MaxEV)
		prevEV = ev
	}
}

func TestFrameRateIndependence(t *testing.T) {
	s := exposure.DefaultSettings()
	coarse := newSoftware(t, s)
	fine := newSoftware(t, s)
	const d = 1.0 / 120

	for i := 0; i < 30; i++ {
		_, err := coarse.Render(Frame{Color: common.NewUniformColorImage(16, 16, 2), DeltaTime: 2 * d})
		require.NoError(t, err)
	}
	for i := 0; i < 60; i++ {
		_, err := fine.Render(Frame{Color: common.NewUniformColorImage(16, 16, 2), DeltaTime: d})
		require.NoError(t, err)
	}
	assert.InDelta(t, coarse.State().HistoryEV, fine.State().HistoryEV, 1e-4)
}

func TestFullyMaskedFrameKeepsHistory(t *testing.T) {
	s := exposure.DefaultSettings()
	s.Metering = exposure.MeteringMask
	a := newSoftware(t, s)

	img := common.NewUniformColorImage(20, 20, 3)
	stats, err := a.Render(Frame{Color: img, DeltaTime: 0.1, Mask: common.NewImportanceMask(20, 20, 0)})
	require.NoError(t, err)

	assert.False(t, stats.Metered)
	assert.Equal(t, float32(0), stats.EV())
	assert.Equal(t, float32(1), stats.Exposure())
	assert.Zero(t, stats.State.Importance)
	assert.Zero(t, stats.State.Luminance)
}

func TestMaskMeteringFollowsWeightedRegion(t *testing.T) {
	s := exposure.DefaultSettings()
	s.Metering = exposure.MeteringMask
	a := newSoftware(t, s)

	img := common.NewUniformColorImage(32, 16, 0.1)
	mask := common.NewImportanceMask(32, 16, 0)
	for y := 0; y < 16; y++ {
		for x := 16; x < 32; x++ {
			img.Set(x, y, [4]float32{2, 2, 2, 1})
			mask.Weights[y*32+x] = 1
		}
	}
	stats, err := a.Render(Frame{Color: img, DeltaTime: 0.1, Mask: mask})
	require.NoError(t, err)
	require.True(t, stats.Metered)
	assert.InDelta(t, 2, stats.AverageLuminance, 1e-4)
}

func TestRenderRejectsInvalidFrames(t *testing.T) {
	a := newSoftware(t, exposure.DefaultSettings())
	img := common.NewUniformColorImage(8, 8, 0.5)

	cases := map[string]struct {
		frame Frame
		err   error
	}{
		"no image":      {Frame{DeltaTime: 0.1}, exposure.ErrInvalidFrame},
		"empty image":   {Frame{Color: &common.ColorImage{}, DeltaTime: 0.1}, exposure.ErrInvalidResolution},
		"short pixels":  {Frame{Color: &common.ColorImage{Pix: make([]float32, 4), Width: 2, Height: 2}}, exposure.ErrInvalidFrame},
		"negative dt":   {Frame{Color: img, DeltaTime: -1}, exposure.ErrInvalidFrame},
		"nan dt":        {Frame{Color: img, DeltaTime: float32(math.NaN())}, exposure.ErrInvalidFrame},
		"inf dt":        {Frame{Color: img, DeltaTime: float32(math.Inf(1))}, exposure.ErrInvalidFrame},
		"mask mismatch": {Frame{Color: img, DeltaTime: 0.1, Mask: common.NewImportanceMask(4, 4, 1)}, exposure.ErrInvalidFrame},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := a.Render(c.frame)
			assert.ErrorIs(t, err, c.err)
		})
	}
	assert.Zero(t, a.Frames())

	s := exposure.DefaultSettings()
	s.Metering = exposure.MeteringMask
	require.NoError(t, a.SetSettings(s))
	_, err := a.Render(Frame{Color: img, DeltaTime: 0.1})
	assert.ErrorIs(t, err, exposure.ErrInvalidFrame)
}

func TestZeroDeltaTimeHoldsHistory(t *testing.T) {
	a := newSoftware(t, exposure.DefaultSettings())
	stats, err := a.Render(Frame{Color: common.NewUniformColorImage(8, 8, 5), DeltaTime: 0})
	require.NoError(t, err)
	assert.True(t, stats.Metered)
	assert.Equal(t, float32(0), stats.EV())
	assert.Greater(t, stats.TargetEV, float32(0))
}

func TestSetSettingsValidates(t *testing.T) {
	a := newSoftware(t, exposure.DefaultSettings())

	bad := exposure.DefaultSettings()
	bad.Tau = 0
	assert.ErrorIs(t, a.SetSettings(bad), exposure.ErrInvalidSettings)
	assert.Equal(t, exposure.DefaultSettings(), a.Settings())

	good := exposure.DefaultSettings()
	good.Compensation = 1
	require.NoError(t, a.SetSettings(good))
	assert.Equal(t, float32(1), a.Settings().Compensation)
}

func TestNewAutoExposureErrors(t *testing.T) {
	_, err := NewAutoExposure()
	assert.ErrorIs(t, err, exposure.ErrNotInitialized, "wgpu backend needs a renderer")

	bad := exposure.DefaultSettings()
	bad.MinEV, bad.MaxEV = 4, -4
	_, err = NewAutoExposure(WithBackend(BackendTypeSoftware), WithSettings(bad))
	assert.ErrorIs(t, err, exposure.ErrInvalidSettings)
}

func TestReleasedPassRefusesFrames(t *testing.T) {
	a, err := NewAutoExposure(WithBackend(BackendTypeSoftware))
	require.NoError(t, err)
	assert.Equal(t, BackendTypeSoftware, a.BackendType())
	assert.Nil(t, a.ColorBindGroupProvider())
	assert.Equal(t, -1, a.ColorBinding())
	assert.Equal(t, -1, a.FrameBinding())

	a.Release()
	_, err = a.Render(Frame{Color: common.NewUniformColorImage(4, 4, 1), DeltaTime: 0.1})
	assert.ErrorIs(t, err, exposure.ErrNotInitialized)
	a.Release()
}

func TestLoadKernelsResolvesEmbeddedModule(t *testing.T) {
	k, err := LoadKernels(KernelSource, false)
	require.NoError(t, err)

	for _, kernel := range exposure.Kernels {
		ep, ok := k.EntryPoints[kernel]
		require.True(t, ok, kernel.String())
		size, ok := k.Shader.WorkgroupSizeOf(ep)
		require.True(t, ok)
		assert.Equal(t, kernelWorkgroupSize(kernel), size, ep)
	}
	assert.Equal(t, [3]uint32{16, 16, 1}, kernelWorkgroupSize(exposure.KernelAccumulateLuminance))
	assert.Equal(t, kernelBindings{settings: 0, frame: 1, state: 2, color: 3, importance: 4}, k.bindings)

	desc := k.Shader.BindGroupLayoutDescriptor(0)
	require.Len(t, desc.Entries, 5)
	assert.Equal(t, uint64(32), desc.Entries[0].Buffer.MinBindingSize)
	assert.Equal(t, uint64(16), desc.Entries[2].Buffer.MinBindingSize)
}

// kernelConstants collects the module-scope const declarations of the kernel module by name.
func kernelConstants(t *testing.T) map[string]string {
	t.Helper()
	consts := make(map[string]string)
	for _, line := range strings.Split(KernelSource, "\n") {
		decl, ok := strings.CutPrefix(strings.TrimSpace(line), "const ")
		if !ok {
			continue
		}
		name, rest, ok := strings.Cut(decl, ":")
		require.True(t, ok, line)
		_, value, ok := strings.Cut(rest, "=")
		require.True(t, ok, line)
		consts[name] = strings.TrimSuffix(strings.TrimSpace(value), ";")
	}
	return consts
}

func TestKernelConstantsMatchHostMirror(t *testing.T) {
	consts := kernelConstants(t)

	parseFloat := func(name string) float32 {
		v, err := strconv.ParseFloat(consts[name], 32)
		require.NoError(t, err, name)
		return float32(v)
	}
	parseUint := func(name string) uint32 {
		v, err := strconv.ParseUint(strings.TrimSuffix(consts[name], "u"), 10, 32)
		require.NoError(t, err, name)
		return uint32(v)
	}

	assert.Equal(t, float32(exposure.TilePixels), parseFloat("TILE_PIXELS"))
	assert.Equal(t, float32(exposure.FixedPointScale), parseFloat("FIXED_POINT_SCALE"))
	assert.Equal(t, exposure.SpotRadius, parseFloat("SPOT_RADIUS"))
	assert.Equal(t, exposure.MinAverageLuminance, parseFloat("MIN_AVERAGE_LUMINANCE"))

	assert.Equal(t, uint32(exposure.MeteringCenterWeighted), parseUint("METERING_CENTER"))
	assert.Equal(t, uint32(exposure.MeteringSpot), parseUint("METERING_SPOT"))
	assert.Equal(t, uint32(exposure.MeteringMask), parseUint("METERING_MASK"))
	// average metering is the kernel's default switch case
	assert.Equal(t, exposure.MeteringAverage, exposure.MeteringMode(0))

	luma := strings.TrimSuffix(strings.TrimPrefix(consts["LUMA"], "vec3<f32>("), ")")
	parts := strings.Split(luma, ",")
	require.Len(t, parts, 3)
	for i, want := range []float32{common.LumaR, common.LumaG, common.LumaB} {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 32)
		require.NoError(t, err)
		assert.Equal(t, want, float32(v), "LUMA[%d]", i)
	}
}

func TestLoadKernelsMissingEntryPoint(t *testing.T) {
	src := strings.Replace(KernelSource, "fn ComputeTargetEV(", "fn ComputeTarget(", 1)
	_, err := LoadKernels(src, false)
	assert.ErrorIs(t, err, exposure.ErrMissingEntryPoint)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ComputeTargetEV")
}

func TestLoadKernelsWrongWorkgroupSize(t *testing.T) {
	src := strings.Replace(KernelSource, "@compute @workgroup_size(1, 1, 1)", "@compute @workgroup_size(64, 1, 1)", 1)
	_, err := LoadKernels(src, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ComputeTargetEV has workgroup size")
}

func TestParseBackendType(t *testing.T) {
	b, err := ParseBackendType("Software")
	require.NoError(t, err)
	assert.Equal(t, BackendTypeSoftware, b)
	b, err = ParseBackendType("wgpu")
	require.NoError(t, err)
	assert.Equal(t, BackendTypeWGPU, b)
	_, err = ParseBackendType("metal")
	assert.Error(t, err)
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
