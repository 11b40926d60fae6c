package exposure

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettingsValid(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())
}

func TestSettingsValidate(t *testing.T) {
	cases := map[string]func(*Settings){
		"zero tau":           func(s *Settings) { s.Tau = 0 },
		"negative gray":      func(s *Settings) { s.TargetGray = -0.1 },
		"inverted range":     func(s *Settings) { s.MinEV, s.MaxEV = 4, -4 },
		"luminance too high": func(s *Settings) { s.MaxLuminance = 256 },
		"zero output":        func(s *Settings) { s.OutputMax = 0 },
		"unknown metering":   func(s *Settings) { s.Metering = 42 },
		"nan compensation":   func(s *Settings) { s.Compensation = float32(math.NaN()) },
	}
	for name, mutate := range cases {
		s := DefaultSettings()
		mutate(&s)
		err := s.Validate()
		assert.True(t, errors.Is(err, ErrInvalidSettings), name)
	}
}

func TestParseMeteringMode(t *testing.T) {
	for _, mode := range []MeteringMode{MeteringAverage, MeteringCenterWeighted, MeteringSpot, MeteringMask} {
		parsed, err := ParseMeteringMode(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, parsed)
	}
	_, err := ParseMeteringMode("matrix")
	assert.True(t, errors.Is(err, ErrInvalidSettings))
}

func TestWeight(t *testing.T) {
	assert.Equal(t, float32(1), Weight(MeteringAverage, 0, 0, 64, 64, 0))

	center := Weight(MeteringCenterWeighted, 32, 32, 64, 64, 0)
	corner := Weight(MeteringCenterWeighted, 0, 0, 64, 64, 0)
	assert.Greater(t, center, float32(0.99))
	assert.Less(t, corner, float32(0.01))

	assert.Equal(t, float32(1), Weight(MeteringSpot, 32, 32, 64, 64, 0))
	assert.Equal(t, float32(0), Weight(MeteringSpot, 2, 2, 64, 64, 0))

	assert.Equal(t, float32(0.25), Weight(MeteringMask, 5, 5, 64, 64, 0.25))
	assert.Equal(t, float32(1), Weight(MeteringMask, 5, 5, 64, 64, 3))
}

func TestGPUTypeLayouts(t *testing.T) {
	state := GPUExposureState{Importance: 7, Luminance: 9, HistoryEV: -1.5, Exposure: 2.8284}
	settings := DefaultSettings().GPU()
	params := NewGPUFrameParams(0.016, 1920, 1080)

	assert.Equal(t, 16, state.Size())
	assert.Equal(t, 32, settings.Size())
	assert.Equal(t, 16, params.Size())
	assert.Len(t, state.Marshal(), state.Size())
	assert.Len(t, settings.Marshal(), settings.Size())
	assert.Len(t, params.Marshal(), params.Size())
	assert.Equal(t, uint32(120*68), params.TileCount)

	var decoded GPUExposureState
	require.NoError(t, decoded.Unmarshal(state.Marshal()))
	assert.Equal(t, state, decoded)
	assert.Error(t, decoded.Unmarshal(make([]byte, 8)))
}

func TestFixedPointEncoding(t *testing.T) {
	// one full tile of 0.5 luminance in a 4 tile grid
	logLum := float64(LogLuminance(0.5))
	lum := EncodeContribution(logLum*TilePixels, 4)
	weight := EncodeContribution(TilePixels, 4)
	assert.Equal(t, uint32(FixedPointScale/4), weight)
	assert.Equal(t, uint32(math.Round(logLum*FixedPointScale/4)), lum)

	avg, ok := DecodeAverageLuminance(GPUExposureState{Luminance: lum, Importance: weight})
	assert.True(t, ok)
	assert.InDelta(t, 0.5, avg, 1e-6)

	_, ok = DecodeAverageLuminance(GPUExposureState{})
	assert.False(t, ok)
	assert.Zero(t, EncodeContribution(-1, 4))
	assert.Equal(t, float32(0), PixelLuminance(float32(math.NaN()), 0, 0, 64))
	assert.Equal(t, float32(64), PixelLuminance(1000, 1000, 1000, 64))
}

func TestLogLuminanceRange(t *testing.T) {
	assert.Equal(t, float32(0), LogLuminance(0))
	assert.Equal(t, float32(0), LogLuminance(MinAverageLuminance/2))
	assert.InDelta(t, LogLuminanceRange, LogLuminance(MaxLuminanceLimit), 1e-5)

	// a full frame at the luminance ceiling must not overflow the u32 accumulator
	assert.Less(t, float64(LogLuminanceRange)*FixedPointScale, float64(math.MaxUint32))
}

// meterUniformFrame runs the accumulation tile loop over a uniform frame and decodes the result.
func meterUniformFrame(width, height int, luminance float32) (float32, bool) {
	countX, countY := TileCounts(width, height)
	tileCount := countX * countY
	logLum := float64(LogLuminance(luminance))

	var state GPUExposureState
	for _, tile := range Tiles(width, height) {
		x0, y0, x1, y1 := tile.Pixels(width, height)
		pixels := float64((x1 - x0) * (y1 - y0))
		state.Luminance += EncodeContribution(logLum*pixels, tileCount)
		state.Importance += EncodeContribution(pixels, tileCount)
	}
	return DecodeAverageLuminance(state)
}

func TestDarkFramesMeterAtEveryResolution(t *testing.T) {
	s := DefaultSettings()
	for _, size := range [][2]int{{1920, 1080}, {4096, 4096}, {37, 23}} {
		for _, lum := range []float32{0.001, 0.0015, 0.003, 0.18, 40} {
			avg, ok := meterUniformFrame(size[0], size[1], lum)
			require.True(t, ok)
			assert.InEpsilon(t, lum, avg, 1e-3, "%dx%d at %g", size[0], size[1], lum)

			want := float32(math.Log2(float64(lum / s.TargetGray)))
			assert.InDelta(t, want, TargetEV(avg, s), 1e-3, "%dx%d at %g", size[0], size[1], lum)
		}
	}
}
