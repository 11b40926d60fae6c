package auto_exposure

import (
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/Carmen-Shannon/oxy-exposure/common"
	"github.com/Carmen-Shannon/oxy-exposure/engine/exposure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noiseImage fills an image with deterministic pseudo-random HDR values, including a few
// pixels above the luminance clamp.
func noiseImage(width, height int, seed int64) *common.ColorImage {
	rng := rand.New(rand.NewSource(seed))
	img := common.NewColorImage(width, height)
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = rng.Float32() * 4
		img.Pix[i+1] = rng.Float32() * 4
		img.Pix[i+2] = rng.Float32() * 4
		img.Pix[i+3] = 1
	}
	img.Set(0, 0, [4]float32{500, 500, 500, 1})
	return img
}

func accumulateInOrder(t *testing.T, img *common.ColorImage, s exposure.Settings, order func([]exposure.Tile) []exposure.Tile) exposure.GPUExposureState {
	t.Helper()
	b := newSoftwareAutoExposureBackend(4)
	defer b.Release()

	require.NoError(t, b.WriteSettings(s))
	require.NoError(t, b.BeginFrame(Frame{Color: img, DeltaTime: 1.0 / 60}))
	b.accumulateTiles(order(slices.Clone(b.tiles)))
	return b.state
}

func TestSoftwareAccumulationIsOrderIndependent(t *testing.T) {
	// 37x23 leaves partial tiles on both the right and bottom edges
	img := noiseImage(37, 23, 7)
	for _, mode := range []exposure.MeteringMode{exposure.MeteringAverage, exposure.MeteringCenterWeighted, exposure.MeteringSpot} {
		t.Run(mode.String(), func(t *testing.T) {
			s := exposure.DefaultSettings()
			s.Metering = mode

			rowMajor := accumulateInOrder(t, img, s, func(tiles []exposure.Tile) []exposure.Tile { return tiles })
			reversed := accumulateInOrder(t, img, s, func(tiles []exposure.Tile) []exposure.Tile {
				slices.Reverse(tiles)
				return tiles
			})
			shuffled := accumulateInOrder(t, img, s, func(tiles []exposure.Tile) []exposure.Tile {
				rand.New(rand.NewSource(42)).Shuffle(len(tiles), func(i, j int) { tiles[i], tiles[j] = tiles[j], tiles[i] })
				return tiles
			})

			require.NotZero(t, rowMajor.Importance)
			assert.Equal(t, rowMajor, reversed)
			assert.Equal(t, rowMajor, shuffled)
		})
	}
}

func TestSoftwareAccumulationMatchesWeightedLogMean(t *testing.T) {
	img := noiseImage(40, 33, 3)
	s := exposure.DefaultSettings()
	state := accumulateInOrder(t, img, s, func(tiles []exposure.Tile) []exposure.Tile { return tiles })

	var sum float64
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			p := img.At(x, y)
			sum += math.Log2(float64(max(exposure.PixelLuminance(p[0], p[1], p[2], s.MaxLuminance), exposure.MinAverageLuminance)))
		}
	}
	want := math.Exp2(sum / float64(img.Width*img.Height))

	avg, ok := exposure.DecodeAverageLuminance(state)
	require.True(t, ok)
	assert.InDelta(t, want, avg, 1e-3)
}

func TestSoftwarePartialTilesCoverEveryPixelOnce(t *testing.T) {
	img := common.NewUniformColorImage(17, 17, 0.5)
	a, err := NewAutoExposure(WithBackend(BackendTypeSoftware), WithWorkers(3))
	require.NoError(t, err)
	defer a.Release()

	stats, err := a.Render(Frame{Color: img, DeltaTime: 0.5})
	require.NoError(t, err)

	assert.Equal(t, [3]uint32{2, 2, 1}, stats.WorkGroups)
	require.True(t, stats.Metered)
	assert.InDelta(t, 0.5, stats.AverageLuminance, 1e-5)

	want := common.Clamp(0.5*stats.Exposure(), 0, 1)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			p := img.At(x, y)
			require.InDelta(t, want, p[0], 1e-6, "pixel %d,%d", x, y)
			require.InDelta(t, want, p[2], 1e-6, "pixel %d,%d", x, y)
			require.Equal(t, float32(1), p[3], "alpha must be preserved")
		}
	}
}
