package exposure

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkGroupCountsRoundUp(t *testing.T) {
	cases := []struct {
		w, h int
		want [3]uint32
	}{
		{1, 1, [3]uint32{1, 1, 1}},
		{16, 16, [3]uint32{1, 1, 1}},
		{17, 16, [3]uint32{2, 1, 1}},
		{1920, 1080, [3]uint32{120, 68, 1}},
		{1366, 768, [3]uint32{86, 48, 1}},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, WorkGroupCounts(c.w, c.h), "%dx%d", c.w, c.h)
	}
}

func TestTilesCoverEveryPixelExactlyOnce(t *testing.T) {
	for _, size := range [][2]int{{1, 1}, {15, 17}, {16, 16}, {33, 5}, {100, 37}} {
		w, h := size[0], size[1]
		hits := make([]int, w*h)
		for _, tile := range Tiles(w, h) {
			x0, y0, x1, y1 := tile.Pixels(w, h)
			assert.LessOrEqual(t, x1, w)
			assert.LessOrEqual(t, y1, h)
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					hits[y*w+x]++
				}
			}
		}
		for i, n := range hits {
			assert.Equal(t, 1, n, "%dx%d pixel %d", w, h, i)
		}
		tx, ty := TileCounts(w, h)
		assert.Len(t, Tiles(w, h), int(tx*ty))
	}
}

func TestPartialTileIsMasked(t *testing.T) {
	// the last tile of a 17 pixel row only owns one column
	x0, _, x1, _ := Tile{X: 1, Y: 0}.Pixels(17, 16)
	assert.Equal(t, 16, x0)
	assert.Equal(t, 17, x1)
}

func TestDispatchSizePerKernel(t *testing.T) {
	assert.Equal(t, [3]uint32{1, 1, 1}, DispatchSize(KernelComputeTargetEV, 1920, 1080))
	assert.Equal(t, WorkGroupCounts(1920, 1080), DispatchSize(KernelAccumulateLuminance, 1920, 1080))
	assert.Equal(t, WorkGroupCounts(1920, 1080), DispatchSize(KernelApplyExposure, 1920, 1080))
}

func TestValidateResolution(t *testing.T) {
	assert.NoError(t, ValidateResolution(1, 1))
	assert.True(t, errors.Is(ValidateResolution(0, 10), ErrInvalidResolution))
	assert.True(t, errors.Is(ValidateResolution(10, -1), ErrInvalidResolution))
}
