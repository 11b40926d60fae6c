package source

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-exposure/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticSourceServesCopies(t *testing.T) {
	src, err := NewStaticSource(common.NewUniformColorImage(4, 4, 0.5), WithIntensity(2))
	require.NoError(t, err)

	a := src.Next(0.1)
	assert.Equal(t, float32(1), a.At(1, 1)[0])
	assert.Equal(t, float32(1), a.At(1, 1)[3], "alpha is not scaled")
	a.Fill(0, 0, 0, 1)

	b := src.Next(0.1)
	assert.Equal(t, float32(1), b.At(1, 1)[0])
	assert.Equal(t, 2, src.Frames())

	src.SetIntensity(0)
	assert.Equal(t, float32(2), src.Intensity())
	src.SetIntensity(0.5)
	assert.Equal(t, float32(0.25), src.Next(0.1).At(0, 0)[2])
}

func TestSequenceSourceHoldsEachImage(t *testing.T) {
	black := common.NewUniformColorImage(2, 2, 0)
	white := common.NewUniformColorImage(2, 2, 1)

	src, err := NewSequenceSource([]*common.ColorImage{black, white}, 3, false)
	require.NoError(t, err)

	var got []float32
	for i := 0; i < 8; i++ {
		got = append(got, src.Next(1.0/60).At(0, 0)[0])
	}
	assert.Equal(t, []float32{0, 0, 0, 1, 1, 1, 1, 1}, got)

	src.Reset()
	assert.Zero(t, src.Frames())
	assert.Equal(t, float32(0), src.Next(1.0/60).At(0, 0)[0])
}

func TestSequenceSourceLoops(t *testing.T) {
	imgs := []*common.ColorImage{
		common.NewUniformColorImage(1, 1, 1),
		common.NewUniformColorImage(1, 1, 2),
		common.NewUniformColorImage(1, 1, 3),
	}
	src, err := NewSequenceSource(imgs, 2, true)
	require.NoError(t, err)

	var got []float32
	for i := 0; i < 8; i++ {
		got = append(got, src.Next(0).At(0, 0)[1])
	}
	assert.Equal(t, []float32{1, 1, 2, 2, 3, 3, 1, 1}, got)
}

func TestPulseSourceFollowsElapsedTime(t *testing.T) {
	img := common.NewUniformColorImage(2, 2, 1)

	coarse, err := NewPulseSource(img, 0.25, 4, 1)
	require.NoError(t, err)
	fine, err := NewPulseSource(img, 0.25, 4, 1)
	require.NoError(t, err)

	// 0.25s steps: low, low, high, high, low
	var c []float32
	for i := 0; i < 5; i++ {
		c = append(c, coarse.Next(0.25).At(0, 0)[0])
	}
	assert.Equal(t, []float32{0.25, 0.25, 4, 4, 0.25}, c)

	// 0.125s steps land on the same gains at the same instants
	for i := 0; i < 10; i++ {
		v := fine.Next(0.125).At(0, 0)[0]
		if i%2 == 0 {
			assert.Equal(t, c[i/2], v, "t=%g", float64(i)*0.125)
		}
	}
}

func TestSourceConstructionErrors(t *testing.T) {
	_, err := NewStaticSource(nil)
	assert.ErrorIs(t, err, ErrNoImages)

	_, err = NewSequenceSource(nil, 1, false)
	assert.ErrorIs(t, err, ErrNoImages)

	_, err = NewSequenceSource([]*common.ColorImage{common.NewUniformColorImage(1, 1, 1)}, 0, false)
	assert.Error(t, err)

	_, err = NewPulseSource(common.NewUniformColorImage(1, 1, 1), 1, 2, 0)
	assert.Error(t, err)

	_, err = NewStaticSource(common.NewUniformColorImage(4, 4, 1), WithMask(common.NewImportanceMask(2, 2, 1)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mask")

	mask := common.NewImportanceMask(4, 4, 1)
	src, err := NewStaticSource(common.NewUniformColorImage(4, 4, 1), WithMask(mask))
	require.NoError(t, err)
	assert.Same(t, mask, src.Mask())
}
