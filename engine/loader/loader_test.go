package loader

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-exposure/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func gradient(width, height int) *common.ColorImage {
	img := common.NewColorImage(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := float32(x+y) / float32(width+height)
			img.Set(x, y, [4]float32{v, v * 0.5, 1 - v, 1})
		}
	}
	return img
}

func assertImagesClose(t *testing.T, want, got *common.ColorImage, delta float64) {
	t.Helper()
	require.Equal(t, want.Width, got.Width)
	require.Equal(t, want.Height, got.Height)
	for i := range want.Pix {
		require.InDelta(t, want.Pix[i], got.Pix[i], delta, "channel %d", i)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	src := gradient(12, 7)
	for _, name := range []string{"frame.png", "frame.tiff"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			l := NewLoader(BackendTypeImage)
			require.NoError(t, l.Save(path, src))

			got, err := l.Load(path)
			require.NoError(t, err)
			assertImagesClose(t, src, got, 1e-3)
			assert.Equal(t, []string{path}, l.Images())
		})
	}
}

func TestLoadDecodesBMP(t *testing.T) {
	rgba := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			rgba.SetNRGBA(x, y, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, rgba))

	img, err := NewLoader(BackendTypeImage).LoadReader("gray.bmp", &buf)
	require.NoError(t, err)
	want := common.SRGBToLinear(128.0 / 255)
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			p := img.At(x, y)
			assert.InDelta(t, want, p[0], 1e-5)
			assert.InDelta(t, want, p[1], 1e-5)
			assert.Equal(t, float32(1), p[3])
		}
	}
}

func TestLoadAppliesSizeAndIntensity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flat.png")
	require.NoError(t, NewLoader(BackendTypeImage).Save(path, common.NewUniformColorImage(40, 30, 0.25)))

	img, err := NewLoader(BackendTypeImage, WithSize(20, 10), WithIntensity(4)).Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20, img.Width)
	assert.Equal(t, 10, img.Height)
	assert.InDelta(t, 1, img.At(7, 3)[1], 1e-2)
	assert.InDelta(t, 1, img.MeanLuminance(), 1e-2)
}

func TestLoadReturnsIndependentCopies(t *testing.T) {
	l := NewLoader(BackendTypeImage, WithImage("card", common.NewUniformColorImage(4, 4, 0.18)))

	a, err := l.Load("card")
	require.NoError(t, err)
	a.Fill(9, 9, 9, 1)

	b := l.Get("card")
	require.NotNil(t, b)
	assert.Equal(t, float32(0.18), b.At(2, 2)[0])
	assert.Nil(t, l.Get("missing"))
}

func TestLoadMask(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 4; x < 8; x++ {
			gray.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "mask.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, newImageLoaderBackend().Encode(f, gray, "png"))
	require.NoError(t, f.Close())

	l := NewLoader(BackendTypeImage)
	mask, err := l.LoadMask(path, 8, 8)
	require.NoError(t, err)
	assert.Equal(t, float32(0), mask.At(1, 5))
	assert.Equal(t, float32(1), mask.At(6, 5))

	scaled, err := l.LoadMask(path, 16, 4)
	require.NoError(t, err)
	assert.Equal(t, 16, scaled.Width)
	assert.Equal(t, 4, scaled.Height)
	assert.Len(t, scaled.Weights, 64)
}

func TestUnsupportedFormats(t *testing.T) {
	l := NewLoader(BackendTypeImage)
	err := l.Save(filepath.Join(t.TempDir(), "frame.gif"), common.NewUniformColorImage(2, 2, 1))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = l.LoadReader("junk", bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)

	_, err = l.Load(filepath.Join(t.TempDir(), "absent.png"))
	assert.Error(t, err)
}

func TestFromColorImageClamps(t *testing.T) {
	img := common.NewColorImage(2, 1)
	img.Set(0, 0, [4]float32{-1, 0.5, 8, 1})
	img.Set(1, 0, [4]float32{0, 0, 0, 0.5})

	out := FromColorImage(img).(*image.NRGBA64)
	c := out.NRGBA64At(0, 0)
	assert.Equal(t, uint16(0), c.R)
	assert.Equal(t, uint16(0xffff), c.B)
	assert.Equal(t, uint16(0x8000), out.NRGBA64At(1, 0).A)
}
