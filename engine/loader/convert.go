package loader

import (
	"image"
	"image/color"
	"sync"

	"github.com/Carmen-Shannon/oxy-exposure/common"
	xdraw "golang.org/x/image/draw"
)

// srgbTable maps every 16-bit sRGB code value to linear light.
var srgbTable = sync.OnceValue(func() []float32 {
	t := make([]float32, 1<<16)
	for i := range t {
		t[i] = common.SRGBToLinear(float32(i) / 0xffff)
	}
	return t
})

// ToColorImage converts a decoded sRGB image to a linear-light ColorImage. Alpha is carried over
// unpremultiplied.
//
// Parameters:
//   - src: the decoded image
//
// Returns:
//   - *common.ColorImage: the linear image, with its origin at the top-left of src's bounds
func ToColorImage(src image.Image) *common.ColorImage {
	b := src.Bounds()
	lut := srgbTable()
	img := common.NewColorImage(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBA64Model.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
			i := img.PixOffset(x, y)
			img.Pix[i] = lut[c.R]
			img.Pix[i+1] = lut[c.G]
			img.Pix[i+2] = lut[c.B]
			img.Pix[i+3] = float32(c.A) / 0xffff
		}
	}
	return img
}

// FromColorImage encodes a linear ColorImage to a 16-bit sRGB image. Channels are clamped to [0, 1].
//
// Parameters:
//   - img: the linear image
//
// Returns:
//   - image.Image: an *image.NRGBA64 ready for any encoder
func FromColorImage(img *common.ColorImage) image.Image {
	dst := image.NewNRGBA64(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			p := img.At(x, y)
			dst.SetNRGBA64(x, y, color.NRGBA64{
				R: quantize(common.LinearToSRGB(p[0])),
				G: quantize(common.LinearToSRGB(p[1])),
				B: quantize(common.LinearToSRGB(p[2])),
				A: quantize(common.Saturate(p[3])),
			})
		}
	}
	return dst
}

// ToImportanceMask reads gray levels as weights in [0, 1]. Color sources are reduced to luma first.
func ToImportanceMask(src image.Image) *common.ImportanceMask {
	b := src.Bounds()
	mask := common.NewImportanceMask(b.Dx(), b.Dy(), 0)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g := color.Gray16Model.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			mask.Weights[y*mask.Width+x] = float32(g.Y) / 0xffff
		}
	}
	return mask
}

// Resize scales src to width x height with a Catmull-Rom filter, keeping 16 bits per channel.
//
// Parameters:
//   - src: the image to scale
//   - width: the target width
//   - height: the target height
//
// Returns:
//   - image.Image: the scaled *image.NRGBA64
func Resize(src image.Image, width, height int) image.Image {
	dst := image.NewNRGBA64(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

func quantize(v float32) uint16 {
	return uint16(common.Clamp(v, 0, 1)*0xffff + 0.5)
}
