// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"fmt"
	"image"
)

// ColorImage is a linear-light RGBA float32 image stored row-major, four floats per pixel.
// It is the frame format consumed and produced by the auto exposure pass and matches the
// array<vec4<f32>> color buffer the kernels operate on.
type ColorImage struct {
	// Pix holds the pixel data, 4 floats (r, g, b, a) per pixel.
	Pix []float32
	// Width is the image width in pixels.
	Width int
	// Height is the image height in pixels.
	Height int
}

// NewColorImage allocates a zeroed ColorImage.
//
// Parameters:
//   - width: image width in pixels
//   - height: image height in pixels
//
// Returns:
//   - *ColorImage: the allocated image
func NewColorImage(width, height int) *ColorImage {
	return &ColorImage{
		Pix:    make([]float32, width*height*4),
		Width:  width,
		Height: height,
	}
}

// NewUniformColorImage allocates an image where every pixel has the same gray value and alpha 1.
//
// Parameters:
//   - width: image width in pixels
//   - height: image height in pixels
//   - value: the linear gray level written to r, g and b
//
// Returns:
//   - *ColorImage: the filled image
func NewUniformColorImage(width, height int, value float32) *ColorImage {
	img := NewColorImage(width, height)
	img.Fill(value, value, value, 1)
	return img
}

// Bounds returns the image rectangle anchored at the origin.
func (c *ColorImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.Width, c.Height)
}

// Validate checks that the dimensions are positive and the pixel slice matches them.
//
// Returns:
//   - error: a descriptive error if the image is malformed
func (c *ColorImage) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("image dimensions must be positive, got %dx%d", c.Width, c.Height)
	}
	if len(c.Pix) != c.Width*c.Height*4 {
		return fmt.Errorf("image pixel slice has %d floats, want %d", len(c.Pix), c.Width*c.Height*4)
	}
	return nil
}

// PixOffset returns the index of the red channel of pixel (x, y) in Pix.
func (c *ColorImage) PixOffset(x, y int) int {
	return (y*c.Width + x) * 4
}

// At returns the RGBA value of pixel (x, y).
func (c *ColorImage) At(x, y int) [4]float32 {
	i := c.PixOffset(x, y)
	return [4]float32{c.Pix[i], c.Pix[i+1], c.Pix[i+2], c.Pix[i+3]}
}

// Set writes the RGBA value of pixel (x, y).
func (c *ColorImage) Set(x, y int, rgba [4]float32) {
	i := c.PixOffset(x, y)
	copy(c.Pix[i:i+4], rgba[:])
}

// Fill writes the same RGBA value to every pixel.
func (c *ColorImage) Fill(r, g, b, a float32) {
	for i := 0; i < len(c.Pix); i += 4 {
		c.Pix[i], c.Pix[i+1], c.Pix[i+2], c.Pix[i+3] = r, g, b, a
	}
}

// Scale multiplies the rgb channels of every pixel by s. Alpha is untouched.
func (c *ColorImage) Scale(s float32) {
	for i := 0; i < len(c.Pix); i += 4 {
		c.Pix[i] *= s
		c.Pix[i+1] *= s
		c.Pix[i+2] *= s
	}
}

// CopyFrom overwrites the receiver with src, reallocating Pix if the sizes differ.
func (c *ColorImage) CopyFrom(src *ColorImage) {
	if cap(c.Pix) < len(src.Pix) {
		c.Pix = make([]float32, len(src.Pix))
	}
	c.Pix = c.Pix[:len(src.Pix)]
	copy(c.Pix, src.Pix)
	c.Width, c.Height = src.Width, src.Height
}

// Clone returns a deep copy of the image.
func (c *ColorImage) Clone() *ColorImage {
	out := &ColorImage{}
	out.CopyFrom(c)
	return out
}

// MeanLuminance returns the unweighted Rec. 709 mean luminance over all pixels.
func (c *ColorImage) MeanLuminance() float32 {
	n := c.Width * c.Height
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < len(c.Pix); i += 4 {
		sum += float64(Luminance(c.Pix[i], c.Pix[i+1], c.Pix[i+2]))
	}
	return float32(sum / float64(n))
}

// ImportanceMask is a per-pixel metering weight map. Values are clamped to [0, 1] by the
// accumulator; a weight of 0 excludes a pixel from the luminance average entirely.
type ImportanceMask struct {
	// Weights holds one weight per pixel, row-major.
	Weights []float32
	// Width is the mask width in pixels.
	Width int
	// Height is the mask height in pixels.
	Height int
}

// NewImportanceMask allocates a mask with every weight set to value.
func NewImportanceMask(width, height int, value float32) *ImportanceMask {
	m := &ImportanceMask{
		Weights: make([]float32, width*height),
		Width:   width,
		Height:  height,
	}
	for i := range m.Weights {
		m.Weights[i] = value
	}
	return m
}

// Matches reports whether the mask has the same dimensions as img.
func (m *ImportanceMask) Matches(img *ColorImage) bool {
	return m.Width == img.Width && m.Height == img.Height && len(m.Weights) == m.Width*m.Height
}

// At returns the weight of pixel (x, y).
func (m *ImportanceMask) At(x, y int) float32 {
	return m.Weights[y*m.Width+x]
}
