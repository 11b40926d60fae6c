package common

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// Rec. 709 luma coefficients for linear RGB.
const (
	LumaR float32 = 0.2126
	LumaG float32 = 0.7152
	LumaB float32 = 0.0722
)

// Luminance returns the Rec. 709 relative luminance of a linear RGB triple.
//
// Parameters:
//   - r, g, b: linear color channels
//
// Returns:
//   - float32: the relative luminance
func Luminance(r, g, b float32) float32 {
	return LumaR*r + LumaG*g + LumaB*b
}

// SRGBToLinear converts a single sRGB-encoded channel in [0, 1] to linear light.
// See https://www.w3.org/Graphics/Color/srgb for the transfer function.
func SRGBToLinear(v float32) float32 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return float32(math.Pow((float64(v)+0.055)/1.055, 2.4))
}

// LinearToSRGB converts a single linear channel to sRGB encoding. Input is clamped to [0, 1].
func LinearToSRGB(v float32) float32 {
	v = Saturate(v)
	if v <= 0.0031308 {
		return v * 12.92
	}
	return float32(1.055*math.Pow(float64(v), 1/2.4) - 0.055)
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// BytesToFloat32s decodes little-endian float32 values from data into dst.
// Decoding stops at whichever of dst or data runs out first.
//
// Parameters:
//   - dst: destination slice
//   - data: little-endian encoded float32 values, typically read back from a GPU buffer
//
// Returns:
//   - int: the number of values written
func BytesToFloat32s(dst []float32, data []byte) int {
	n := min(len(dst), len(data)/4)
	for i := 0; i < n; i++ {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : i*4+4]))
	}
	return n
}
