package common

import "cmp"

// Integer is the set of integer types accepted by CeilDiv.
type Integer interface {
	~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64
}

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// CeilDiv divides n by d rounding up. Used to size dispatch grids so that a partial
// trailing tile still receives a work-group. d must be positive.
//
// Parameters:
//   - n: the dividend
//   - d: the divisor
//
// Returns:
//   - T: the smallest integer q such that q*d >= n
func CeilDiv[T Integer](n, d T) T {
	return (n + d - 1) / d
}

// Clamp limits v to the closed range [lo, hi].
//
// Parameters:
//   - v: the value to clamp
//   - lo: the lower bound
//   - hi: the upper bound
//
// Returns:
//   - T: v limited to [lo, hi]
func Clamp[T cmp.Ordered](v, lo, hi T) T {
	return min(max(v, lo), hi)
}

// Lerp linearly interpolates from a to b by t. t is not clamped.
//
// Parameters:
//   - a: the start value
//   - b: the end value
//   - t: the interpolation factor
//
// Returns:
//   - float32: a + (b-a)*t
func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

// Saturate clamps v to [0, 1].
func Saturate(v float32) float32 {
	return Clamp(v, 0, 1)
}

// Smoothstep performs Hermite interpolation between edge0 and edge1, matching the
// WGSL builtin of the same name.
//
// Parameters:
//   - edge0: the lower edge
//   - edge1: the upper edge
//   - x: the input value
//
// Returns:
//   - float32: 0 below edge0, 1 above edge1, and a smooth curve in between
func Smoothstep(edge0, edge1, x float32) float32 {
	t := Saturate((x - edge0) / (edge1 - edge0))
	return t * t * (3 - 2*t)
}
