package exposure

import (
	"math"

	"github.com/Carmen-Shannon/oxy-exposure/common"
)

// FixedPointScale converts normalized accumulation contributions to integers for u32 atomics.
// A work-group adds its tile sum divided by TilePixels*tileCount, so the importance total never
// exceeds FixedPointScale and the luminance total never exceeds LogLuminanceRange *
// FixedPointScale, just under 2^32 at MaxLuminanceLimit.
const FixedPointScale = 1 << 27

// LogLuminanceRange is the largest value LogLuminance returns, log2(MaxLuminanceLimit /
// MinAverageLuminance).
var LogLuminanceRange = float32(math.Log2(float64(MaxLuminanceLimit) / float64(MinAverageLuminance)))

// PixelLuminance returns the clamped Rec. 709 luminance of a linear RGB pixel, as sampled by
// the accumulation kernel. NaN inputs meter as black.
//
// Parameters:
//   - r, g, b: linear color channels
//   - maxLuminance: the upper clamp, Settings.MaxLuminance
//
// Returns:
//   - float32: luminance in [0, maxLuminance]
func PixelLuminance(r, g, b, maxLuminance float32) float32 {
	l := common.Luminance(r, g, b)
	if l != l {
		return 0
	}
	return common.Clamp(l, 0, maxLuminance)
}

// LogLuminance maps a pixel luminance to the non-negative log2 value the accumulators sum,
// log2(l / MinAverageLuminance). Luminance at or below the floor maps to 0.
//
// Parameters:
//   - l: a luminance from PixelLuminance
//
// Returns:
//   - float32: the offset log2 luminance in [0, LogLuminanceRange]
func LogLuminance(l float32) float32 {
	return float32(math.Log2(float64(max(l, MinAverageLuminance)) / float64(MinAverageLuminance)))
}

// EncodeContribution converts a work-group's reduced sum into the fixed-point value it adds
// to the shared state.
//
// Parameters:
//   - tileSum: the sum over the tile's work-items (weighted log luminance or weight)
//   - tileCount: the number of work-groups in the grid
//
// Returns:
//   - uint32: the rounded fixed-point contribution
func EncodeContribution(tileSum float64, tileCount uint32) uint32 {
	if tileCount == 0 || tileSum <= 0 {
		return 0
	}
	return uint32(math.Round(tileSum / float64(TilePixels*uint64(tileCount)) * FixedPointScale))
}

// DecodeAverageLuminance returns the importance-weighted log-average luminance held in an
// accumulated state. The fixed-point scale cancels in the ratio of the two fields.
//
// Parameters:
//   - s: a state after accumulation and before ComputeTargetEV resets it
//
// Returns:
//   - float32: the weighted geometric mean luminance, at least MinAverageLuminance
//   - bool: false when no pixel carried any weight
func DecodeAverageLuminance(s GPUExposureState) (float32, bool) {
	if s.Importance == 0 {
		return 0, false
	}
	meanLog := float64(s.Luminance) / float64(s.Importance)
	return float32(float64(MinAverageLuminance) * math.Exp2(meanLog)), true
}
