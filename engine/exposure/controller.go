package exposure

import (
	"math"

	"github.com/Carmen-Shannon/oxy-exposure/common"
)

// MinAverageLuminance is the luminance floor applied before taking log2, both per pixel
// during accumulation and on the metered average, so black resolves to MinEV instead of
// negative infinity.
const MinAverageLuminance float32 = 1e-6

// The exp2 argument is clamped to the normal float32 exponent range so the factor is
// always finite and strictly positive.
const (
	minExposureLog2 = -126
	maxExposureLog2 = 127
)

// TargetEV returns the instantaneous exposure value that maps avgLuminance to the target gray,
// biased by the compensation and clamped to the configured EV range.
//
// Parameters:
//   - avgLuminance: the metered weighted log-average luminance
//   - s: controller settings
//
// Returns:
//   - float32: the target EV in log2 space
func TargetEV(avgLuminance float32, s Settings) float32 {
	avg := max(avgLuminance, MinAverageLuminance)
	ev := float32(math.Log2(float64(avg/s.TargetGray))) - s.Compensation
	return common.Clamp(ev, s.MinEV, s.MaxEV)
}

// SmoothingAlpha returns the blend factor 1 - exp(-dt/tau). Composing two steps of d gives
// exactly the factor of one step of 2d, which makes convergence frame-rate independent.
//
// Parameters:
//   - deltaTime: seconds elapsed since the previous step
//   - tau: the smoothing time constant in seconds
//
// Returns:
//   - float32: the factor in [0, 1)
func SmoothingAlpha(deltaTime, tau float32) float32 {
	if deltaTime <= 0 {
		return 0
	}
	return float32(1 - math.Exp(-float64(deltaTime)/float64(tau)))
}

// ExposureFromEV converts an EV to the multiplicative factor 2^-ev.
//
// Parameters:
//   - ev: the exposure value
//
// Returns:
//   - float32: the factor, always finite and > 0
func ExposureFromEV(ev float32) float32 {
	e := common.Clamp(-float64(ev), minExposureLog2, maxExposureLog2)
	return float32(math.Exp2(e))
}

// Step advances the controller by one frame in place. It is the host-side mirror of the
// ComputeTargetEV kernel: when the frame carried any metering weight the EV history moves
// toward the target, the exposure factor is re-derived, and the accumulators are zeroed for
// the next frame's accumulation.
//
// Parameters:
//   - state: the persistent exposure state, updated in place
//   - deltaTime: seconds since the previous frame
//   - s: controller settings
//
// Returns:
//   - float32: the target EV this step moved toward, or the unchanged history if nothing was metered
//   - bool: true if the frame was metered
func Step(state *GPUExposureState, deltaTime float32, s Settings) (float32, bool) {
	target := state.HistoryEV
	avg, metered := DecodeAverageLuminance(*state)
	if metered {
		target = TargetEV(avg, s)
		alpha := SmoothingAlpha(deltaTime, s.Tau)
		state.HistoryEV = common.Lerp(state.HistoryEV, target, alpha)
	}
	state.Exposure = ExposureFromEV(state.HistoryEV)
	state.Importance = 0
	state.Luminance = 0
	return target, metered
}
