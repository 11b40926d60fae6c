package exposure

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// meteredState returns a state whose accumulators encode the given average luminance.
func meteredState(historyEV, avg float32) GPUExposureState {
	const weight = 1 << 20
	return GPUExposureState{
		Importance: weight,
		Luminance:  uint32(math.Round(float64(LogLuminance(avg)) * weight)),
		HistoryEV:  historyEV,
		Exposure:   ExposureFromEV(historyEV),
	}
}

func TestTargetEVMapsAverageToTargetGray(t *testing.T) {
	s := DefaultSettings()
	ev := TargetEV(0.5, s)
	assert.InDelta(t, math.Log2(0.5/0.18), ev, 1e-5)
	assert.InDelta(t, 0.18/0.5, ExposureFromEV(ev), 1e-5)
}

func TestTargetEVClampsToRange(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, s.MinEV, TargetEV(0, s), "black frames clamp to min EV")
	assert.Equal(t, s.MaxEV, TargetEV(1e9, s))
}

func TestTargetEVCompensationBrightens(t *testing.T) {
	s := DefaultSettings()
	base := TargetEV(0.5, s)
	s.Compensation = 1
	assert.InDelta(t, base-1, TargetEV(0.5, s), 1e-6)
}

func TestSmoothingIsFrameRateIndependent(t *testing.T) {
	s := DefaultSettings()
	for _, d := range []float32{0.001, 0.008, 0.016, 0.033} {
		once := meteredState(0, 0.5)
		Step(&once, 2*d, s)

		twice := meteredState(0, 0.5)
		Step(&twice, d, s)
		twice.Importance, twice.Luminance = meteredState(0, 0.5).Importance, meteredState(0, 0.5).Luminance
		Step(&twice, d, s)

		assert.InDelta(t, once.HistoryEV, twice.HistoryEV, 1e-5, "d=%g", d)
	}
}

func TestSmoothingAlphaComposes(t *testing.T) {
	d, tau := float32(0.02), float32(0.7)
	a1 := SmoothingAlpha(d, tau)
	a2 := SmoothingAlpha(2*d, tau)
	assert.InDelta(t, 1-(1-a1)*(1-a1), a2, 1e-6)
	assert.Zero(t, SmoothingAlpha(0, tau))
	assert.Zero(t, SmoothingAlpha(-1, tau))
}

func TestExposureAlwaysPositive(t *testing.T) {
	for _, ev := range []float32{-1e30, -500, -126, -1, 0, 1, 126, 149, 500, 1e30, math.MaxFloat32} {
		e := ExposureFromEV(ev)
		assert.Greater(t, e, float32(0), "ev=%g", ev)
		assert.False(t, math.IsInf(float64(e), 0), "ev=%g", ev)
	}
}

func TestStepIdempotentAtTarget(t *testing.T) {
	s := DefaultSettings()
	target := TargetEV(0.5, s)
	state := meteredState(target, 0.5)
	Step(&state, 0.016, s)
	assert.InDelta(t, target, state.HistoryEV, 1e-6)
}

func TestStepWithoutImportanceKeepsHistory(t *testing.T) {
	s := DefaultSettings()
	state := GPUExposureState{HistoryEV: 2.5, Luminance: 0, Importance: 0}
	_, metered := Step(&state, 0.5, s)
	assert.False(t, metered)
	assert.Equal(t, float32(2.5), state.HistoryEV)
	assert.InDelta(t, math.Exp2(-2.5), state.Exposure, 1e-6)
}

func TestStepResetsAccumulators(t *testing.T) {
	state := meteredState(0, 0.25)
	Step(&state, 0.016, DefaultSettings())
	assert.Zero(t, state.Importance)
	assert.Zero(t, state.Luminance)
}

func TestGrayCardConvergesMonotonically(t *testing.T) {
	s := DefaultSettings()
	state := NewGPUExposureState()
	want := float32(0.18 / 0.5)

	prev := state.Exposure
	converged := -1
	for frame := 0; frame < 600; frame++ {
		fresh := meteredState(state.HistoryEV, 0.5)
		state.Importance, state.Luminance = fresh.Importance, fresh.Luminance
		Step(&state, 0.016, s)

		require.LessOrEqual(t, state.Exposure, prev, "frame %d moved away from target", frame)
		require.GreaterOrEqual(t, state.Exposure, want-1e-4)
		prev = state.Exposure
		if converged < 0 && math.Abs(float64(state.Exposure-want)) < 0.01*float64(want) {
			converged = frame
		}
	}
	require.GreaterOrEqual(t, converged, 0, "exposure never converged")
	// tau=1.1s: 1% of a 1.47 EV error is reached after roughly 7 time constants
	assert.Less(t, converged, 500)
	assert.InDelta(t, want, state.Exposure, 1e-3)
}

func TestBlackToWhiteIsBounded(t *testing.T) {
	s := DefaultSettings()
	dt := float32(0.016)
	bound := SmoothingAlpha(dt, s.Tau) * (s.MaxEV - s.MinEV)

	state := NewGPUExposureState()
	for _, avg := range []float32{0, 1} {
		before := state.HistoryEV
		fresh := meteredState(before, avg)
		state.Importance, state.Luminance = fresh.Importance, fresh.Luminance
		Step(&state, dt, s)

		delta := float32(math.Abs(float64(state.HistoryEV - before)))
		assert.LessOrEqual(t, delta, bound+1e-6)
		assert.Less(t, delta, float32(0.5), "single-frame EV jump")
	}
}
