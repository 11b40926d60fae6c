package exposure

import (
	"fmt"
	"math"
)

// Default tuning values.
const (
	DefaultTau          float32 = 1.1
	DefaultTargetGray   float32 = 0.18
	DefaultMinEV        float32 = -8
	DefaultMaxEV        float32 = 12
	DefaultMaxLuminance float32 = 64
	DefaultOutputMax    float32 = 1

	// MaxLuminanceLimit bounds Settings.MaxLuminance so the fixed-point luminance total
	// stays below 2^32 (LogLuminanceRange * FixedPointScale).
	MaxLuminanceLimit float32 = 128
)

// Settings holds the tunable parameters of the exposure controller.
type Settings struct {
	// Tau is the smoothing time constant in seconds. Larger values adapt more slowly.
	Tau float32
	// TargetGray is the luminance the metered scene average is mapped to.
	TargetGray float32
	// MinEV and MaxEV clamp the instantaneous target EV.
	MinEV, MaxEV float32
	// Compensation is an EV bias; positive values brighten the result.
	Compensation float32
	// MaxLuminance clamps per-pixel luminance before accumulation.
	MaxLuminance float32
	// OutputMax is the upper bound each channel is clamped to after exposure is applied.
	OutputMax float32
	// Metering selects the per-pixel weighting function.
	Metering MeteringMode
}

// DefaultSettings returns the default controller configuration.
func DefaultSettings() Settings {
	return Settings{
		Tau:          DefaultTau,
		TargetGray:   DefaultTargetGray,
		MinEV:        DefaultMinEV,
		MaxEV:        DefaultMaxEV,
		MaxLuminance: DefaultMaxLuminance,
		OutputMax:    DefaultOutputMax,
		Metering:     MeteringAverage,
	}
}

// Validate reports the first invalid field, wrapped in ErrInvalidSettings.
//
// Returns:
//   - error: nil if the settings are usable
func (s Settings) Validate() error {
	finite := func(v float32) bool {
		return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
	}
	for name, v := range map[string]float32{
		"tau": s.Tau, "target gray": s.TargetGray, "min EV": s.MinEV, "max EV": s.MaxEV,
		"compensation": s.Compensation, "max luminance": s.MaxLuminance, "output max": s.OutputMax,
	} {
		if !finite(v) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidSettings, name)
		}
	}
	switch {
	case s.Tau <= 0:
		return fmt.Errorf("%w: tau must be positive, got %g", ErrInvalidSettings, s.Tau)
	case s.TargetGray <= 0:
		return fmt.Errorf("%w: target gray must be positive, got %g", ErrInvalidSettings, s.TargetGray)
	case s.MinEV > s.MaxEV:
		return fmt.Errorf("%w: min EV %g exceeds max EV %g", ErrInvalidSettings, s.MinEV, s.MaxEV)
	case s.MaxLuminance <= 0 || s.MaxLuminance > MaxLuminanceLimit:
		return fmt.Errorf("%w: max luminance must be in (0, %g], got %g", ErrInvalidSettings, MaxLuminanceLimit, s.MaxLuminance)
	case s.OutputMax <= 0:
		return fmt.Errorf("%w: output max must be positive, got %g", ErrInvalidSettings, s.OutputMax)
	case !s.Metering.Valid():
		return fmt.Errorf("%w: unknown metering mode %d", ErrInvalidSettings, uint32(s.Metering))
	}
	return nil
}

// GPU converts the settings to their uniform buffer representation.
func (s Settings) GPU() GPUExposureSettings {
	return GPUExposureSettings{
		Tau:          s.Tau,
		TargetGray:   s.TargetGray,
		MinEV:        s.MinEV,
		MaxEV:        s.MaxEV,
		Compensation: s.Compensation,
		MaxLuminance: s.MaxLuminance,
		OutputMax:    s.OutputMax,
		Metering:     uint32(s.Metering),
	}
}
