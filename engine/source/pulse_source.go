package source

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-exposure/common"
)

// pulseSource alternates one scene between a low and a high gain on a fixed period. The gain
// follows elapsed time rather than frame count, so the scene changes at the same wall-clock
// instants at any frame rate.
type pulseSource struct {
	base
	img       *common.ColorImage
	low, high float32
	period    float64
}

var _ FrameSource = &pulseSource{}

// NewPulseSource creates a FrameSource that serves img at gain low for the first half of every
// period and at gain high for the second half.
//
// Parameters:
//   - img: the scene, copied on construction
//   - low: the gain during the first half period
//   - high: the gain during the second half period
//   - period: the full cycle length in seconds
//   - options: shared source options
//
// Returns:
//   - FrameSource: the source
//   - error: ErrNoImages, an invalid gain or period, or a validation error
func NewPulseSource(img *common.ColorImage, low, high, period float32, options ...SourceBuilderOption) (FrameSource, error) {
	if low < 0 || high < 0 {
		return nil, fmt.Errorf("pulse gains must be non-negative, got %g and %g", low, high)
	}
	if !(period > 0) || math.IsInf(float64(period), 0) {
		return nil, fmt.Errorf("pulse period must be a positive number of seconds, got %g", period)
	}
	s := &pulseSource{low: low, high: high, period: float64(period)}
	s.configure(options)
	if err := s.checkImages([]*common.ColorImage{img}); err != nil {
		return nil, err
	}
	s.img = img.Clone()
	return s, nil
}

// Next serves the gain in effect at the start of the frame, then advances time.
func (s *pulseSource) Next(dt float32) *common.ColorImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	gain := s.gain(s.elapsed)
	s.advance(dt)
	return s.serve(s.img, gain)
}

func (s *pulseSource) gain(t float64) float32 {
	if math.Mod(t, s.period) < s.period/2 {
		return s.low
	}
	return s.high
}
