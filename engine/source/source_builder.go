package source

import "github.com/Carmen-Shannon/oxy-exposure/common"

// SourceBuilderOption is a functional option shared by every FrameSource constructor.
type SourceBuilderOption func(*base)

// WithIntensity sets the initial linear multiplier applied to served frames. Defaults to 1.
//
// Parameters:
//   - scale: the multiplier, values <= 0 are ignored
//
// Returns:
//   - SourceBuilderOption: a function that applies the intensity option to a source
func WithIntensity(scale float32) SourceBuilderOption {
	return func(b *base) {
		if scale > 0 {
			b.intensity = scale
		}
	}
}

// WithMask attaches an importance mask that is returned with every frame. Every source image
// must match its size.
//
// Parameters:
//   - mask: the importance mask
//
// Returns:
//   - SourceBuilderOption: a function that applies the mask option to a source
func WithMask(mask *common.ImportanceMask) SourceBuilderOption {
	return func(b *base) {
		b.mask = mask
	}
}
