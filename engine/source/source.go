// Package source produces the scene frames fed to the auto exposure pass. A FrameSource owns
// its scene images and hands out a fresh copy per frame, so the pass can correct it in place
// without disturbing the next frame.
package source

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-exposure/common"
	"github.com/Carmen-Shannon/oxy-exposure/engine/log"
)

var logger = log.New("source")

// ErrNoImages is returned when a source is constructed without a usable image.
var ErrNoImages = errors.New("source: no images")

// FrameSource yields one scene image per frame.
type FrameSource interface {
	// Next advances the source by dt seconds and returns the scene image for that frame.
	//
	// Parameters:
	//   - dt: seconds since the previous frame, negative values are treated as 0
	//
	// Returns:
	//   - *common.ColorImage: a copy of the current scene, scaled by the source intensity
	Next(dt float32) *common.ColorImage

	// Mask returns the importance mask shared by every frame, or nil.
	Mask() *common.ImportanceMask

	// Frames returns how many frames Next has served since construction or the last Reset.
	Frames() int

	// Intensity returns the linear multiplier applied to every served frame.
	Intensity() float32

	// SetIntensity changes the linear multiplier applied to every served frame. Values <= 0
	// are ignored.
	SetIntensity(scale float32)

	// Reset rewinds the source to its first frame.
	Reset()
}

// base holds the state every source shares.
type base struct {
	mu        sync.Mutex
	intensity float32
	mask      *common.ImportanceMask
	frames    int
	elapsed   float64
}

func (b *base) configure(options []SourceBuilderOption) {
	b.intensity = 1
	for _, option := range options {
		option(b)
	}
}

// checkImages validates a set of source images against each other and the configured mask.
func (b *base) checkImages(images []*common.ColorImage) error {
	if len(images) == 0 {
		return ErrNoImages
	}
	for i, img := range images {
		if img == nil {
			return fmt.Errorf("%w: image %d is nil", ErrNoImages, i)
		}
		if err := img.Validate(); err != nil {
			return fmt.Errorf("image %d: %w", i, err)
		}
		if b.mask != nil && !b.mask.Matches(img) {
			return fmt.Errorf("image %d is %dx%d but the mask is %dx%d", i, img.Width, img.Height, b.mask.Width, b.mask.Height)
		}
	}
	return nil
}

// advance records a served frame and returns the elapsed time after it.
func (b *base) advance(dt float32) float64 {
	if dt > 0 {
		b.elapsed += float64(dt)
	}
	b.frames++
	return b.elapsed
}

// serve copies img and applies the intensity scale on top of gain.
func (b *base) serve(img *common.ColorImage, gain float32) *common.ColorImage {
	out := img.Clone()
	if s := b.intensity * gain; s != 1 {
		out.Scale(s)
	}
	return out
}

func (b *base) Mask() *common.ImportanceMask {
	return b.mask
}

func (b *base) Frames() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames
}

func (b *base) Intensity() float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.intensity
}

func (b *base) SetIntensity(scale float32) {
	if scale <= 0 {
		return
	}
	b.mu.Lock()
	b.intensity = scale
	b.mu.Unlock()
	logger.Debugf("intensity set to %.3f", scale)
}

func (b *base) Reset() {
	b.mu.Lock()
	b.frames, b.elapsed = 0, 0
	b.mu.Unlock()
}
