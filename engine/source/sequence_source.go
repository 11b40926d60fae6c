package source

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-exposure/common"
)

// sequenceSource steps through a list of scenes, holding each for a fixed number of frames.
type sequenceSource struct {
	base
	images []*common.ColorImage
	hold   int
	loop   bool
}

var _ FrameSource = &sequenceSource{}

// NewSequenceSource creates a FrameSource that serves images[0] for hold frames, then images[1]
// for hold frames, and so on. Past the end it either wraps around or keeps serving the last
// image.
//
// Parameters:
//   - images: the scenes in order, copied on construction
//   - hold: frames per image, at least 1
//   - loop: true to wrap around after the last image
//   - options: shared source options
//
// Returns:
//   - FrameSource: the source
//   - error: ErrNoImages, an invalid hold count, or a validation error
func NewSequenceSource(images []*common.ColorImage, hold int, loop bool, options ...SourceBuilderOption) (FrameSource, error) {
	if hold < 1 {
		return nil, fmt.Errorf("sequence hold must be at least 1 frame, got %d", hold)
	}
	s := &sequenceSource{hold: hold, loop: loop}
	s.configure(options)
	if err := s.checkImages(images); err != nil {
		return nil, err
	}
	s.images = make([]*common.ColorImage, len(images))
	for i, img := range images {
		s.images[i] = img.Clone()
	}
	return s, nil
}

func (s *sequenceSource) Next(dt float32) *common.ColorImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(s.frames)
	s.advance(dt)
	return s.serve(s.images[i], 1)
}

// index returns the image served on the given zero-based frame.
func (s *sequenceSource) index(frame int) int {
	i := frame / s.hold
	if s.loop {
		return i % len(s.images)
	}
	return min(i, len(s.images)-1)
}
