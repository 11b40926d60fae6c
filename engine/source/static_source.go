package source

import "github.com/Carmen-Shannon/oxy-exposure/common"

// staticSource serves the same scene every frame.
type staticSource struct {
	base
	img *common.ColorImage
}

var _ FrameSource = &staticSource{}

// NewStaticSource creates a FrameSource that repeats one image.
//
// Parameters:
//   - img: the scene, copied on construction
//   - options: shared source options
//
// Returns:
//   - FrameSource: the source
//   - error: ErrNoImages or a validation error
func NewStaticSource(img *common.ColorImage, options ...SourceBuilderOption) (FrameSource, error) {
	s := &staticSource{}
	s.configure(options)
	if err := s.checkImages([]*common.ColorImage{img}); err != nil {
		return nil, err
	}
	s.img = img.Clone()
	return s, nil
}

func (s *staticSource) Next(dt float32) *common.ColorImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(dt)
	return s.serve(s.img, 1)
}
