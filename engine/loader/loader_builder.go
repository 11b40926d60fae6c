package loader

import "github.com/Carmen-Shannon/oxy-exposure/common"

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithSize resizes every loaded image to width x height. A zero dimension keeps the source size.
//
// Parameters:
//   - width: the target width in pixels
//   - height: the target height in pixels
//
// Returns:
//   - LoaderBuilderOption: a function that applies the size option to a loader
func WithSize(width, height int) LoaderBuilderOption {
	return func(l *loader) {
		l.width, l.height = width, height
	}
}

// WithIntensity scales the linear rgb of every loaded image, turning an LDR file into a
// brighter or darker scene. Defaults to 1.
//
// Parameters:
//   - scale: the linear multiplier
//
// Returns:
//   - LoaderBuilderOption: a function that applies the intensity option to a loader
func WithIntensity(scale float32) LoaderBuilderOption {
	return func(l *loader) {
		if scale > 0 {
			l.intensity = scale
		}
	}
}

// WithImage is an option builder that pre-populates the image cache.
//
// Parameters:
//   - key: the cache key for the image
//   - img: the image to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the image option to a loader
func WithImage(key string, img *common.ColorImage) LoaderBuilderOption {
	return func(l *loader) {
		l.imageCache[key] = img.Clone()
	}
}

// WithJPEGQuality sets the quality used when saving .jpg files. Defaults to 95.
//
// Parameters:
//   - quality: 1 to 100
//
// Returns:
//   - LoaderBuilderOption: a function that applies the quality option to a loader
func WithJPEGQuality(quality int) LoaderBuilderOption {
	return func(l *loader) {
		if b, ok := l.backend.(*imageLoaderBackend); ok && quality >= 1 && quality <= 100 {
			b.jpegQuality = quality
		}
	}
}
