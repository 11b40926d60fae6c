package loader

import (
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// loaderBackend defines the generic interface for decoding and encoding images.
// Concrete implementations (e.g., imageLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Decode reads an encoded image, detecting its format from the stream header.
	//
	// Parameters:
	//   - r: the encoded image
	//
	// Returns:
	//   - image.Image: the decoded image
	//   - string: the detected format name
	//   - error: error if the format is unknown or the data is corrupt
	Decode(r io.Reader) (image.Image, string, error)

	// Encode writes an image in the named format.
	//
	// Parameters:
	//   - w: the destination
	//   - img: the image to encode
	//   - format: one of "png", "tiff", "jpeg" or "bmp"
	//
	// Returns:
	//   - error: error wrapping ErrUnsupportedFormat, or an encoder error
	Encode(w io.Writer, img image.Image, format string) error
}

// imageLoaderBackend decodes through the image package registry. The blank and named imports
// above register png, jpeg, gif, bmp, tiff and webp.
type imageLoaderBackend struct {
	jpegQuality int
}

var _ loaderBackend = &imageLoaderBackend{}

func newImageLoaderBackend() *imageLoaderBackend {
	return &imageLoaderBackend{jpegQuality: 95}
}

func (b *imageLoaderBackend) Decode(r io.Reader) (image.Image, string, error) {
	return image.Decode(r)
}

func (b *imageLoaderBackend) Encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	case "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: b.jpegQuality})
	case "bmp":
		return bmp.Encode(w, img)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}
