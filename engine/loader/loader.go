package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-exposure/common"
	"github.com/Carmen-Shannon/oxy-exposure/engine/log"
)

var logger = log.New("loader")

// ErrUnsupportedFormat is returned when a file extension has no encoder.
var ErrUnsupportedFormat = errors.New("loader: unsupported image format")

// LoaderBackendType identifies the image codec backend to use.
type LoaderBackendType int

const (
	// BackendTypeImage selects the image package decoders: png, jpeg and gif from the standard
	// library plus tiff, bmp and webp from golang.org/x/image.
	BackendTypeImage LoaderBackendType = iota
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	imageCache map[string]*common.ColorImage

	width, height int
	intensity     float32

	backend loaderBackend
}

// Loader loads images from disk or streams into linear-light ColorImages and caches them by
// name. It abstracts the file format behind a codec backend.
type Loader interface {
	// Load decodes an image file, converts it from sRGB to linear light, applies the configured
	// resize and intensity, and caches the result by path. Every call returns a fresh copy so the
	// caller may correct it in place.
	//
	// Parameters:
	//   - path: the file path of the image
	//
	// Returns:
	//   - *common.ColorImage: the linear image
	//   - error: an error if the file cannot be opened or decoded
	Load(path string) (*common.ColorImage, error)

	// LoadReader decodes an image stream and caches it under name.
	//
	// Parameters:
	//   - name: the cache key
	//   - r: the encoded image
	//
	// Returns:
	//   - *common.ColorImage: the linear image
	//   - error: an error if decoding fails
	LoadReader(name string, r io.Reader) (*common.ColorImage, error)

	// LoadMask decodes a grayscale image into an importance mask of the given size. Gray levels
	// map linearly to weights in [0, 1] and the image is resized when its size differs.
	//
	// Parameters:
	//   - path: the file path of the mask image
	//   - width: the required mask width
	//   - height: the required mask height
	//
	// Returns:
	//   - *common.ImportanceMask: the mask
	//   - error: an error if the file cannot be opened or decoded
	LoadMask(path string, width, height int) (*common.ImportanceMask, error)

	// Save encodes a linear image to sRGB and writes it in the format implied by the path's
	// extension. Channels are clamped to [0, 1].
	//
	// Parameters:
	//   - path: the destination file (.png, .tif, .tiff, .jpg, .jpeg or .bmp)
	//   - img: the linear image
	//
	// Returns:
	//   - error: an error wrapping ErrUnsupportedFormat, or an IO error
	Save(path string, img *common.ColorImage) error

	// Get retrieves a copy of a cached image by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *common.ColorImage: a copy of the cached image, or nil
	Get(name string) *common.ColorImage

	// Images returns the cache keys of every loaded image.
	//
	// Returns:
	//   - []string: the cached names
	Images() []string
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the codec backend to use (e.g., BackendTypeImage)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:         sync.RWMutex{},
		imageCache: make(map[string]*common.ColorImage),
		intensity:  1,
	}

	switch backendType {
	case BackendTypeImage:
		fallthrough
	default:
		l.backend = newImageLoaderBackend()
	}

	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (*common.ColorImage, error) {
	if cached := l.Get(path); cached != nil {
		return cached, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer f.Close()

	return l.LoadReader(path, f)
}

func (l *loader) LoadReader(name string, r io.Reader) (*common.ColorImage, error) {
	src, format, err := l.backend.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}

	bounds := src.Bounds()
	if l.width > 0 && l.height > 0 && (bounds.Dx() != l.width || bounds.Dy() != l.height) {
		src = Resize(src, l.width, l.height)
	}
	img := ToColorImage(src)
	if l.intensity != 1 {
		img.Scale(l.intensity)
	}
	logger.Infof("loaded %s image %s (%dx%d, mean luminance %.4f)", format, name, img.Width, img.Height, img.MeanLuminance())

	l.mu.Lock()
	l.imageCache[name] = img
	l.mu.Unlock()

	return img.Clone(), nil
}

func (l *loader) LoadMask(path string, width, height int) (*common.ImportanceMask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mask %s: %w", path, err)
	}
	defer f.Close()

	src, _, err := l.backend.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mask %s: %w", path, err)
	}
	if b := src.Bounds(); b.Dx() != width || b.Dy() != height {
		src = Resize(src, width, height)
	}
	return ToImportanceMask(src), nil
}

func (l *loader) Save(path string, img *common.ColorImage) error {
	if err := img.Validate(); err != nil {
		return err
	}
	format, err := formatFromPath(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := l.backend.Encode(f, FromColorImage(img), format); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Infof("wrote %s (%dx%d)", path, img.Width, img.Height)
	return nil
}

func (l *loader) Get(name string) *common.ColorImage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if img, ok := l.imageCache[name]; ok {
		return img.Clone()
	}
	return nil
}

func (l *loader) Images() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.imageCache))
	for name := range l.imageCache {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// formatFromPath maps a file extension to an encoder format name.
func formatFromPath(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png":
		return "png", nil
	case ".tif", ".tiff":
		return "tiff", nil
	case ".jpg", ".jpeg":
		return "jpeg", nil
	case ".bmp":
		return "bmp", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}
