package window

// WindowBuilderOption is a functional option for configuring an engineWindow.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the initial title bar text.
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the requested client area, usually the size of the image being shown. The window
// is scaled down to fit the maximum size limits.
//
// Parameters:
//   - width: width in pixels
//   - height: height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width = width
		w.height = height
	}
}

// WithSizeLimits bounds the client area during creation and while resizing.
//
// Parameters:
//   - minWidth, minHeight: the smallest size in pixels
//   - maxWidth, maxHeight: the largest size in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSizeLimits(minWidth, minHeight, maxWidth, maxHeight int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.minWidth, w.minHeight = minWidth, minHeight
		w.maxWidth, w.maxHeight = maxWidth, maxHeight
	}
}

// WithLockedAspect keeps the initial width:height ratio while the user resizes the window, so an
// image presented 1:1 from the top-left is never letterboxed unevenly.
func WithLockedAspect(lock bool) WindowBuilderOption {
	return func(w *engineWindow) {
		w.lockAspect = lock
	}
}
