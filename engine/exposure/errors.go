package exposure

import "errors"

var (
	// ErrMissingEntryPoint is returned when a kernel module does not declare one of the
	// required compute entry points.
	ErrMissingEntryPoint = errors.New("exposure: missing kernel entry point")

	// ErrInvalidResolution is returned when a frame has a zero or negative dimension.
	ErrInvalidResolution = errors.New("exposure: invalid resolution")

	// ErrInvalidFrame is returned when a frame is missing its image, carries a malformed
	// pixel slice, or has a non-finite or negative delta time.
	ErrInvalidFrame = errors.New("exposure: invalid frame")

	// ErrInvalidSettings is returned by Settings.Validate.
	ErrInvalidSettings = errors.New("exposure: invalid settings")

	// ErrResourceAllocation is returned when a GPU buffer or bind group cannot be created.
	ErrResourceAllocation = errors.New("exposure: resource allocation failed")

	// ErrNotInitialized is returned when a pass is used after Release.
	ErrNotInitialized = errors.New("exposure: not initialized")
)
