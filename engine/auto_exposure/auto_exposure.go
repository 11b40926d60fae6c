package auto_exposure

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-exposure/common"
	"github.com/Carmen-Shannon/oxy-exposure/engine/exposure"
	"github.com/Carmen-Shannon/oxy-exposure/engine/log"
	"github.com/Carmen-Shannon/oxy-exposure/engine/renderer"
	"github.com/Carmen-Shannon/oxy-exposure/engine/renderer/bind_group_provider"
)

var logger = log.New("auto_exposure")

// Frame is one frame of input handed to AutoExposure.Render.
type Frame struct {
	// Color is the linear-light image to meter and correct. It is overwritten in place with the
	// corrected image when the backend writes results back to the host.
	Color *common.ColorImage

	// DeltaTime is the number of seconds since the previous frame. Must be finite and >= 0.
	DeltaTime float32

	// Mask holds per-pixel metering weights. Required by exposure.MeteringMask and ignored by
	// every other metering mode.
	Mask *common.ImportanceMask
}

// Validate checks the frame against the settings it will be rendered with.
//
// Parameters:
//   - s: the settings the frame is rendered with
//
// Returns:
//   - error: an error wrapping exposure.ErrInvalidFrame or exposure.ErrInvalidResolution
func (f Frame) Validate(s exposure.Settings) error {
	if f.Color == nil {
		return fmt.Errorf("%w: no color image", exposure.ErrInvalidFrame)
	}
	if err := exposure.ValidateResolution(f.Color.Width, f.Color.Height); err != nil {
		return err
	}
	if err := f.Color.Validate(); err != nil {
		return fmt.Errorf("%w: %v", exposure.ErrInvalidFrame, err)
	}
	dt := float64(f.DeltaTime)
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt < 0 {
		return fmt.Errorf("%w: delta time must be finite and non-negative, got %g", exposure.ErrInvalidFrame, f.DeltaTime)
	}
	if f.Mask != nil && !f.Mask.Matches(f.Color) {
		return fmt.Errorf("%w: mask is %dx%d, image is %dx%d", exposure.ErrInvalidFrame, f.Mask.Width, f.Mask.Height, f.Color.Width, f.Color.Height)
	}
	if s.Metering == exposure.MeteringMask && f.Mask == nil {
		return fmt.Errorf("%w: mask metering requires an importance mask", exposure.ErrInvalidFrame)
	}
	return nil
}

type autoExposure struct {
	mu *sync.Mutex

	backendType BackendType
	backend     autoExposureBackend
	settings    exposure.Settings

	r                renderer.Renderer
	kernelSource     string
	readback         bool
	stateReadback    bool
	validateShader   bool
	workers          int
	frames           uint64
	lastAverage      float32
	lastAverageValid bool
}

// AutoExposure meters a linear color image, evolves a temporally smoothed exposure value and
// applies the resulting exposure factor to the image, once per frame. The three stages run as
// compute kernels through a Renderer, or on the CPU with the software backend.
//
// The exposure state persists across frames: each Render moves the EV history toward the
// metered target by an amount that depends only on the frame's DeltaTime and the settings tau.
type AutoExposure interface {
	// Render runs AccumulateLuminance, ComputeTargetEV and ApplyExposure over the frame, in that
	// order, each observing every write of the one before it. Any failure is returned as is,
	// no stage is retried.
	//
	// Parameters:
	//   - frame: the frame to correct
	//
	// Returns:
	//   - FrameStats: metering, resulting state and stage timings
	//   - error: an error wrapping exposure.ErrInvalidFrame, exposure.ErrInvalidResolution or
	//     exposure.ErrResourceAllocation, or a backend failure
	Render(frame Frame) (FrameStats, error)

	// State returns the last observed exposure state.
	//
	// Returns:
	//   - exposure.GPUExposureState: the persistent state
	State() exposure.GPUExposureState

	// Settings returns the active settings.
	//
	// Returns:
	//   - exposure.Settings: the settings applied to the next frame
	Settings() exposure.Settings

	// SetSettings validates and applies new settings starting with the next frame. The exposure
	// history is kept.
	//
	// Parameters:
	//   - s: the new settings
	//
	// Returns:
	//   - error: an error wrapping exposure.ErrInvalidSettings
	SetSettings(s exposure.Settings) error

	// ColorBindGroupProvider returns the provider holding the GPU color buffer, which carries the
	// corrected image after each Render. Nil for the software backend.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the provider, or nil
	ColorBindGroupProvider() bind_group_provider.BindGroupProvider

	// ColorBinding returns the binding index of the color buffer on ColorBindGroupProvider.
	//
	// Returns:
	//   - int: the binding index, -1 for the software backend
	ColorBinding() int

	// FrameBinding returns the binding index of the FrameParams uniform on
	// ColorBindGroupProvider. Consumers that read the color buffer share it for the image size.
	//
	// Returns:
	//   - int: the binding index, -1 for the software backend
	FrameBinding() int

	// BackendType returns the backend the stages execute on.
	//
	// Returns:
	//   - BackendType: the backend
	BackendType() BackendType

	// Frames returns the number of frames rendered so far.
	//
	// Returns:
	//   - uint64: the frame count
	Frames() uint64

	// Release frees the backend's GPU buffers or stops its worker pool. Render fails with
	// exposure.ErrNotInitialized afterwards.
	Release()
}

var _ AutoExposure = &autoExposure{}

// NewAutoExposure creates the auto exposure pass. The WGPU backend (the default) requires a
// renderer via WithRenderer.
//
// Parameters:
//   - options: functional options configuring settings, backend and readback
//
// Returns:
//   - AutoExposure: the ready pass
//   - error: an error wrapping exposure.ErrInvalidSettings, exposure.ErrMissingEntryPoint or
//     exposure.ErrResourceAllocation, or a kernel validation failure
func NewAutoExposure(options ...AutoExposureBuilderOption) (AutoExposure, error) {
	a := &autoExposure{
		mu:            &sync.Mutex{},
		backendType:   BackendTypeWGPU,
		settings:      exposure.DefaultSettings(),
		kernelSource:  KernelSource,
		readback:      true,
		stateReadback: true,
		workers:       max(runtime.NumCPU()-1, 1),
	}

	for _, option := range options {
		option(a)
	}

	if err := a.settings.Validate(); err != nil {
		return nil, err
	}

	var err error
	switch a.backendType {
	case BackendTypeSoftware:
		a.backend = newSoftwareAutoExposureBackend(a.workers)
	case BackendTypeWGPU:
		if a.r == nil {
			return nil, fmt.Errorf("%w: wgpu backend requires a renderer", exposure.ErrNotInitialized)
		}
		a.backend, err = newWGPUAutoExposureBackend(a.r, a.kernelSource, a.validateShader, a.stateReadback)
	default:
		return nil, fmt.Errorf("unknown backend %s", a.backendType)
	}
	if err != nil {
		return nil, err
	}

	if err := a.backend.WriteSettings(a.settings); err != nil {
		a.backend.Release()
		return nil, err
	}

	logger.Infof("auto exposure ready on %s backend (metering %s, tau %.2fs, EV [%g, %g])",
		a.backendType, a.settings.Metering, a.settings.Tau, a.settings.MinEV, a.settings.MaxEV)
	return a, nil
}

func (a *autoExposure) Render(frame Frame) (FrameStats, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.backend == nil {
		return FrameStats{}, exposure.ErrNotInitialized
	}
	if err := frame.Validate(a.settings); err != nil {
		return FrameStats{}, err
	}

	width, height := frame.Color.Width, frame.Color.Height
	stats := FrameStats{
		Frame:      a.frames + 1,
		Width:      width,
		Height:     height,
		WorkGroups: exposure.WorkGroupCounts(width, height),
	}

	start := time.Now()
	if err := a.backend.BeginFrame(frame); err != nil {
		return stats, fmt.Errorf("auto exposure: begin frame: %w", err)
	}
	stats.Timings.Upload = time.Since(start)

	for _, k := range exposure.Kernels {
		start = time.Now()
		if err := a.backend.Dispatch(k); err != nil {
			return stats, fmt.Errorf("auto exposure: %s: %w", k, err)
		}
		stats.Timings.set(k, time.Since(start))
	}

	start = time.Now()
	result, err := a.backend.EndFrame(frame, a.readback)
	if err != nil {
		return stats, fmt.Errorf("auto exposure: end frame: %w", err)
	}
	stats.Timings.Readback = time.Since(start)

	a.frames++
	stats.State = result.state
	stats.TargetEV = result.state.HistoryEV
	if result.observed {
		a.lastAverage, a.lastAverageValid = exposure.DecodeAverageLuminance(result.metered)
		if a.lastAverageValid {
			stats.TargetEV = exposure.TargetEV(a.lastAverage, a.settings)
		}
	}
	stats.AverageLuminance, stats.Metered = a.lastAverage, a.lastAverageValid

	logger.Debugf("frame %d %dx%d: avg %.4f ev %.3f exposure %.4f (%s)",
		stats.Frame, width, height, stats.AverageLuminance, stats.State.HistoryEV, stats.State.Exposure, stats.Timings.Total())
	return stats, nil
}

func (a *autoExposure) State() exposure.GPUExposureState {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.backend == nil {
		return exposure.GPUExposureState{}
	}
	return a.backend.State()
}

func (a *autoExposure) Settings() exposure.Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings
}

func (a *autoExposure) SetSettings(s exposure.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.backend == nil {
		return exposure.ErrNotInitialized
	}
	if err := a.backend.WriteSettings(s); err != nil {
		return err
	}
	a.settings = s
	return nil
}

func (a *autoExposure) ColorBindGroupProvider() bind_group_provider.BindGroupProvider {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.backend == nil {
		return nil
	}
	return a.backend.ColorBindGroupProvider()
}

func (a *autoExposure) ColorBinding() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if b, ok := a.backend.(*wgpuAutoExposureBackend); ok {
		return b.bindings.color
	}
	return -1
}

func (a *autoExposure) FrameBinding() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if b, ok := a.backend.(*wgpuAutoExposureBackend); ok {
		return b.bindings.frame
	}
	return -1
}

func (a *autoExposure) BackendType() BackendType {
	return a.backendType
}

func (a *autoExposure) Frames() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frames
}

func (a *autoExposure) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.backend == nil {
		return
	}
	a.backend.Release()
	a.backend = nil
}
