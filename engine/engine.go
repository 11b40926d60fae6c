package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-exposure/common"
	"github.com/Carmen-Shannon/oxy-exposure/engine/auto_exposure"
	"github.com/Carmen-Shannon/oxy-exposure/engine/exposure"
	"github.com/Carmen-Shannon/oxy-exposure/engine/log"
	"github.com/Carmen-Shannon/oxy-exposure/engine/profiler"
	"github.com/Carmen-Shannon/oxy-exposure/engine/renderer"
	"github.com/Carmen-Shannon/oxy-exposure/engine/source"
	"github.com/Carmen-Shannon/oxy-exposure/engine/window"
)

var logger = log.New("engine")

// FrameCallback receives the statistics and the corrected image of every rendered frame. The
// image is only valid for the duration of the call.
type FrameCallback func(stats auto_exposure.FrameStats, img *common.ColorImage)

// engine implements the Engine interface.
// Coordinates the render loop and the window thread.
type engine struct {
	running atomic.Bool
	paused  atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window   window.Window
	renderer renderer.Renderer
	exposure auto_exposure.AutoExposure
	present  *presentPass

	srcMu  sync.Mutex
	source source.FrameSource

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	updateCallback func()
	frameCallback  FrameCallback

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	fixedDelta       float32       // simulated frame time; 0 = wall clock
	maxFrames        int           // 0 = until Quit or the window closes
	frames           int

	errMu sync.Mutex
	err   error
}

// Engine is the main entry point for the engine.
// It pulls scene frames from a FrameSource, runs them through the auto exposure pass and, when
// a window is attached, presents the result.
type Engine interface {
	// Window returns the underlying window, or nil when running headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// AutoExposure returns the auto exposure pass driven by the loop.
	//
	// Returns:
	//   - auto_exposure.AutoExposure: the pass
	AutoExposure() auto_exposure.AutoExposure

	// Source returns the frame source feeding the loop.
	//
	// Returns:
	//   - source.FrameSource: the source
	Source() source.FrameSource

	// SetSource swaps the frame source. The next frame is pulled from the new source, and the
	// exposure history carries over so the pass adapts to the new scene.
	//
	// Parameters:
	//   - s: the new source, nil is ignored
	SetSource(s source.FrameSource)

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetPaused freezes time. Frames keep rendering with a zero delta, so the exposure holds.
	//
	// Parameters:
	//   - paused: true to freeze
	SetPaused(paused bool)

	// Paused reports whether time is frozen.
	Paused() bool

	// SetUpdateCallback registers the function called on the window thread every message loop
	// iteration. Window calls such as SetTitle belong here.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetFrameCallback registers the function called after every rendered frame, on the render
	// goroutine.
	//
	// Parameters:
	//   - callback: function receiving the frame stats and corrected image
	SetFrameCallback(callback FrameCallback)

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run starts the frame loop and blocks until the window closes, the frame limit is reached,
	// Quit is called, or a frame fails. With a window it must be called from the main thread.
	//
	// Returns:
	//   - error: the first frame error, or nil on a clean shutdown
	Run() error

	// Quit signals the render loop to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - options: functional options for engine configuration (source, pass, window, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		quitChannel: make(chan struct{}),
		wg:          sync.WaitGroup{},
		profiler:    profiler.NewProfiler(),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window != nil && e.renderer != nil {
		e.window.SetResizeCallback(func(width, height int) {
			e.renderer.Resize(width, height)
		})
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) AutoExposure() auto_exposure.AutoExposure {
	return e.exposure
}

func (e *engine) Source() source.FrameSource {
	e.srcMu.Lock()
	defer e.srcMu.Unlock()
	return e.source
}

func (e *engine) SetSource(s source.FrameSource) {
	if s == nil {
		return
	}
	e.srcMu.Lock()
	e.source = s
	e.srcMu.Unlock()
}

func (e *engine) Run() error {
	if e.Source() == nil || e.exposure == nil {
		return fmt.Errorf("%w: engine needs a frame source and an auto exposure pass", exposure.ErrNotInitialized)
	}
	if e.window != nil {
		if e.renderer == nil || e.renderer.Headless() {
			return fmt.Errorf("%w: presenting to a window needs a windowed renderer", exposure.ErrNotInitialized)
		}
		p, err := newPresentPass(e.renderer, e.exposure)
		if err != nil {
			return err
		}
		e.present = p
		defer p.release()
	}

	e.running.Store(true)
	defer e.running.Store(false)

	if e.window == nil {
		e.wg.Add(1)
		e.handleRender()
		return e.Err()
	}

	e.wg.Add(1)
	go e.handleRender()

	// The window is destroyed on this thread only after the render loop has exited.
	closed := false
	closeWindow := func() {
		e.wg.Wait()
		if closed {
			return
		}
		closed = true
		if err := e.window.Close(); err != nil {
			logger.Warningf("closing window: %v", err)
		}
	}
	e.window.SetUpdateCallback(func() {
		if e.updateCallback != nil {
			e.updateCallback()
		}
		select {
		case <-e.quitChannel:
			closeWindow()
		default:
		}
	})
	e.window.ProcessMessages()

	e.signalQuit()
	closeWindow()
	return e.Err()
}

// Err returns the error that stopped the loop, if any.
func (e *engine) Err() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.err
}

// fail records the first error and stops the loop.
func (e *engine) fail(err error) {
	e.errMu.Lock()
	if e.err == nil {
		e.err = err
	}
	e.errMu.Unlock()
	e.signalQuit()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// handleRender runs the uncapped (or frame-limited) render loop.
// Each iteration pulls a source frame, runs the auto exposure pass on it and presents the
// result. Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	// Recover from panics inside the render goroutine to avoid crashing the whole process.
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("render loop recovered from panic: %v", r)
			e.fail(fmt.Errorf("render loop panic: %v", r))
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		now := time.Now()
		dt := float32(now.Sub(lastRender).Seconds())
		lastRender = now
		if e.fixedDelta > 0 {
			dt = e.fixedDelta
		}

		if err := e.renderFrame(dt); err != nil {
			logger.Errorf("%v", err)
			e.fail(err)
			return
		}

		if e.profilingEnabled.Load() {
			e.profiler.Tick()
		}
		if e.maxFrames > 0 && e.frames >= e.maxFrames {
			e.signalQuit()
			return
		}

		// Frame rate limiting
		if e.renderFrameLimit > 0 {
			elapsed := time.Since(lastRender)
			if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// renderFrame runs one source frame through the pass and presents it.
func (e *engine) renderFrame(dt float32) error {
	if e.paused.Load() {
		dt = 0
	}

	src := e.Source()
	img := src.Next(dt)
	stats, err := e.exposure.Render(auto_exposure.Frame{Color: img, DeltaTime: dt, Mask: src.Mask()})
	if err != nil {
		return fmt.Errorf("frame %d: %w", e.frames, err)
	}
	e.frames++

	if e.present != nil {
		if err := e.present.draw(img); err != nil {
			return fmt.Errorf("present frame %d: %w", e.frames, err)
		}
	}

	if e.profilingEnabled.Load() {
		for _, k := range exposure.Kernels {
			e.profiler.RecordStage(k.String(), stats.Timings.Stage(k))
		}
		e.profiler.RecordStage("Upload", stats.Timings.Upload)
		e.profiler.RecordStage("Readback", stats.Timings.Readback)
	}

	if e.frameCallback != nil {
		e.frameCallback(stats, img)
	}
	return nil
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

func (e *engine) SetPaused(paused bool) {
	e.paused.Store(paused)
}

func (e *engine) Paused() bool {
	return e.paused.Load()
}

func (e *engine) SetUpdateCallback(callback func()) {
	e.updateCallback = callback
}

func (e *engine) SetFrameCallback(callback FrameCallback) {
	e.frameCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}
