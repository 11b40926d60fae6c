package auto_exposure

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-exposure/common"
	"github.com/Carmen-Shannon/oxy-exposure/engine/exposure"
	"github.com/Carmen-Shannon/oxy-exposure/engine/renderer/bind_group_provider"
)

// softwareAutoExposureBackend runs the three stages on the CPU. Each 16x16 tile is one pool
// task, the same unit of work as one work-group of the kernels, and a WaitGroup separates the
// stages the way pass boundaries do on the GPU.
type softwareAutoExposureBackend struct {
	// pool workers persist across frames so per-frame tile tasks do not spawn goroutines
	pool worker.DynamicWorkerPool

	settings exposure.Settings
	state    exposure.GPUExposureState
	metered  exposure.GPUExposureState

	frame  Frame
	params exposure.GPUFrameParams
	tiles  []exposure.Tile
	width  int
	height int
}

var _ autoExposureBackend = &softwareAutoExposureBackend{}

func newSoftwareAutoExposureBackend(workers int) *softwareAutoExposureBackend {
	return &softwareAutoExposureBackend{
		// A queue of 256 covers a 4096 pixel wide tile row before SubmitTask has to wait on workers.
		pool:  worker.NewDynamicWorkerPool(workers, 256, 1*time.Second),
		state: exposure.NewGPUExposureState(),
	}
}

func (b *softwareAutoExposureBackend) WriteSettings(s exposure.Settings) error {
	b.settings = s
	return nil
}

func (b *softwareAutoExposureBackend) BeginFrame(frame Frame) error {
	width, height := frame.Color.Width, frame.Color.Height
	if b.width != width || b.height != height {
		b.tiles = exposure.Tiles(width, height)
		b.width, b.height = width, height
	}
	b.frame = frame
	b.params = exposure.NewGPUFrameParams(frame.DeltaTime, width, height)
	return nil
}

func (b *softwareAutoExposureBackend) Dispatch(k exposure.Kernel) error {
	switch k {
	case exposure.KernelAccumulateLuminance:
		b.accumulateTiles(b.tiles)
	case exposure.KernelComputeTargetEV:
		b.metered = b.state
		exposure.Step(&b.state, b.params.DeltaTime, b.settings)
	case exposure.KernelApplyExposure:
		b.applyTiles(b.tiles)
	default:
		return fmt.Errorf("unknown kernel %s", k)
	}
	return nil
}

func (b *softwareAutoExposureBackend) EndFrame(frame Frame, readback bool) (frameResult, error) {
	b.frame = Frame{}
	return frameResult{state: b.state, metered: b.metered, observed: true}, nil
}

func (b *softwareAutoExposureBackend) State() exposure.GPUExposureState {
	return b.state
}

func (b *softwareAutoExposureBackend) ColorBindGroupProvider() bind_group_provider.BindGroupProvider {
	return nil
}

func (b *softwareAutoExposureBackend) Release() {
	b.pool.Stop()
}

// accumulateTiles adds every tile's fixed-point log luminance and weight contributions to the
// state. Tiles are submitted in the given order, which must cover the grid exactly once.
// Each tile sums sequentially and contributes through a single atomic add per field, so the
// result does not depend on the order or on which worker ran which tile.
func (b *softwareAutoExposureBackend) accumulateTiles(order []exposure.Tile) {
	b.runTiles(order, b.accumulateTile)
}

func (b *softwareAutoExposureBackend) accumulateTile(t exposure.Tile) {
	img, mask := b.frame.Color, b.frame.Mask
	width, height := img.Width, img.Height
	x0, y0, x1, y1 := t.Pixels(width, height)

	var lum, weight float64
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			i := img.PixOffset(x, y)
			l := exposure.PixelLuminance(img.Pix[i], img.Pix[i+1], img.Pix[i+2], b.settings.MaxLuminance)
			var maskWeight float32
			if mask != nil {
				maskWeight = mask.At(x, y)
			}
			w := exposure.Weight(b.settings.Metering, x, y, width, height, maskWeight)
			lum += float64(exposure.LogLuminance(l) * w)
			weight += float64(w)
		}
	}

	atomic.AddUint32(&b.state.Luminance, exposure.EncodeContribution(lum, b.params.TileCount))
	atomic.AddUint32(&b.state.Importance, exposure.EncodeContribution(weight, b.params.TileCount))
}

func (b *softwareAutoExposureBackend) applyTiles(order []exposure.Tile) {
	b.runTiles(order, b.applyTile)
}

func (b *softwareAutoExposureBackend) applyTile(t exposure.Tile) {
	img := b.frame.Color
	factor, outputMax := b.state.Exposure, b.settings.OutputMax
	x0, y0, x1, y1 := t.Pixels(img.Width, img.Height)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i] = common.Clamp(img.Pix[i]*factor, 0, outputMax)
			img.Pix[i+1] = common.Clamp(img.Pix[i+1]*factor, 0, outputMax)
			img.Pix[i+2] = common.Clamp(img.Pix[i+2]*factor, 0, outputMax)
		}
	}
}

// runTiles submits one pool task per tile and blocks until all of them finished.
// pool.Wait() only returns once workers idle out, so a WaitGroup is the per-stage barrier.
func (b *softwareAutoExposureBackend) runTiles(order []exposure.Tile, fn func(exposure.Tile)) {
	var wg sync.WaitGroup
	for i, t := range order {
		wg.Add(1)
		tile := t
		b.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				fn(tile)
				return nil, nil
			},
		})
	}
	wg.Wait()
}
