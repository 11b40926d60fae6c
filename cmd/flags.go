package cmd

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-exposure/common"
	"github.com/Carmen-Shannon/oxy-exposure/engine/auto_exposure"
	"github.com/Carmen-Shannon/oxy-exposure/engine/exposure"
	"github.com/Carmen-Shannon/oxy-exposure/engine/loader"
	"github.com/Carmen-Shannon/oxy-exposure/engine/renderer"
	"github.com/Carmen-Shannon/oxy-exposure/engine/window"
	"github.com/urfave/cli"
)

// ExposureFlags configure the exposure controller.
var ExposureFlags = []cli.Flag{
	cli.Float64Flag{
		Name:  "tau",
		Value: float64(exposure.DefaultTau),
		Usage: "adaptation time constant in seconds",
	},
	cli.Float64Flag{
		Name:  "target-gray",
		Value: float64(exposure.DefaultTargetGray),
		Usage: "luminance the metered average is mapped to",
	},
	cli.Float64Flag{
		Name:  "min-ev",
		Value: float64(exposure.DefaultMinEV),
		Usage: "lowest target EV",
	},
	cli.Float64Flag{
		Name:  "max-ev",
		Value: float64(exposure.DefaultMaxEV),
		Usage: "highest target EV",
	},
	cli.Float64Flag{
		Name:  "compensation",
		Usage: "EV bias, positive values brighten",
	},
	cli.Float64Flag{
		Name:  "max-luminance",
		Value: float64(exposure.DefaultMaxLuminance),
		Usage: "per-pixel luminance clamp applied before metering",
	},
	cli.Float64Flag{
		Name:  "output-max",
		Value: float64(exposure.DefaultOutputMax),
		Usage: "upper bound of every exposed channel",
	},
	cli.StringFlag{
		Name:  "metering",
		Value: exposure.MeteringAverage.String(),
		Usage: "metering mode: average, center, spot or mask",
	},
	cli.StringFlag{
		Name:  "mask",
		Usage: "grayscale importance mask image; selects mask metering unless --metering is given",
	},
}

// BackendFlags select where the kernels execute.
var BackendFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "backend",
		Value: auto_exposure.BackendTypeWGPU.String(),
		Usage: "kernel backend: wgpu or software",
	},
	cli.BoolFlag{
		Name:  "software-adapter",
		Usage: "force the WebGPU fallback (CPU) adapter",
	},
	cli.BoolFlag{
		Name:  "validate",
		Usage: "validate the kernel module with naga before creating pipelines",
	},
	cli.IntFlag{
		Name:  "workers",
		Usage: "tile workers for the software backend (0 = one per CPU)",
	},
}

// FrameFlags describe the simulated frame stream.
var FrameFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "width",
		Usage: "resize input images to this width (0 = keep)",
	},
	cli.IntFlag{
		Name:  "height",
		Usage: "resize input images to this height (0 = keep)",
	},
	cli.Float64Flag{
		Name:  "intensity",
		Value: 1,
		Usage: "linear scale applied to input images",
	},
	cli.IntFlag{
		Name:  "frames",
		Value: 120,
		Usage: "number of frames to render",
	},
	cli.Float64Flag{
		Name:  "dt",
		Value: 1.0 / 60,
		Usage: "simulated seconds per frame",
	},
}

// settingsFromContext builds controller settings from ExposureFlags.
func settingsFromContext(ctx *cli.Context) (exposure.Settings, error) {
	s := exposure.DefaultSettings()
	s.Tau = float32(ctx.Float64("tau"))
	s.TargetGray = float32(ctx.Float64("target-gray"))
	s.MinEV = float32(ctx.Float64("min-ev"))
	s.MaxEV = float32(ctx.Float64("max-ev"))
	s.Compensation = float32(ctx.Float64("compensation"))
	s.MaxLuminance = float32(ctx.Float64("max-luminance"))
	s.OutputMax = float32(ctx.Float64("output-max"))

	mode, err := exposure.ParseMeteringMode(ctx.String("metering"))
	if err != nil {
		return s, err
	}
	if ctx.String("mask") != "" && !ctx.IsSet("metering") {
		mode = exposure.MeteringMask
	}
	s.Metering = mode
	return s, s.Validate()
}

// newLoader creates an image loader honoring FrameFlags.
func newLoader(ctx *cli.Context) loader.Loader {
	return loader.NewLoader(loader.BackendTypeImage,
		loader.WithSize(ctx.Int("width"), ctx.Int("height")),
		loader.WithIntensity(float32(ctx.Float64("intensity"))),
	)
}

// loadMask loads the --mask image sized to match img, or returns nil when no mask is given.
func loadMask(ctx *cli.Context, l loader.Loader, img *common.ColorImage) (*common.ImportanceMask, error) {
	path := ctx.String("mask")
	if path == "" {
		return nil, nil
	}
	return l.LoadMask(path, img.Width, img.Height)
}

// pass bundles an auto exposure pass with the renderer it dispatches through, if any.
type pass struct {
	r  renderer.Renderer
	ae auto_exposure.AutoExposure
}

// setupPass creates the renderer and auto exposure pass described by ExposureFlags and
// BackendFlags. A renderer is created for the wgpu backend and whenever a window is given.
func setupPass(ctx *cli.Context, win window.Window, readback bool) (*pass, error) {
	s, err := settingsFromContext(ctx)
	if err != nil {
		return nil, err
	}
	backend, err := auto_exposure.ParseBackendType(ctx.String("backend"))
	if err != nil {
		return nil, err
	}

	opts := []auto_exposure.AutoExposureBuilderOption{
		auto_exposure.WithSettings(s),
		auto_exposure.WithBackend(backend),
		auto_exposure.WithReadback(readback),
		auto_exposure.WithShaderValidation(ctx.Bool("validate")),
	}
	if n := ctx.Int("workers"); n > 0 {
		opts = append(opts, auto_exposure.WithWorkers(n))
	}

	p := &pass{}
	if backend == auto_exposure.BackendTypeWGPU || win != nil {
		rendererOpts := []renderer.RendererBuilderOption{
			renderer.WithForceSoftwareRenderer(ctx.Bool("software-adapter")),
			renderer.WithStorageBufferLimit(auto_exposure.MaxColorBufferBytes),
		}
		if name := ctx.String("present"); name != "" {
			mode, err := renderer.ParsePresentMode(name)
			if err != nil {
				return nil, err
			}
			rendererOpts = append(rendererOpts, renderer.WithPresentMode(mode))
		}
		p.r, err = renderer.NewRenderer(renderer.BackendTypeWGPU, win, rendererOpts...)
		if err != nil {
			return nil, fmt.Errorf("creating renderer: %w", err)
		}
		opts = append(opts, auto_exposure.WithRenderer(p.r))
	}

	p.ae, err = auto_exposure.NewAutoExposure(opts...)
	if err != nil {
		p.Release()
		return nil, err
	}
	logger.Noticef("auto exposure on %s backend, metering %s, tau %gs", backend, s.Metering, s.Tau)
	return p, nil
}

// Release frees the pass before the renderer it depends on.
func (p *pass) Release() {
	if p.ae != nil {
		p.ae.Release()
	}
	if p.r != nil {
		p.r.Release()
	}
}
