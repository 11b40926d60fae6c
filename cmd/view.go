package cmd

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-exposure/common"
	"github.com/Carmen-Shannon/oxy-exposure/engine"
	"github.com/Carmen-Shannon/oxy-exposure/engine/auto_exposure"
	"github.com/Carmen-Shannon/oxy-exposure/engine/exposure"
	"github.com/Carmen-Shannon/oxy-exposure/engine/loader"
	"github.com/Carmen-Shannon/oxy-exposure/engine/renderer"
	"github.com/Carmen-Shannon/oxy-exposure/engine/source"
	"github.com/Carmen-Shannon/oxy-exposure/engine/window"
	"github.com/urfave/cli"
)

const (
	// intensityStep is the scene gain change per arrow key press (one stop).
	intensityStep float32 = 2
	// compensationStep is the EV bias change per arrow key press.
	compensationStep float32 = 0.5
	// titleInterval throttles title bar updates.
	titleInterval = 250 * time.Millisecond
)

// ViewFlags configure the interactive viewer.
var ViewFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "hold",
		Value: 120,
		Usage: "frames each image is shown for when several are given",
	},
	cli.Float64Flag{
		Name:  "fps",
		Usage: "render frame rate cap (0 = uncapped)",
	},
	cli.StringFlag{
		Name:  "present",
		Value: renderer.PresentModeVSync.String(),
		Usage: "surface present mode: vsync or uncapped",
	},
	cli.BoolFlag{
		Name:  "profile",
		Usage: "log frame rate and stage timings every second",
	},
}

// View opens a window and shows the images through the auto exposure pass in real time.
//
// Keys: up/down scale the scene by one stop, left/right change compensation, 1-4 select the
// metering mode, space pauses adaptation, R rewinds the source, P toggles the profiler. Dropping
// an image file onto the window replaces the scene.
func View(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() == 0 {
		return errors.New("missing image file argument")
	}

	l := newLoader(ctx)
	images := make([]*common.ColorImage, 0, ctx.NArg())
	for _, path := range ctx.Args() {
		img, err := l.Load(path)
		if err != nil {
			return err
		}
		images = append(images, img)
	}
	mask, err := loadMask(ctx, l, images[0])
	if err != nil {
		return err
	}

	var src source.FrameSource
	if len(images) == 1 {
		src, err = source.NewStaticSource(images[0], source.WithMask(mask))
	} else {
		src, err = source.NewSequenceSource(images, ctx.Int("hold"), true, source.WithMask(mask))
	}
	if err != nil {
		return err
	}

	win, err := window.NewWindow(
		window.WithTitle("oxy-exposure"),
		window.WithSize(images[0].Width, images[0].Height),
		window.WithLockedAspect(true),
	)
	if err != nil {
		return err
	}
	p, err := setupPass(ctx, win, false)
	if err != nil {
		win.Close()
		return err
	}
	defer p.Release()

	v := &viewer{pass: p, loader: l}
	e := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithRenderer(p.r),
		engine.WithAutoExposure(p.ae),
		engine.WithSource(src),
		engine.WithProfiling(ctx.Bool("profile")),
		engine.WithRenderFrameLimit(ctx.Float64("fps")),
		engine.WithFrameCallback(v.onFrame),
	)
	v.engine = e
	v.profiling = ctx.Bool("profile")

	win.SetKeyDownCallback(v.onKey)
	win.SetDropCallback(v.onDrop)
	e.SetUpdateCallback(func() {
		if title, ok := v.title(); ok {
			win.SetTitle(title)
		}
	})

	return e.Run()
}

// viewer holds the interactive state of the view command.
type viewer struct {
	*pass
	engine engine.Engine
	loader loader.Loader

	mu        sync.Mutex
	last      auto_exposure.FrameStats
	lastTitle time.Time
	profiling bool
}

func (v *viewer) onFrame(stats auto_exposure.FrameStats, _ *common.ColorImage) {
	v.mu.Lock()
	v.last = stats
	v.mu.Unlock()
}

// title formats the latest frame for the title bar, at most every titleInterval.
func (v *viewer) title() (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if time.Since(v.lastTitle) < titleInterval || v.last.Frame == 0 {
		return "", false
	}
	v.lastTitle = time.Now()

	s := v.ae.Settings()
	paused := ""
	if v.engine.Paused() {
		paused = " [paused]"
	}
	return fmt.Sprintf("oxy-exposure | EV %+.2f -> %+.2f | x%.3f | %s | comp %+.1f | scene x%g%s",
		v.last.EV(), v.last.TargetEV, v.last.Exposure(), s.Metering, s.Compensation,
		v.engine.Source().Intensity(), paused), true
}

func (v *viewer) onKey(key uint32) {
	src := v.engine.Source()
	switch key {
	case common.KeyUp:
		src.SetIntensity(src.Intensity() * intensityStep)
	case common.KeyDown:
		src.SetIntensity(src.Intensity() / intensityStep)
	case common.KeyRight, common.KeyEqual:
		v.adjust(func(s *exposure.Settings) { s.Compensation += compensationStep })
	case common.KeyLeft, common.KeyMinus:
		v.adjust(func(s *exposure.Settings) { s.Compensation -= compensationStep })
	case common.Key1:
		v.adjust(func(s *exposure.Settings) { s.Metering = exposure.MeteringAverage })
	case common.Key2:
		v.adjust(func(s *exposure.Settings) { s.Metering = exposure.MeteringCenterWeighted })
	case common.Key3:
		v.adjust(func(s *exposure.Settings) { s.Metering = exposure.MeteringSpot })
	case common.Key4:
		if src.Mask() == nil {
			logger.Warning("mask metering needs --mask")
			return
		}
		v.adjust(func(s *exposure.Settings) { s.Metering = exposure.MeteringMask })
	case common.KeySpace:
		v.engine.SetPaused(!v.engine.Paused())
	case common.KeyR:
		src.Reset()
	case common.KeyP:
		v.profiling = !v.profiling
		if v.profiling {
			v.engine.EnableProfiler()
		} else {
			v.engine.DisableProfiler()
		}
	}
}

// adjust applies a settings change, logging rather than failing on an invalid result.
func (v *viewer) adjust(change func(*exposure.Settings)) {
	s := v.ae.Settings()
	change(&s)
	if err := v.ae.SetSettings(s); err != nil {
		logger.Warningf("%v", err)
		return
	}
	logger.Infof("metering %s, compensation %+.1f EV", s.Metering, s.Compensation)
}

// onDrop replaces the scene with the first dropped image. The mask is dropped with the old
// scene since it no longer matches.
func (v *viewer) onDrop(paths []string) {
	if len(paths) == 0 {
		return
	}
	img, err := v.loader.Load(paths[0])
	if err != nil {
		logger.Warningf("%v", err)
		return
	}
	if v.ae.Settings().Metering == exposure.MeteringMask {
		v.adjust(func(s *exposure.Settings) { s.Metering = exposure.MeteringAverage })
	}
	src, err := source.NewStaticSource(img, source.WithIntensity(v.engine.Source().Intensity()))
	if err != nil {
		logger.Warningf("%v", err)
		return
	}
	v.engine.SetSource(src)
	logger.Noticef("showing %s (%dx%d)", paths[0], img.Width, img.Height)
}
