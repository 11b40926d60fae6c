package cmd

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-exposure/engine"
	"github.com/Carmen-Shannon/oxy-exposure/engine/source"
	"github.com/urfave/cli"
)

// PulseFlags turn the run command's static scene into a pulsing one.
var PulseFlags = []cli.Flag{
	cli.Float64Flag{
		Name:  "pulse-period",
		Usage: "alternate the scene between --pulse-low and --pulse-high every half period (seconds, 0 = off)",
	},
	cli.Float64Flag{
		Name:  "pulse-low",
		Value: 0.25,
		Usage: "scene gain during the first half of each pulse period",
	},
	cli.Float64Flag{
		Name:  "pulse-high",
		Value: 4,
		Usage: "scene gain during the second half of each pulse period",
	},
}

// Run exposes a single image for a number of frames without a window and prints the trace.
func Run(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing image file argument")
	}

	l := newLoader(ctx)
	img, err := l.Load(ctx.Args().First())
	if err != nil {
		return err
	}
	mask, err := loadMask(ctx, l, img)
	if err != nil {
		return err
	}

	var src source.FrameSource
	if period := ctx.Float64("pulse-period"); period > 0 {
		src, err = source.NewPulseSource(img, float32(ctx.Float64("pulse-low")), float32(ctx.Float64("pulse-high")), float32(period), source.WithMask(mask))
	} else {
		src, err = source.NewStaticSource(img, source.WithMask(mask))
	}
	if err != nil {
		return err
	}

	return runHeadless(ctx, src, ctx.Int("frames"))
}

// runHeadless drives src through the pass for a fixed number of frames, prints the trace and
// optionally saves the final frame.
func runHeadless(ctx *cli.Context, src source.FrameSource, frames int) error {
	if frames <= 0 {
		return errors.New("--frames must be positive")
	}
	out := ctx.String("out")

	p, err := setupPass(ctx, nil, out != "")
	if err != nil {
		return err
	}
	defer p.Release()

	t := newTrace(ctx, frames)
	e := engine.NewEngine(
		engine.WithSource(src),
		engine.WithAutoExposure(p.ae),
		engine.WithFixedDeltaTime(float32(ctx.Float64("dt"))),
		engine.WithMaxFrames(frames),
		engine.WithFrameCallback(t.record(frames)),
	)
	if err := e.Run(); err != nil {
		return err
	}
	t.display()

	if out != "" && t.final != nil {
		return newLoader(ctx).Save(out, t.final)
	}
	return nil
}
