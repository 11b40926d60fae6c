package cmd

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-exposure/common"
	"github.com/Carmen-Shannon/oxy-exposure/engine/source"
	"github.com/urfave/cli"
)

// SequenceFlags control how long each image of a sequence is shown.
var SequenceFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "hold",
		Value: 60,
		Usage: "frames each image is shown for",
	},
	cli.BoolFlag{
		Name:  "loop",
		Usage: "wrap around to the first image after the last",
	},
}

// Sequence replays a list of images, holding each for a number of frames, and prints the trace.
// Without --frames the run covers the list exactly once.
func Sequence(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() == 0 {
		return errors.New("missing image file arguments")
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

	hold := ctx.Int("hold")
	src, err := source.NewSequenceSource(images, hold, ctx.Bool("loop"), source.WithMask(mask))
	if err != nil {
		return err
	}

	frames := ctx.Int("frames")
	if !ctx.IsSet("frames") {
		frames = hold * len(images)
	}
	return runHeadless(ctx, src, frames)
}
