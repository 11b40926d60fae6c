package main

import (
	"os"
	"runtime"

	"github.com/Carmen-Shannon/oxy-exposure/cmd"
	"github.com/Carmen-Shannon/oxy-exposure/engine/log"
	"github.com/urfave/cli"
)

// glfw must run on the main thread.
func init() {
	runtime.LockOSThread()
}

func flags(sets ...[]cli.Flag) []cli.Flag {
	var all []cli.Flag
	for _, set := range sets {
		all = append(all, set...)
	}
	return all
}

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "oxy-exposure"
	app.Usage = "GPU camera auto exposure for linear HDR frames"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "run",
			Usage: "expose a single image for a number of frames and print the exposure trace",
			Description: `
Load an image (png, jpeg, gif, tiff, bmp or webp), convert it to linear light and
feed it to the auto exposure pass once per frame at a fixed time step. The
metered luminance, target EV and smoothed exposure are printed as a table.

With --pulse-period the scene alternates between two gains, which shows the
controller adapting in both directions.`,
			ArgsUsage: "image_file",
			Flags:     flags(cmd.ExposureFlags, cmd.BackendFlags, cmd.FrameFlags, cmd.TraceFlags, cmd.PulseFlags),
			Action:    cmd.Run,
		},
		{
			Name:  "sequence",
			Usage: "replay a list of images, holding each for a number of frames",
			Description: `
Show each image for --hold frames in order, for example a black frame followed
by a white one, and print the exposure trace. The per-frame EV change stays
bounded no matter how abrupt the scene change is.`,
			ArgsUsage: "image_file1 image_file2 ...",
			Flags:     flags(cmd.ExposureFlags, cmd.BackendFlags, cmd.FrameFlags, cmd.TraceFlags, cmd.SequenceFlags),
			Action:    cmd.Sequence,
		},
		{
			Name:      "view",
			Usage:     "show images through the auto exposure pass in a window",
			ArgsUsage: "image_file1 [image_file2 ...]",
			Flags:     flags(cmd.ExposureFlags, cmd.BackendFlags, cmd.FrameFlags, cmd.ViewFlags),
			Action:    cmd.View,
		},
		{
			Name:      "kernels",
			Usage:     "validate the kernel module and list its entry points and bindings",
			ArgsUsage: "[kernel_file.wgsl]",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "width",
					Value: 1920,
					Usage: "frame width used for the dispatch column",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 1080,
					Usage: "frame height used for the dispatch column",
				},
				cli.BoolFlag{
					Name:  "no-validate",
					Usage: "skip naga validation",
				},
			},
			Action: cmd.Kernels,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.New("oxy-exposure").Error(err)
		os.Exit(1)
	}
}
