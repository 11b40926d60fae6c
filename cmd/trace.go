package cmd

import (
	"bytes"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-exposure/common"
	"github.com/Carmen-Shannon/oxy-exposure/engine"
	"github.com/Carmen-Shannon/oxy-exposure/engine/auto_exposure"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// TraceFlags control the exposure trace printed after a headless run.
var TraceFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "trace-every",
		Usage: "print every Nth frame in the trace (0 = about 20 rows)",
	},
	cli.StringFlag{
		Name:  "out, o",
		Usage: "write the final exposed frame to this image (.png, .tiff, .jpg or .bmp)",
	},
}

// trace collects FrameStats rows from an engine run.
type trace struct {
	every int
	rows  []auto_exposure.FrameStats
	last  auto_exposure.FrameStats
	final *common.ColorImage
	total time.Duration
	start time.Time
}

func newTrace(ctx *cli.Context, frames int) *trace {
	every := ctx.Int("trace-every")
	if every <= 0 {
		every = max(frames/20, 1)
	}
	return &trace{every: every, start: time.Now()}
}

// record is an engine.FrameCallback that keeps every Nth frame plus the last one.
func (t *trace) record(frames int) engine.FrameCallback {
	return func(stats auto_exposure.FrameStats, img *common.ColorImage) {
		t.total += stats.Timings.Total()
		t.last = stats
		if stats.Frame == 1 || stats.Frame%uint64(t.every) == 0 {
			t.rows = append(t.rows, stats)
		}
		if int(stats.Frame) == frames {
			t.final = img.Clone()
		}
	}
}

func (t *trace) display() {
	if n := len(t.rows); t.last.Frame != 0 && (n == 0 || t.rows[n-1].Frame != t.last.Frame) {
		t.rows = append(t.rows, t.last)
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetHeader([]string{"Frame", "Size", "Avg luminance", "Target EV", "EV", "Exposure", "Frame time"})
	for _, s := range t.rows {
		avg := "-"
		if s.Metered {
			avg = fmt.Sprintf("%.5f", s.AverageLuminance)
		}
		table.Append([]string{
			fmt.Sprintf("%d", s.Frame),
			fmt.Sprintf("%dx%d", s.Width, s.Height),
			avg,
			fmt.Sprintf("%+.3f", s.TargetEV),
			fmt.Sprintf("%+.3f", s.EV()),
			fmt.Sprintf("%.4f", s.Exposure()),
			s.Timings.Total().Round(time.Microsecond).String(),
		})
	}
	table.SetFooter([]string{"", "", "", "", "", "TOTAL", t.total.Round(time.Microsecond).String()})

	table.Render()
	logger.Noticef("exposure trace (wall time %s)\n%s", time.Since(t.start).Round(time.Millisecond), buf.String())
}
