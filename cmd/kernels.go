package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-exposure/common"
	"github.com/Carmen-Shannon/oxy-exposure/engine/auto_exposure"
	"github.com/Carmen-Shannon/oxy-exposure/engine/exposure"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Kernels validates the kernel module and lists its entry points and bindings.
func Kernels(ctx *cli.Context) error {
	setupLogging(ctx)

	path := ctx.Args().First()
	src := auto_exposure.KernelSource
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		src = string(data)
	}
	name := common.Coalesce(path, "embedded")

	k, err := auto_exposure.LoadKernels(src, !ctx.Bool("no-validate"))
	if err != nil {
		return err
	}

	width, height := ctx.Int("width"), ctx.Int("height")
	if err := exposure.ValidateResolution(width, height); err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Kernel", "Entry point", "Workgroup size", fmt.Sprintf("Dispatch @ %dx%d", width, height)})
	for _, kernel := range exposure.Kernels {
		ep := k.EntryPoints[kernel]
		size, _ := k.Shader.WorkgroupSizeOf(ep)
		table.Append([]string{
			fmt.Sprintf("%d", int(kernel)),
			ep,
			fmt.Sprintf("%dx%dx%d", size[0], size[1], size[2]),
			fmt.Sprintf("%v", exposure.DispatchSize(kernel, width, height)),
		})
	}
	table.Render()

	buf.WriteString("\n")
	bindings := tablewriter.NewWriter(&buf)
	bindings.SetAutoFormatHeaders(false)
	bindings.SetAutoWrapText(false)
	bindings.SetHeader([]string{"Group", "Binding", "Variable", "Type", "Min size"})
	for _, entry := range k.Shader.BindGroupLayoutDescriptor(0).Entries {
		bindings.Append([]string{
			"0",
			fmt.Sprintf("%d", entry.Binding),
			k.Shader.BindGroupVarName(0, int(entry.Binding)),
			fmt.Sprintf("%v", entry.Buffer.Type),
			fmt.Sprintf("%d", entry.Buffer.MinBindingSize),
		})
	}
	bindings.Render()

	logger.Noticef("kernel module %s\n%s", name, buf.String())
	return nil
}
