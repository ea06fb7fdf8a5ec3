package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smazurov/sunxidisp/internal/display"
)

func newFBCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fb",
		Short: "Configure the framebuffer",
	}

	set := &cobra.Command{
		Use:     "set <W>x<H>x<depth>",
		Short:   "Set framebuffer resolution and depth through fbdev",
		Example: "  sunxidisp fb set 640x480x32",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, depth, err := display.ParseGeometryDepth(args[0])
			if err != nil {
				return err
			}
			return a.withDisplay(func(d *display.Display) error {
				info, err := d.ConfigureFramebuffer(g, depth)
				if err != nil {
					return fmt.Errorf("configure framebuffer: %w", err)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Framebuffer configured: %dx%d @ %d bpp\n", info.Var.XRes, info.Var.YRes, info.Var.BitsPerPixel)
				fmt.Fprintf(w, "Line length: %d bytes, Total size: %d bytes\n", info.Fix.LineLength, info.Fix.SmemLen)
				return nil
			})
		},
	}

	cmd.AddCommand(set)
	return cmd
}
