package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/smazurov/sunxidisp/internal/display"
)

const scalingNote = "NOTE: Scaling mode is incompatible with Mali/EGL apps. Run 'noscale' first."

// parseScaling parses "<fbW>x<fbH> <scnW>x<scnH> <depth>" before any device
// is touched.
func parseScaling(args []string) (display.ScalingRequest, error) {
	src, err := display.ParseGeometry(args[0])
	if err != nil {
		return display.ScalingRequest{}, err
	}
	dst, err := display.ParseGeometry(args[1])
	if err != nil {
		return display.ScalingRequest{}, err
	}
	depth, err := display.ParseDepth(args[2])
	if err != nil {
		return display.ScalingRequest{}, err
	}
	req := display.ScalingRequest{Source: src, Dest: dst, Depth: depth}
	return req, req.Validate()
}

// parseOptionalDepth returns 0 when no depth argument was given.
func parseOptionalDepth(args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	return display.ParseDepth(args[0])
}

func writeScalingResult(w io.Writer, res display.ScalingResult) {
	req := res.Request
	switch {
	case res.Automatic && !res.Applied:
		fmt.Fprintf(w, "Framebuffer already %s @ %dbpp, nothing to change\n", req.Source, req.Depth)
	case res.Automatic && res.Scaled:
		fmt.Fprintf(w, "DE2 auto-scaling: %s -> %s (handled by hardware)\n", req.Source, req.Dest)
	case res.Automatic:
		fmt.Fprintf(w, "Framebuffer set to: %s @ %dbpp\n", req.Source, req.Depth)
		fmt.Fprintln(w, "No scaling needed (1:1)")
	case res.Scaled:
		fmt.Fprintf(w, "Hardware scaling enabled: %s -> %s\n", req.Source, req.Dest)
		fmt.Fprintln(w, scalingNote)
	default:
		fmt.Fprintf(w, "Framebuffer configured: %s (no scaling)\n", req.Source)
	}
	if res.LineLength > 0 {
		fmt.Fprintf(w, "Line length: %d bytes, Total size: %d bytes\n", res.LineLength, res.MemSize)
	}
}

func newScaleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "scale <fbW>x<fbH> <scnW>x<scnH> <depth>",
		Short:   "Show a framebuffer of one size scaled to the screen",
		Example: "  sunxidisp scale 640x480 1920x1080 32",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := parseScaling(args)
			if err != nil {
				return err
			}
			return a.withDisplay(func(d *display.Display) error {
				res, err := d.SetupScaling(req)
				if err != nil {
					return fmt.Errorf("set up scaling: %w", err)
				}
				w := cmd.OutOrStdout()
				writeScalingResult(w, res)
				fmt.Fprintf(w, "Framebuffer: %s @ %dbpp\n", req.Source, req.Depth)
				fmt.Fprintf(w, "Screen output: %s\n", req.Dest)
				return nil
			})
		},
	}
}

func newScale2Cmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scale2 <fbW>x<fbH> <scnW>x<scnH> <depth>",
		Short: "Set up scaling with a hand-built scaler layer (DE1)",
		Long: `Configure the framebuffer through fbdev, then request a DE1 layer in
scaler mode on the framebuffer memory. This is the manual alternative to
"scale" and is meant for testing drivers whose framebuffer request path
misbehaves. The layer handle is printed for "layer show|close|release".`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := parseScaling(args)
			if err != nil {
				return err
			}
			return a.withDisplay(func(d *display.Display) error {
				res, err := d.SetupScalingLayer(req)
				if err != nil {
					return fmt.Errorf("set up scaling layer: %w", err)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "FB physical address: 0x%x\n", res.Framebuffer.Fix.SmemStart)
				fmt.Fprintf(w, "Scaling layer created (handle: %d)\n", res.Handle)
				fmt.Fprintf(w, "Framebuffer: %s @ %dbpp\n", req.Source, req.Depth)
				fmt.Fprintf(w, "Screen output: %s\n", req.Dest)
				return nil
			})
		},
	}
}

func newAutoScaleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "autoscale [depth]",
		Short: "Scale the current framebuffer to the current screen size",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			depth, err := parseOptionalDepth(args)
			if err != nil {
				return err
			}
			return a.withDisplay(func(d *display.Display) error {
				res, err := d.AutoScale(depth)
				if err != nil {
					return fmt.Errorf("autoscale: %w", err)
				}
				w := cmd.OutOrStdout()
				fb, scn := res.State.Framebuffer, res.State.Screen
				switch res.Action {
				case display.AutoScaleNotNeeded:
					fmt.Fprintf(w, "Framebuffer (%s) already matches screen size - no scaling needed\n", fb)
				case display.AutoScaleAutomatic:
					fmt.Fprintf(w, "DE2 auto-scaling already active: %s -> %s\n", fb, scn)
				case display.AutoScaleApplied:
					fmt.Fprintf(w, "Scaling: %s -> %s @ %dbpp\n", fb, scn, res.Depth)
					writeScalingResult(w, res.Scaling)
					fmt.Fprintf(w, "Autoscale complete: %s framebuffer scaled to %s screen\n", fb, scn)
				}
				return nil
			})
		},
	}
}

func newNoScaleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "noscale [depth]",
		Short: "Disable scaling by sizing the framebuffer to the screen",
		Long: `Resize the framebuffer to the current screen size so it is shown 1:1.
Run this before starting Mali GPU or EGL applications. Without a depth the
framebuffer keeps its current depth.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			depth, err := parseOptionalDepth(args)
			if err != nil {
				return err
			}
			return a.withDisplay(func(d *display.Display) error {
				res, err := d.NoScale(depth)
				if err != nil {
					return fmt.Errorf("noscale: %w", err)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Disabling scaling: FB -> %s @ %dbpp\n", res.Request.Dest, res.Request.Depth)
				writeScalingResult(w, res)
				return nil
			})
		},
	}
}
