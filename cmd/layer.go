package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/smazurov/sunxidisp/internal/display"
)

func parseHandle(s string) (int, error) {
	h, err := strconv.Atoi(s)
	if err != nil || h < 0 {
		return 0, fmt.Errorf("%w: layer handle %q", display.ErrInvalidInput, s)
	}
	return h, nil
}

func newLayerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layer",
		Short: "Inspect and tear down DE1 layers created by scale2",
	}

	show := &cobra.Command{
		Use:   "show <handle>",
		Short: "Print a layer's parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := parseHandle(args[0])
			if err != nil {
				return err
			}
			return a.withDisplay(func(d *display.Display) error {
				l, err := d.LayerParams(h)
				if err != nil {
					return fmt.Errorf("read layer %d: %w", h, err)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Layer %d: mode=%s pipe=%d prio=%d alpha=%d/%d\n", h, l.Mode, l.Pipe, l.Prio, l.AlphaEn, l.AlphaVal)
				fmt.Fprintf(w, "  src_win=%d,%d %dx%d\n", l.SrcWin.X, l.SrcWin.Y, l.SrcWin.Width, l.SrcWin.Height)
				fmt.Fprintf(w, "  scn_win=%d,%d %dx%d\n", l.ScnWin.X, l.ScnWin.Y, l.ScnWin.Width, l.ScnWin.Height)
				fmt.Fprintf(w, "  fb=0x%x %dx%d format=%d seq=%d\n", l.FB.Addr[0], l.FB.Size.Width, l.FB.Size.Height, l.FB.Format, l.FB.Seq)
				return nil
			})
		},
	}

	closeCmd := &cobra.Command{
		Use:   "close <handle>",
		Short: "Hide a layer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := parseHandle(args[0])
			if err != nil {
				return err
			}
			return a.withDisplay(func(d *display.Display) error {
				if err := d.CloseLayer(h); err != nil {
					return fmt.Errorf("close layer %d: %w", h, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Layer %d closed\n", h)
				return nil
			})
		},
	}

	release := &cobra.Command{
		Use:   "release <handle>",
		Short: "Close and release a layer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := parseHandle(args[0])
			if err != nil {
				return err
			}
			return a.withDisplay(func(d *display.Display) error {
				if err := d.ReleaseLayer(h); err != nil {
					return fmt.Errorf("release layer %d: %w", h, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Layer %d released\n", h)
				return nil
			})
		},
	}

	cmd.AddCommand(show, closeCmd, release)
	return cmd
}

func newScreenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Screen settings (DE1)",
	}

	set := &cobra.Command{
		Use:   "set <W>x<H>",
		Short: "Set the screen size used for off-screen composition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := display.ParseGeometry(args[0])
			if err != nil {
				return err
			}
			return a.withDisplay(func(d *display.Display) error {
				if err := d.SetScreenSize(g); err != nil {
					return fmt.Errorf("set screen size: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Screen size set to %s\n", g)
				return nil
			})
		},
	}

	cmd.AddCommand(set)
	return cmd
}
