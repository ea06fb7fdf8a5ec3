package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smazurov/sunxidisp/internal/display"
)

func newHDMICmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hdmi",
		Short: "Control the HDMI output",
	}

	on := &cobra.Command{
		Use:   "on",
		Short: "Enable HDMI output, initializing a default mode if needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDisplay(func(d *display.Display) error {
				mode, err := d.EnableOutput()
				if err != nil {
					return fmt.Errorf("enable HDMI: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "HDMI enabled: %s\n", mode)
				return nil
			})
		},
	}

	off := &cobra.Command{
		Use:   "off",
		Short: "Disable HDMI output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDisplay(func(d *display.Display) error {
				if err := d.DisableOutput(); err != nil {
					return fmt.Errorf("disable HDMI: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "HDMI disabled")
				return nil
			})
		},
	}

	mode := &cobra.Command{
		Use:   "mode <name|number>",
		Short: "Set the HDMI mode by catalog name or driver mode number",
		Long: `Set the HDMI mode. The argument is a mode name such as 720p60 or 1080p50,
or a driver mode number. Numbers missing from the mode table are sent as is.
Modes the display's EDID does not list are refused unless --force is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := display.ParseMode(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			return a.withDisplay(func(d *display.Display) error {
				if m.Name == "" {
					fmt.Fprintf(w, "Setting HDMI mode %d (not in mode table)\n", m.ID)
				}
				if err := d.InitMode(m); err != nil {
					return err
				}
				fmt.Fprintf(w, "HDMI mode set to %s\n", m)
				return nil
			})
		},
	}

	initCmd := &cobra.Command{
		Use:   "init <W>x<H>[@Hz]",
		Short: "Initialize HDMI with the first mode matching a resolution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := display.ParseResolution(args[0])
			if err != nil {
				return err
			}
			m, ok := display.ModeByResolution(res.Width, res.Height, res.Refresh)
			if !ok {
				return fmt.Errorf("%w: no matching HDMI mode for %s", display.ErrInvalidInput, args[0])
			}
			return a.withDisplay(func(d *display.Display) error {
				if err := d.InitMode(m); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "HDMI initialized: %s\n", m)
				return nil
			})
		},
	}

	cmd.AddCommand(on, off, mode, initCmd)
	return cmd
}
