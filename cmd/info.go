package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smazurov/sunxidisp/internal/display"
	"github.com/smazurov/sunxidisp/pkg/linuxav/fbdev"
	"github.com/smazurov/sunxidisp/pkg/linuxav/sunxi"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show display and framebuffer information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDisplay(func(d *display.Display) error {
				writeInfo(cmd.OutOrStdout(), d, a.opts.DisplayFBDevice)
				return nil
			})
		},
	}
}

// writeInfo prints the state report. Read failures are reported inline so
// one broken query does not hide the rest.
func writeInfo(w io.Writer, d *display.Display, fbPath string) {
	fmt.Fprintln(w, "=== Sunxi Display Information ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Display Engine: %s\n", d.Generation())
	fmt.Fprintf(w, "Screen: %d\n", d.Screen())

	if t, err := d.OutputType(); err != nil {
		fmt.Fprintf(w, "Output type: failed to read (%v)\n", err)
	} else {
		fmt.Fprintf(w, "Output type: %s\n", t)
	}
	if st, err := d.OutputState(); err == nil {
		fmt.Fprintf(w, "Output state: %s\n", st)
	}

	if hpd, err := d.Hotplug(); err != nil {
		fmt.Fprintf(w, "HDMI Hot Plug: Error (%v)\n", err)
	} else {
		fmt.Fprintf(w, "HDMI Hot Plug: %s (raw: %d)\n", hpd, int(hpd))
	}

	if m, err := d.CurrentMode(); err != nil {
		fmt.Fprintf(w, "Current HDMI mode: failed to read (%v)\n", err)
	} else {
		fmt.Fprintf(w, "Current HDMI mode: %s\n", describeMode(m))
	}

	if g, err := d.ScreenSize(); err != nil {
		fmt.Fprintln(w, "Screen size: failed to read")
	} else {
		fmt.Fprintf(w, "Screen size: %s\n", g)
	}

	fmt.Fprintf(w, "\n--- Framebuffer (%s) ---\n", fbPath)
	if info, err := d.FramebufferInfo(); err != nil {
		fmt.Fprintf(w, "Failed to read framebuffer info: %v\n", err)
	} else {
		writeFramebuffer(w, info)
		if state, err := d.ScalingState(); err == nil {
			fmt.Fprintf(w, "Scaling: %s\n", state)
		}
	}

	if p, err := d.FramebufferParams(); err == nil {
		fmt.Fprintf(w, "Driver framebuffer: %s mode, %d buffer(s), %dx%d -> %dx%d, line %d bytes, %d bytes\n",
			p.Mode, p.BufferNum, p.Width, p.Height, p.OutputWidth, p.OutputHeight, p.LineLength, p.SmemLen)
	} else if !errors.Is(err, errors.ErrUnsupported) {
		fmt.Fprintf(w, "Driver framebuffer: failed to read (%v)\n", err)
	}

	if d.Backend().AutomaticScaling() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Note: DE2 handles scaling automatically via VSU/GSU hardware.")
		fmt.Fprintln(w, "      Change FB resolution with 'fb set' or 'scale' to adjust.")
	}

	fmt.Fprintln(w, "\n--- Supported HDMI modes ---")
	writeModeTable(w, d.SupportedModes())
	fmt.Fprintln(w, "\nNote: Mode support detection requires HDMI cable connected.")
}

func describeMode(m display.Mode) string {
	if m.Name == "" {
		return fmt.Sprintf("%d (not in table)", m.ID)
	}
	return fmt.Sprintf("%d = %s", m.ID, m)
}

func writeFramebuffer(w io.Writer, info display.FramebufferInfo) {
	v, f := info.Var, info.Fix
	fmt.Fprintf(w, "Resolution: %dx%d", v.XRes, v.YRes)
	if v.XResVirtual != v.XRes || v.YResVirtual != v.YRes {
		fmt.Fprintf(w, " (virtual: %dx%d)", v.XResVirtual, v.YResVirtual)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Color depth: %d bpp\n", v.BitsPerPixel)
	fmt.Fprintf(w, "Color format: %s\n", colorFormat(v))
	fmt.Fprintf(w, "Line length: %d bytes\n", f.LineLength)
	fmt.Fprintf(w, "Memory size: %d bytes (%.2f MB)\n", f.SmemLen, float64(f.SmemLen)/(1024*1024))
	fmt.Fprintf(w, "Physical address: 0x%x\n", f.SmemStart)
}

func colorFormat(v fbdev.VarScreenInfo) string {
	s := fmt.Sprintf("R%d@%d G%d@%d B%d@%d",
		v.Red.Length, v.Red.Offset, v.Green.Length, v.Green.Offset, v.Blue.Length, v.Blue.Offset)
	if v.Alpha.Length > 0 {
		s += fmt.Sprintf(" A%d@%d", v.Alpha.Length, v.Alpha.Offset)
	}
	return s
}

func writeModeTable(w io.Writer, modes []display.ModeSupport) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  Mode\tName\tResolution\tSupported")
	fmt.Fprintln(tw, "  ----\t----\t----------\t---------")
	for _, ms := range modes {
		supported := "No"
		if ms.Supported {
			supported = "Yes"
		}
		fmt.Fprintf(tw, "  %d\t%s\t%dx%d\t%s\n", ms.Mode.ID, ms.Mode.Name, ms.Mode.Width, ms.Mode.Height, supported)
	}
	_ = tw.Flush()
}

func newDebugCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "debug",
		Short: "Show wire structure layout and driver state for debugging",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			writeLayout(w)
			return a.withDisplay(func(d *display.Display) error {
				writeDriverDebug(w, d)
				return nil
			})
		},
	}
}

// writeLayout prints every size and offset assertion of the driver ABI.
func writeLayout(w io.Writer) {
	fmt.Fprintln(w, "=== Structure Layout Debug Info ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Word size: %d bytes\n\n", strconv.IntSize/8)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	failed := 0
	for _, c := range sunxi.Layout() {
		verdict := "OK"
		if !c.OK() {
			verdict = "MISMATCH"
			failed++
		}
		fmt.Fprintf(tw, "  %s\t%s\n", c, verdict)
	}
	_ = tw.Flush()

	if failed > 0 {
		fmt.Fprintf(w, "\nLayout self-check: FAILED (%d mismatches), scaling commands are refused\n", failed)
	} else {
		fmt.Fprintln(w, "\nLayout self-check: OK")
	}
}

func writeDriverDebug(w io.Writer, d *display.Display) {
	fmt.Fprintf(w, "\nDisplay Engine: %s\n", d.Generation())

	if p, err := d.FramebufferParams(); err == nil {
		fmt.Fprintln(w, "\nFB_GET_PARA (fb 0):")
		fmt.Fprintf(w, "  fb_mode=%d mode=%s buffer_num=%d\n", p.FBMode, p.Mode, p.BufferNum)
		fmt.Fprintf(w, "  size=%dx%d output=%dx%d primary_screen=%d\n", p.Width, p.Height, p.OutputWidth, p.OutputHeight, p.PrimaryScreenID)
		fmt.Fprintf(w, "  line_length=%d smem_len=%d\n", p.LineLength, p.SmemLen)
	} else if !errors.Is(err, errors.ErrUnsupported) {
		fmt.Fprintf(w, "\nFB_GET_PARA failed: %v\n", err)
	}

	if c, err := d.LayerConfig(0, 0); err == nil {
		l := c.Info
		fmt.Fprintln(w, "\nLayer config (channel 0, layer 0):")
		fmt.Fprintf(w, "  enable=%v channel=%d layer_id=%d zorder=%d alpha=%d/%d\n",
			c.Enable, c.Channel, c.LayerID, l.ZOrder, l.AlphaMode, l.AlphaValue)
		fmt.Fprintf(w, "  screen_win=%d,%d %dx%d\n", l.ScreenWin.X, l.ScreenWin.Y, l.ScreenWin.Width, l.ScreenWin.Height)
		fmt.Fprintf(w, "  fb=%dx%d format=%d addr=0x%x\n", l.FB.Size[0].Width, l.FB.Size[0].Height, l.FB.Format, l.FB.Addr[0])
		fmt.Fprintf(w, "  crop=%d,%d %dx%d\n",
			sunxi.Fixed32(l.FB.Crop.X), sunxi.Fixed32(l.FB.Crop.Y), sunxi.Fixed32(l.FB.Crop.Width), sunxi.Fixed32(l.FB.Crop.Height))
	} else if !errors.Is(err, errors.ErrUnsupported) {
		fmt.Fprintf(w, "\nLayer config read failed: %v\n", err)
	}
}
