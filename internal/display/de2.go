package display

import (
	"fmt"
	"log/slog"

	"github.com/smazurov/sunxidisp/pkg/linuxav/sunxi"
)

// de2Backend drives the H3/H5/A64 display driver. Mode changes go through
// one atomic device switch and the scaler follows the framebuffer size.
type de2Backend struct {
	conn        sunxi.Conn
	opts        *Options
	framebuffer func() (Framebuffer, error)
	logger      *slog.Logger
}

func newDE2Backend(conn sunxi.Conn, opts *Options, fb func() (Framebuffer, error), logger *slog.Logger) *de2Backend {
	return &de2Backend{conn: conn, opts: opts, framebuffer: fb, logger: logger}
}

func (b *de2Backend) Generation() Generation { return Gen2 }

func (b *de2Backend) AutomaticScaling() bool { return true }

func (b *de2Backend) screen() uintptr {
	return uintptr(b.opts.Screen)
}

func (b *de2Backend) ScreenSize() (Geometry, error) {
	w, err := b.conn.Ioctl(sunxi.DE2GetScreenWidth, sunxi.NewArgs(b.screen()))
	if err != nil {
		return Geometry{}, fmt.Errorf("get screen width: %w", err)
	}
	h, err := b.conn.Ioctl(sunxi.DE2GetScreenHeight, sunxi.NewArgs(b.screen()))
	if err != nil {
		return Geometry{}, fmt.Errorf("get screen height: %w", err)
	}
	return Geometry{Width: uint32(w), Height: uint32(h)}, nil
}

func (b *de2Backend) OutputType() (sunxi.OutputType, error) {
	t, err := b.conn.Ioctl(sunxi.DE2GetOutputType, sunxi.NewArgs(b.screen()))
	if err != nil {
		return sunxi.OutputNone, fmt.Errorf("get output type: %w", err)
	}
	return sunxi.OutputType(t), nil
}

// Hotplug has no driver command on DE2. Without the switch-class state file
// the state is unknown rather than disconnected.
func (b *de2Backend) Hotplug() (Hotplug, error) {
	state, _ := readSwitchState(b.opts.HDMIState)
	return state, nil
}

func (b *de2Backend) Modes() []Mode {
	return Modes()
}

func (b *de2Backend) ModeSupported(mode sunxi.TVMode) (bool, error) {
	ret, err := b.conn.Ioctl(sunxi.DE2HDMISupportMode, sunxi.NewArgs(b.screen(), uintptr(mode)))
	if err != nil {
		return false, fmt.Errorf("query support for %s: %w", modeLabel(mode), err)
	}
	return ret > 0, nil
}

func (b *de2Backend) CurrentMode() (sunxi.TVMode, error) {
	out, err := b.output()
	if err != nil {
		return sunxi.TVModeInvalid, err
	}
	return out.Mode, nil
}

func (b *de2Backend) output() (sunxi.DE2Output, error) {
	var out sunxi.DE2Output
	payload := sunxi.MustMarshal(&out)
	if _, err := b.conn.Ioctl(sunxi.DE2GetOutput, sunxi.NewArgs(b.screen()).WithPayload(1, payload)); err != nil {
		return out, fmt.Errorf("get output: %w", err)
	}
	if err := sunxi.Unmarshal(payload, &out); err != nil {
		return out, err
	}
	b.logger.Debug("Current output", "type", out.Type, "mode", int32(out.Mode))
	return out, nil
}

// deviceSwitch sets output type and mode in one driver call.
func (b *de2Backend) deviceSwitch(t sunxi.OutputType, mode sunxi.TVMode) error {
	args := sunxi.NewArgs(b.screen(), uintptr(t), uintptr(mode))
	if _, err := b.conn.Ioctl(sunxi.DE2DeviceSwitch, args); err != nil {
		return fmt.Errorf("switch output to %s %s: %w", t, modeLabel(mode), err)
	}
	return nil
}

func (b *de2Backend) InitMode(mode sunxi.TVMode) error {
	if err := checkSupported(b, mode, b.opts.Force, b.logger); err != nil {
		return err
	}
	return b.deviceSwitch(sunxi.OutputHDMI, mode)
}

func (b *de2Backend) DisableOutput() error {
	return b.deviceSwitch(sunxi.OutputNone, 0)
}

// SetupScaling programs the fbdev geometry with a double-height virtual
// area. Nothing is written when the framebuffer already matches.
func (b *de2Backend) SetupScaling(req ScalingRequest) (ScalingResult, error) {
	if err := req.Validate(); err != nil {
		return ScalingResult{}, err
	}

	fb, err := b.framebuffer()
	if err != nil {
		return ScalingResult{}, err
	}
	v, err := fb.VarScreenInfo()
	if err != nil {
		return ScalingResult{}, err
	}

	result := ScalingResult{
		Request:   req,
		Scaled:    req.NeedsScaling(),
		Automatic: true,
	}
	if v.XRes == req.Source.Width && v.YRes == req.Source.Height && v.BitsPerPixel == uint32(req.Depth) {
		b.logger.Debug("Framebuffer already configured", "size", req.Source.String(), "depth", req.Depth)
		return result, nil
	}

	v.XRes = req.Source.Width
	v.YRes = req.Source.Height
	v.XResVirtual = req.Source.Width
	v.YResVirtual = req.Source.Height * 2
	v.SetDepth(uint32(req.Depth))
	if err := fb.PutVarScreenInfo(&v); err != nil {
		return ScalingResult{}, err
	}
	result.Applied = true
	return result, nil
}

// LayerConfig reads one layer's configuration back from the driver.
func (b *de2Backend) LayerConfig(channel, layer uint32) (sunxi.DE2LayerConfig, error) {
	cfg := sunxi.DE2LayerConfig{Channel: channel, LayerID: layer}
	payload := sunxi.MustMarshal(&cfg)
	args := sunxi.NewArgs(b.screen(), 0, 1).WithPayload(1, payload)
	if _, err := b.conn.Ioctl(sunxi.DE2LayerGetConfig, args); err != nil {
		return cfg, fmt.Errorf("get layer %d.%d config: %w", channel, layer, err)
	}
	err := sunxi.Unmarshal(payload, &cfg)
	return cfg, err
}
