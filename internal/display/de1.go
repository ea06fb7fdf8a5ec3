package display

import (
	"fmt"
	"log/slog"

	"github.com/smazurov/sunxidisp/pkg/linuxav/sunxi"
)

// de1FramebufferID is the display driver framebuffer backing /dev/fb0.
const de1FramebufferID = 0

// de1Backend drives the A10/A20 display driver. Every command takes the
// screen id in the first argument word except the framebuffer commands.
type de1Backend struct {
	conn   sunxi.Conn
	opts   *Options
	logger *slog.Logger
}

func newDE1Backend(conn sunxi.Conn, opts *Options, logger *slog.Logger) *de1Backend {
	return &de1Backend{conn: conn, opts: opts, logger: logger}
}

func (b *de1Backend) Generation() Generation { return Gen1 }

func (b *de1Backend) AutomaticScaling() bool { return false }

func (b *de1Backend) screen() uintptr {
	return uintptr(b.opts.Screen)
}

func (b *de1Backend) ScreenSize() (Geometry, error) {
	w, err := b.conn.Ioctl(sunxi.DE1ScreenGetWidth, sunxi.NewArgs(b.screen()))
	if err != nil {
		return Geometry{}, fmt.Errorf("get screen width: %w", err)
	}
	h, err := b.conn.Ioctl(sunxi.DE1ScreenGetHeight, sunxi.NewArgs(b.screen()))
	if err != nil {
		return Geometry{}, fmt.Errorf("get screen height: %w", err)
	}
	return Geometry{Width: uint32(w), Height: uint32(h)}, nil
}

func (b *de1Backend) OutputType() (sunxi.OutputType, error) {
	t, err := b.conn.Ioctl(sunxi.DE1GetOutputType, sunxi.NewArgs(b.screen()))
	if err != nil {
		return sunxi.OutputNone, fmt.Errorf("get output type: %w", err)
	}
	return sunxi.OutputType(t), nil
}

// Hotplug asks the HDMI driver directly; the return value is the HPD line.
func (b *de1Backend) Hotplug() (Hotplug, error) {
	hpd, err := b.conn.Ioctl(sunxi.DE1HDMIGetHPD, sunxi.NewArgs(b.screen()))
	if err != nil {
		return HotplugUnknown, fmt.Errorf("get hot-plug state: %w", err)
	}
	return Hotplug(hpd), nil
}

// SetScreenSize changes the screen size used for off-screen rendering.
func (b *de1Backend) SetScreenSize(g Geometry) error {
	args := sunxi.NewArgs(b.screen(), uintptr(g.Width), uintptr(g.Height))
	if _, err := b.conn.Ioctl(sunxi.DE1SetScreenSize, args); err != nil {
		return fmt.Errorf("set screen size %s: %w", g, err)
	}
	return nil
}

func (b *de1Backend) Modes() []Mode {
	modes := make([]Mode, 0, len(catalog))
	for _, m := range catalog {
		if !m.UHD() {
			modes = append(modes, m)
		}
	}
	return modes
}

// ModeSupported is true when the driver returns a positive value. The driver
// returns zero both for unsupported modes and before HPD settles.
func (b *de1Backend) ModeSupported(mode sunxi.TVMode) (bool, error) {
	ret, err := b.conn.Ioctl(sunxi.DE1HDMISupportMode, sunxi.NewArgs(b.screen(), uintptr(mode)))
	if err != nil {
		return false, fmt.Errorf("query support for %s: %w", modeLabel(mode), err)
	}
	return ret > 0, nil
}

func (b *de1Backend) CurrentMode() (sunxi.TVMode, error) {
	ret, err := b.conn.Ioctl(sunxi.DE1HDMIGetMode, sunxi.NewArgs(b.screen()))
	if err != nil {
		return sunxi.TVModeInvalid, fmt.Errorf("get HDMI mode: %w", err)
	}
	return sunxi.TVMode(ret), nil
}

// InitMode switches output off, programs the mode and switches it back on.
// Turning output off may fail when it is already off; that is ignored.
func (b *de1Backend) InitMode(mode sunxi.TVMode) error {
	if err := checkSupported(b, mode, b.opts.Force, b.logger); err != nil {
		return err
	}

	if err := b.DisableOutput(); err != nil {
		b.logger.Debug("HDMI off before mode change failed, continuing", "error", err)
	}

	if _, err := b.conn.Ioctl(sunxi.DE1HDMISetMode, sunxi.NewArgs(b.screen(), uintptr(mode))); err != nil {
		return fmt.Errorf("set HDMI mode %s: %w", modeLabel(mode), err)
	}
	return b.enable()
}

func (b *de1Backend) enable() error {
	if _, err := b.conn.Ioctl(sunxi.DE1HDMIOn, sunxi.NewArgs(b.screen())); err != nil {
		return fmt.Errorf("enable HDMI: %w", err)
	}
	return nil
}

func (b *de1Backend) DisableOutput() error {
	if _, err := b.conn.Ioctl(sunxi.DE1HDMIOff, sunxi.NewArgs(b.screen())); err != nil {
		return fmt.Errorf("disable HDMI: %w", err)
	}
	return nil
}

// SetupScaling recreates the driver framebuffer. FB_REQUEST allocates the
// memory and configures its layer in one call; the scaler work mode is only
// requested when the sizes differ.
func (b *de1Backend) SetupScaling(req ScalingRequest) (ScalingResult, error) {
	if err := req.Validate(); err != nil {
		return ScalingResult{}, err
	}
	if err := sunxi.CheckLayout(); err != nil {
		return ScalingResult{}, fmt.Errorf("refusing framebuffer request: %w", err)
	}

	if _, err := b.conn.Ioctl(sunxi.DE1FBRelease, sunxi.NewArgs(de1FramebufferID)); err != nil {
		b.logger.Debug("Framebuffer release failed, continuing", "fb", de1FramebufferID, "error", err)
	}

	mode := sunxi.DE1WorkModeNormal
	if req.NeedsScaling() {
		mode = sunxi.DE1WorkModeScaler
	}
	para := sunxi.DE1FramebufferCreate{
		FBMode:          sunxi.DE1FBModeScreen0,
		Mode:            mode,
		BufferNum:       1,
		Width:           req.Source.Width,
		Height:          req.Source.Height,
		OutputWidth:     req.Dest.Width,
		OutputHeight:    req.Dest.Height,
		PrimaryScreenID: uint32(b.opts.Screen),
	}
	b.logger.Debug("Requesting framebuffer", "request", req.String(), "work_mode", mode)

	payload := sunxi.MustMarshal(&para)
	if _, err := b.conn.Ioctl(sunxi.DE1FBRequest, sunxi.NewArgs(de1FramebufferID).WithPayload(1, payload)); err != nil {
		return ScalingResult{}, fmt.Errorf("request framebuffer %s: %w", req.Source, err)
	}
	if err := sunxi.Unmarshal(payload, &para); err != nil {
		return ScalingResult{}, err
	}

	return ScalingResult{
		Request:    req,
		Scaled:     req.NeedsScaling(),
		Applied:    true,
		WorkMode:   mode,
		LineLength: para.LineLength,
		MemSize:    para.SmemLen,
	}, nil
}

// FramebufferParams reads back the creation parameters of a driver
// framebuffer.
func (b *de1Backend) FramebufferParams(fbID int) (sunxi.DE1FramebufferCreate, error) {
	var para sunxi.DE1FramebufferCreate
	payload := sunxi.MustMarshal(&para)
	if _, err := b.conn.Ioctl(sunxi.DE1FBGetPara, sunxi.NewArgs(uintptr(fbID)).WithPayload(1, payload)); err != nil {
		return para, fmt.Errorf("get framebuffer %d parameters: %w", fbID, err)
	}
	err := sunxi.Unmarshal(payload, &para)
	return para, err
}

// SetupScalingLayer is the manual alternative to SetupScaling: it requests a
// fresh layer, points it at physAddr and opens it. The layer is released
// again if any step fails. It returns the layer handle.
func (b *de1Backend) SetupScalingLayer(req ScalingRequest, physAddr uint32) (int, error) {
	if err := req.Validate(); err != nil {
		return -1, err
	}
	if physAddr == 0 {
		return -1, fmt.Errorf("%w: framebuffer physical address is 0", ErrInvalidInput)
	}
	if err := sunxi.CheckLayout(); err != nil {
		return -1, fmt.Errorf("refusing layer setup: %w", err)
	}

	mode := sunxi.DE1WorkModeNormal
	if req.NeedsScaling() {
		mode = sunxi.DE1WorkModeScaler
	}
	handle, err := b.conn.Ioctl(sunxi.DE1LayerRequest, sunxi.NewArgs(b.screen(), uintptr(mode)))
	if err != nil {
		return -1, fmt.Errorf("request %s layer: %w", mode, err)
	}
	b.logger.Debug("Layer requested", "handle", handle, "work_mode", mode)

	seq := sunxi.DE1SeqP3210
	if req.Depth == 32 {
		seq = sunxi.DE1SeqARGB
	}
	info := sunxi.DE1LayerInfo{
		Mode:     mode,
		AlphaVal: 0xff,
		SrcWin:   sunxi.Rect{Width: req.Source.Width, Height: req.Source.Height},
		ScnWin:   sunxi.Rect{Width: req.Dest.Width, Height: req.Dest.Height},
		FB: sunxi.DE1Framebuffer{
			Addr:   [3]uint32{physAddr},
			Size:   sunxi.RectSize{Width: req.Source.Width, Height: req.Source.Height},
			Format: sunxi.DE1FormatForDepth(req.Depth),
			Seq:    seq,
			Mode:   sunxi.DE1ModeInterleaved,
			CSMode: sunxi.DE1BT601,
		},
	}

	if err := b.setLayerParams(handle, &info); err != nil {
		b.releaseQuietly(handle)
		return -1, err
	}
	if _, err := b.conn.Ioctl(sunxi.DE1LayerOpen, b.layerArgs(handle)); err != nil {
		b.releaseQuietly(handle)
		return -1, fmt.Errorf("open layer %d: %w", handle, err)
	}
	return handle, nil
}

func (b *de1Backend) layerArgs(handle int) *sunxi.Args {
	return sunxi.NewArgs(b.screen(), uintptr(handle))
}

func (b *de1Backend) setLayerParams(handle int, info *sunxi.DE1LayerInfo) error {
	args := b.layerArgs(handle).WithPayload(2, sunxi.MustMarshal(info))
	if _, err := b.conn.Ioctl(sunxi.DE1LayerSetPara, args); err != nil {
		return fmt.Errorf("set layer %d parameters: %w", handle, err)
	}
	return nil
}

// LayerParams reads a layer descriptor back from the driver.
func (b *de1Backend) LayerParams(handle int) (sunxi.DE1LayerInfo, error) {
	var info sunxi.DE1LayerInfo
	payload := sunxi.MustMarshal(&info)
	if _, err := b.conn.Ioctl(sunxi.DE1LayerGetPara, b.layerArgs(handle).WithPayload(2, payload)); err != nil {
		return info, fmt.Errorf("get layer %d parameters: %w", handle, err)
	}
	err := sunxi.Unmarshal(payload, &info)
	return info, err
}

// CloseLayer hides a layer without releasing it.
func (b *de1Backend) CloseLayer(handle int) error {
	if _, err := b.conn.Ioctl(sunxi.DE1LayerClose, b.layerArgs(handle)); err != nil {
		return fmt.Errorf("close layer %d: %w", handle, err)
	}
	return nil
}

// ReleaseLayer returns a layer to the driver.
func (b *de1Backend) ReleaseLayer(handle int) error {
	if _, err := b.conn.Ioctl(sunxi.DE1LayerRelease, b.layerArgs(handle)); err != nil {
		return fmt.Errorf("release layer %d: %w", handle, err)
	}
	return nil
}

func (b *de1Backend) releaseQuietly(handle int) {
	if err := b.ReleaseLayer(handle); err != nil {
		b.logger.Debug("Layer release after failed setup also failed", "handle", handle, "error", err)
	}
}
