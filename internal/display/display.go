// Package display is the generation-independent control surface of the
// sunxi display driver.
//
// Open resolves the display engine generation once and selects the matching
// Backend; every operation then goes through that backend. A Display owns
// the control descriptor and, once needed, the framebuffer descriptor. It is
// not safe for concurrent use and two processes driving the same device at
// once are not supported.
package display

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/smazurov/sunxidisp/internal/logging"
	"github.com/smazurov/sunxidisp/pkg/linuxav/fbdev"
	"github.com/smazurov/sunxidisp/pkg/linuxav/sunxi"
)

// Default auxiliary sources.
const (
	DefaultHDMIStatePath  = "/sys/class/switch/hdmi/state"
	DefaultCPUInfoPath    = "/proc/cpuinfo"
	DefaultDeviceTreePath = "/proc/device-tree"
)

// Options configures a Display.
type Options struct {
	DispDevice string
	FBDevice   string
	HDMIState  string
	CPUInfo    string
	DeviceTree string

	// Screen selects the display pipeline, 0 or 1.
	Screen int
	// Force skips the EDID support check when setting modes.
	Force bool
	// Generation skips detection when not GenUnknown.
	Generation Generation
	// DefaultDepth is used when the framebuffer depth cannot be read.
	DefaultDepth int

	// Framebuffer replaces the lazily opened FBDevice.
	Framebuffer Framebuffer
}

func (o Options) withDefaults() Options {
	if o.DispDevice == "" {
		o.DispDevice = sunxi.DefaultDevicePath
	}
	if o.FBDevice == "" {
		o.FBDevice = fbdev.DefaultDevicePath
	}
	if o.HDMIState == "" {
		o.HDMIState = DefaultHDMIStatePath
	}
	if o.CPUInfo == "" {
		o.CPUInfo = DefaultCPUInfoPath
	}
	if o.DeviceTree == "" {
		o.DeviceTree = DefaultDeviceTreePath
	}
	if o.DefaultDepth == 0 {
		o.DefaultDepth = 32
	}
	return o
}

// scopedForce turns force on and returns the func restoring the previous
// value. Callers defer it so the override ends with the call.
func (o *Options) scopedForce() func() {
	prev := o.Force
	o.Force = true
	return func() { o.Force = prev }
}

// Validate checks options that do not need the device.
func (o Options) Validate() error {
	if o.Screen < 0 || o.Screen > 1 {
		return fmt.Errorf("%w: screen %d, use 0 or 1", ErrInvalidInput, o.Screen)
	}
	if o.DefaultDepth != 0 {
		return ValidateDepth(o.DefaultDepth)
	}
	return nil
}

// Display is an open display controller.
type Display struct {
	opts    *Options
	conn    sunxi.Conn
	device  *sunxi.Device
	fb      Framebuffer
	ownFB   bool
	backend Backend
	logger  *slog.Logger
	closed  bool
}

// Open opens the control device and resolves the generation.
func Open(opts Options) (*Display, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	dev, err := sunxi.Open(opts.DispDevice)
	if err != nil {
		return nil, fmt.Errorf("open display device: %w", err)
	}
	d := New(dev, opts)
	d.device = dev
	return d, nil
}

// New builds a Display on an already open connection. The wire layout is
// self-checked first; a mismatch is logged and execution continues, since
// only structure commands depend on it.
func New(conn sunxi.Conn, opts Options) *Display {
	opts = opts.withDefaults()
	logger := logging.GetLogger("display")

	if err := sunxi.CheckLayout(); err != nil {
		logger.Error("Wire structure layout does not match the driver ABI", "error", err)
	}

	d := &Display{
		opts:   &opts,
		conn:   &tracedConn{conn: conn, logger: logger},
		fb:     opts.Framebuffer,
		logger: logger,
	}

	gen := opts.Generation
	if gen == GenUnknown {
		gen = NewDetector(d.conn, opts.CPUInfo, opts.DeviceTree, logger).Detect()
	}
	switch gen {
	case Gen2:
		d.backend = newDE2Backend(d.conn, d.opts, d.framebuffer, logger)
	default:
		d.backend = newDE1Backend(d.conn, d.opts, logger)
	}
	logger.Debug("Display opened", "device", opts.DispDevice, "generation", gen, "screen", opts.Screen)
	return d
}

// Generation returns the engine resolved at open.
func (d *Display) Generation() Generation {
	return d.backend.Generation()
}

// Screen returns the selected screen.
func (d *Display) Screen() int {
	return d.opts.Screen
}

// Backend exposes the selected backend.
func (d *Display) Backend() Backend {
	return d.backend
}

// SetForce changes the EDID override for subsequent mode changes.
func (d *Display) SetForce(force bool) {
	d.opts.Force = force
}

func (d *Display) framebuffer() (Framebuffer, error) {
	if d.fb != nil {
		return d.fb, nil
	}
	fb, err := fbdev.Open(d.opts.FBDevice)
	if err != nil {
		return nil, err
	}
	d.fb = fb
	d.ownFB = true
	return fb, nil
}

// ScreenSize queries the active output size. It is never cached.
func (d *Display) ScreenSize() (Geometry, error) {
	return d.backend.ScreenSize()
}

func (d *Display) OutputType() (sunxi.OutputType, error) {
	return d.backend.OutputType()
}

// Hotplug reads the switch-class state file and falls back to the backend.
func (d *Display) Hotplug() (Hotplug, error) {
	if state, ok := readSwitchState(d.opts.HDMIState); ok {
		return state, nil
	}
	return d.backend.Hotplug()
}

func (d *Display) ModeSupported(mode sunxi.TVMode) (bool, error) {
	return d.backend.ModeSupported(mode)
}

// CurrentMode returns the programmed mode, which may be outside the catalog.
func (d *Display) CurrentMode() (Mode, error) {
	id, err := d.backend.CurrentMode()
	if err != nil {
		return Mode{ID: sunxi.TVModeInvalid}, err
	}
	return modeFor(id), nil
}

// InitMode programs mode and turns output on, subject to the EDID check
// unless force is set.
func (d *Display) InitMode(mode Mode) error {
	return d.backend.InitMode(mode.ID)
}

// EnableOutput turns HDMI on and returns the mode read back afterwards. A
// failed read-back does not fail the enable; the mode is then reported as
// TVModeInvalid.
func (d *Display) EnableOutput() (Mode, error) {
	if err := d.backend.EnableOutput(); err != nil {
		return Mode{}, err
	}
	mode, err := d.CurrentMode()
	if err != nil {
		d.logger.Debug("HDMI enabled but mode read-back failed", "error", err)
	}
	return mode, nil
}

func (d *Display) DisableOutput() error {
	return d.backend.DisableOutput()
}

// OutputState classifies the current output.
func (d *Display) OutputState() (OutputState, error) {
	t, err := d.backend.OutputType()
	if err != nil {
		return OutputOff, err
	}
	mode, modeErr := d.backend.CurrentMode()
	return classifyOutput(t, mode, modeErr), nil
}

// ModeSupport is one row of the supported-mode table.
type ModeSupport struct {
	Mode      Mode
	Supported bool
}

// SupportedModes queries every mode the engine can drive. Query failures
// count as unsupported.
func (d *Display) SupportedModes() []ModeSupport {
	modes := d.backend.Modes()
	out := make([]ModeSupport, 0, len(modes))
	for _, m := range modes {
		ok, err := d.backend.ModeSupported(m.ID)
		if err != nil {
			d.logger.Debug("Mode support query failed", "mode", m.Name, "error", err)
		}
		out = append(out, ModeSupport{Mode: m, Supported: ok})
	}
	return out
}

// SetupScaling shows a framebuffer of req.Source size on req.Dest.
func (d *Display) SetupScaling(req ScalingRequest) (ScalingResult, error) {
	if err := req.Validate(); err != nil {
		return ScalingResult{}, err
	}
	return d.backend.SetupScaling(req)
}

// FramebufferInfo is the fbdev view of the framebuffer.
type FramebufferInfo struct {
	Var fbdev.VarScreenInfo
	Fix fbdev.FixScreenInfo
}

// Geometry returns the visible framebuffer size.
func (i FramebufferInfo) Geometry() Geometry {
	return Geometry{Width: i.Var.XRes, Height: i.Var.YRes}
}

// FramebufferInfo reads the fbdev variable and fixed screen info.
func (d *Display) FramebufferInfo() (FramebufferInfo, error) {
	fb, err := d.framebuffer()
	if err != nil {
		return FramebufferInfo{}, err
	}
	v, err := fb.VarScreenInfo()
	if err != nil {
		return FramebufferInfo{}, err
	}
	f, err := fb.FixScreenInfo()
	if err != nil {
		return FramebufferInfo{}, err
	}
	return FramebufferInfo{Var: v, Fix: f}, nil
}

// ConfigureFramebuffer sets the fbdev resolution and depth with a virtual
// area equal to the visible one.
func (d *Display) ConfigureFramebuffer(g Geometry, depth int) (FramebufferInfo, error) {
	if err := ValidateDepth(depth); err != nil {
		return FramebufferInfo{}, err
	}
	if g.Width == 0 || g.Height == 0 {
		return FramebufferInfo{}, fmt.Errorf("%w: framebuffer size %s", ErrInvalidInput, g)
	}

	fb, err := d.framebuffer()
	if err != nil {
		return FramebufferInfo{}, err
	}
	v, err := fb.VarScreenInfo()
	if err != nil {
		return FramebufferInfo{}, err
	}
	v.XRes, v.YRes = g.Width, g.Height
	v.XResVirtual, v.YResVirtual = g.Width, g.Height
	v.SetDepth(uint32(depth))
	if err := fb.PutVarScreenInfo(&v); err != nil {
		return FramebufferInfo{}, err
	}
	return d.FramebufferInfo()
}

// ScalingState compares the framebuffer with the screen.
type ScalingState struct {
	Framebuffer Geometry
	Screen      Geometry
	Automatic   bool
}

// Active reports whether the framebuffer is being scaled.
func (s ScalingState) Active() bool {
	return s.Framebuffer != s.Screen
}

func (s ScalingState) String() string {
	if !s.Active() {
		return "none (1:1)"
	}
	suffix := ""
	if s.Automatic {
		suffix = ", auto by DE2"
	}
	return fmt.Sprintf("%s -> %s (active%s)", s.Framebuffer, s.Screen, suffix)
}

// ScalingState reads the framebuffer and screen sizes.
func (d *Display) ScalingState() (ScalingState, error) {
	info, err := d.FramebufferInfo()
	if err != nil {
		return ScalingState{}, err
	}
	screen, err := d.ScreenSize()
	if err != nil {
		return ScalingState{}, err
	}
	return ScalingState{
		Framebuffer: info.Geometry(),
		Screen:      screen,
		Automatic:   d.backend.AutomaticScaling(),
	}, nil
}

// AutoScaleAction tells what AutoScale did.
type AutoScaleAction int

// AutoScale outcomes.
const (
	// AutoScaleNotNeeded: framebuffer and screen already match.
	AutoScaleNotNeeded AutoScaleAction = iota
	// AutoScaleAutomatic: the engine already scales on its own.
	AutoScaleAutomatic
	// AutoScaleApplied: a scaled framebuffer was set up.
	AutoScaleApplied
)

// AutoScaleResult reports an AutoScale call.
type AutoScaleResult struct {
	Action  AutoScaleAction
	State   ScalingState
	Depth   int
	Scaling ScalingResult
}

// AutoScale scales the current framebuffer to the screen. A depth of zero
// keeps the framebuffer's depth.
func (d *Display) AutoScale(depth int) (AutoScaleResult, error) {
	if depth != 0 {
		if err := ValidateDepth(depth); err != nil {
			return AutoScaleResult{}, err
		}
	}

	info, err := d.FramebufferInfo()
	if err != nil {
		return AutoScaleResult{}, fmt.Errorf("read framebuffer settings: %w", err)
	}
	screen, err := d.ScreenSize()
	if err != nil {
		return AutoScaleResult{}, err
	}
	if depth == 0 {
		depth = int(info.Var.BitsPerPixel)
	}

	res := AutoScaleResult{
		State: ScalingState{
			Framebuffer: info.Geometry(),
			Screen:      screen,
			Automatic:   d.backend.AutomaticScaling(),
		},
		Depth: depth,
	}
	switch {
	case !res.State.Active():
		res.Action = AutoScaleNotNeeded
	case d.backend.AutomaticScaling():
		res.Action = AutoScaleAutomatic
	default:
		res.Scaling, err = d.SetupScaling(ScalingRequest{Source: res.State.Framebuffer, Dest: screen, Depth: depth})
		if err != nil {
			return res, err
		}
		res.Action = AutoScaleApplied
	}
	return res, nil
}

// NoScale resizes the framebuffer to the screen. A depth of zero keeps the
// framebuffer's depth, or Options.DefaultDepth when it cannot be read.
func (d *Display) NoScale(depth int) (ScalingResult, error) {
	if depth != 0 {
		if err := ValidateDepth(depth); err != nil {
			return ScalingResult{}, err
		}
	}

	screen, err := d.ScreenSize()
	if err != nil {
		return ScalingResult{}, err
	}
	if depth == 0 {
		depth = d.opts.DefaultDepth
		if info, err := d.FramebufferInfo(); err == nil {
			depth = int(info.Var.BitsPerPixel)
		}
	}
	return d.SetupScaling(ScalingRequest{Source: screen, Dest: screen, Depth: depth})
}

// de1Extras are the DE1-only layer and framebuffer commands.
type de1Extras interface {
	SetScreenSize(g Geometry) error
	FramebufferParams(fbID int) (sunxi.DE1FramebufferCreate, error)
	SetupScalingLayer(req ScalingRequest, physAddr uint32) (int, error)
	LayerParams(handle int) (sunxi.DE1LayerInfo, error)
	CloseLayer(handle int) error
	ReleaseLayer(handle int) error
}

type de2Extras interface {
	LayerConfig(channel, layer uint32) (sunxi.DE2LayerConfig, error)
}

func (d *Display) unsupported(what string) error {
	return fmt.Errorf("%s on %s: %w", what, d.Generation(), errors.ErrUnsupported)
}

// SetScreenSize sets the DE1 screen size used for off-screen rendering.
func (d *Display) SetScreenSize(g Geometry) error {
	x, ok := d.backend.(de1Extras)
	if !ok {
		return d.unsupported("setting the screen size")
	}
	return x.SetScreenSize(g)
}

// FramebufferParams reads the DE1 driver's creation parameters of the
// framebuffer backing fb0.
func (d *Display) FramebufferParams() (sunxi.DE1FramebufferCreate, error) {
	x, ok := d.backend.(de1Extras)
	if !ok {
		return sunxi.DE1FramebufferCreate{}, d.unsupported("framebuffer parameters")
	}
	return x.FramebufferParams(de1FramebufferID)
}

// LayerResult is the outcome of SetupScalingLayer.
type LayerResult struct {
	Handle      int
	Framebuffer FramebufferInfo
}

// SetupScalingLayer configures fbdev to the source size and then builds a
// DE1 scaler layer on the framebuffer memory by hand.
func (d *Display) SetupScalingLayer(req ScalingRequest) (LayerResult, error) {
	x, ok := d.backend.(de1Extras)
	if !ok {
		return LayerResult{}, d.unsupported("manual layer setup")
	}
	if err := req.Validate(); err != nil {
		return LayerResult{}, err
	}

	info, err := d.ConfigureFramebuffer(req.Source, req.Depth)
	if err != nil {
		return LayerResult{}, err
	}
	d.logger.Debug("Framebuffer memory", "phys", fmt.Sprintf("0x%x", info.Fix.SmemStart), "len", info.Fix.SmemLen)

	handle, err := x.SetupScalingLayer(req, uint32(info.Fix.SmemStart))
	if err != nil {
		return LayerResult{Handle: -1, Framebuffer: info}, err
	}
	return LayerResult{Handle: handle, Framebuffer: info}, nil
}

// LayerParams reads a DE1 layer descriptor.
func (d *Display) LayerParams(handle int) (sunxi.DE1LayerInfo, error) {
	x, ok := d.backend.(de1Extras)
	if !ok {
		return sunxi.DE1LayerInfo{}, d.unsupported("layer parameters")
	}
	return x.LayerParams(handle)
}

// CloseLayer hides a DE1 layer.
func (d *Display) CloseLayer(handle int) error {
	x, ok := d.backend.(de1Extras)
	if !ok {
		return d.unsupported("closing layers")
	}
	return x.CloseLayer(handle)
}

// ReleaseLayer closes and releases a DE1 layer.
func (d *Display) ReleaseLayer(handle int) error {
	x, ok := d.backend.(de1Extras)
	if !ok {
		return d.unsupported("releasing layers")
	}
	if err := x.CloseLayer(handle); err != nil {
		d.logger.Debug("Layer close before release failed", "handle", handle, "error", err)
	}
	return x.ReleaseLayer(handle)
}

// LayerConfig reads a DE2 layer configuration.
func (d *Display) LayerConfig(channel, layer uint32) (sunxi.DE2LayerConfig, error) {
	x, ok := d.backend.(de2Extras)
	if !ok {
		return sunxi.DE2LayerConfig{}, d.unsupported("layer configuration")
	}
	return x.LayerConfig(channel, layer)
}

// Close releases the framebuffer and control descriptors. It is safe to
// call more than once.
func (d *Display) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	if d.ownFB && d.fb != nil {
		errs = append(errs, d.fb.Close())
	}
	if d.device != nil {
		errs = append(errs, d.device.Close())
	}
	return errors.Join(errs...)
}
