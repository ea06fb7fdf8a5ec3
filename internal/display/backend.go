package display

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/smazurov/sunxidisp/pkg/linuxav/fbdev"
	"github.com/smazurov/sunxidisp/pkg/linuxav/sunxi"
)

// ErrModeUnsupported is returned by mode initialization when the sink's EDID
// does not list the mode and force is off.
var ErrModeUnsupported = errors.New("HDMI mode not supported by display")

// Backend is the per-generation implementation of the control surface. One
// backend is selected when the display is opened and kept for its lifetime.
type Backend interface {
	Generation() Generation

	ScreenSize() (Geometry, error)
	OutputType() (sunxi.OutputType, error)
	Hotplug() (Hotplug, error)

	// Modes lists the catalog entries this engine can drive.
	Modes() []Mode
	ModeSupported(mode sunxi.TVMode) (bool, error)
	CurrentMode() (sunxi.TVMode, error)
	InitMode(mode sunxi.TVMode) error

	EnableOutput() error
	DisableOutput() error

	SetupScaling(req ScalingRequest) (ScalingResult, error)
	// AutomaticScaling reports whether the engine scales any framebuffer
	// size to the screen without being asked.
	AutomaticScaling() bool
}

// Framebuffer is the generic fbdev service used for resolution and depth.
type Framebuffer interface {
	VarScreenInfo() (fbdev.VarScreenInfo, error)
	PutVarScreenInfo(v *fbdev.VarScreenInfo) error
	FixScreenInfo() (fbdev.FixScreenInfo, error)
	Close() error
}

// Hotplug is the HDMI hot-plug detect state. Values above zero mean
// connected; the raw driver value is preserved.
type Hotplug int

// Hot-plug states.
const (
	HotplugUnknown      Hotplug = -1
	HotplugDisconnected Hotplug = 0
	HotplugConnected    Hotplug = 1
)

// Connected reports whether a sink is plugged in.
func (h Hotplug) Connected() bool {
	return h > 0
}

// Known reports whether the state could be read at all.
func (h Hotplug) Known() bool {
	return h >= 0
}

func (h Hotplug) String() string {
	switch {
	case h > 0:
		return "Connected"
	case h == 0:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// ScalingResult reports what a scaling setup did.
type ScalingResult struct {
	Request ScalingRequest
	Scaled  bool

	// Applied is false when the framebuffer already had the requested
	// geometry and nothing was written.
	Applied bool
	// Automatic is set when the hardware scaler follows the framebuffer on
	// its own.
	Automatic bool

	// DE1 only: the work mode requested and what the driver allocated.
	WorkMode   sunxi.DE1WorkMode
	LineLength uint32
	MemSize    uint32
}

// readSwitchState parses the switch-class state file. The boolean is false
// when the file is missing or does not start with an integer.
func readSwitchState(path string) (Hotplug, bool) {
	if path == "" {
		return HotplugUnknown, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return HotplugUnknown, false
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return HotplugUnknown, false
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return HotplugUnknown, false
	}
	return Hotplug(n), true
}

func modeLabel(id sunxi.TVMode) string {
	if m, ok := ModeByID(id); ok {
		return m.Name
	}
	return fmt.Sprintf("mode %d", int32(id))
}

// modeFor returns the catalog entry for id, or a bare Mode when the driver
// reports something outside the catalog.
func modeFor(id sunxi.TVMode) Mode {
	if m, ok := ModeByID(id); ok {
		return m
	}
	return Mode{ID: id}
}

// checkSupported implements the EDID gate shared by both generations.
func checkSupported(b Backend, mode sunxi.TVMode, force bool, logger *slog.Logger) error {
	if force {
		logger.Debug("Skipping mode support check", "mode", modeLabel(mode))
		return nil
	}
	ok, err := b.ModeSupported(mode)
	if err != nil {
		logger.Debug("Mode support query failed", "mode", modeLabel(mode), "error", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s (use --force to override)", ErrModeUnsupported, modeLabel(mode))
	}
	return nil
}

// tracedConn logs every control call at debug level.
type tracedConn struct {
	conn   sunxi.Conn
	logger *slog.Logger
}

func (c *tracedConn) Ioctl(cmd sunxi.Command, args *sunxi.Args) (int, error) {
	c.logger.Debug("ioctl", "cmd", cmd.String(), "code", fmt.Sprintf("0x%x", cmd.Code()), "args", args.String())
	ret, err := c.conn.Ioctl(cmd, args)
	if err != nil {
		c.logger.Debug("ioctl failed", "cmd", cmd.String(), "error", err)
	} else {
		c.logger.Debug("ioctl returned", "cmd", cmd.String(), "ret", ret)
	}
	return ret, err
}
