package display

import "github.com/smazurov/sunxidisp/pkg/linuxav/sunxi"

// OutputState classifies the HDMI output for the enable sequence.
type OutputState int

// Output states.
const (
	OutputOff OutputState = iota
	OutputOnKnownMode
	OutputOnUnknownMode
)

func (s OutputState) String() string {
	switch s {
	case OutputOnKnownMode:
		return "on"
	case OutputOnUnknownMode:
		return "on (unknown mode)"
	default:
		return "off"
	}
}

// EnableOutput tries a plain HDMI on. When that fails, usually because no
// mode was ever programmed, the default mode is forced in.
func (b *de1Backend) EnableOutput() error {
	err := b.enable()
	if err == nil {
		return nil
	}
	b.logger.Debug("Plain HDMI on failed, forcing default mode", "mode", DefaultMode.Name, "error", err)

	restore := b.opts.scopedForce()
	defer restore()
	return b.InitMode(DefaultMode.ID)
}

// EnableOutput re-applies the current mode through a device switch, falling
// back to the default for unset and interlaced SD modes. EDID cannot be read
// while output is off, so the support check is bypassed.
func (b *de2Backend) EnableOutput() error {
	mode, err := b.CurrentMode()
	if err != nil || unsuitableForEnable(mode) {
		b.logger.Debug("Current mode unusable, using default", "current", int32(mode), "default", DefaultMode.Name, "error", err)
		mode = DefaultMode.ID
	}

	restore := b.opts.scopedForce()
	defer restore()
	return b.InitMode(mode)
}

func unsuitableForEnable(mode sunxi.TVMode) bool {
	return mode <= 0 || mode == sunxi.TVMode480I || mode == sunxi.TVMode576I
}

// classifyOutput derives the state from the output type and current mode.
func classifyOutput(t sunxi.OutputType, mode sunxi.TVMode, modeErr error) OutputState {
	if t == sunxi.OutputNone {
		return OutputOff
	}
	if modeErr != nil {
		return OutputOnUnknownMode
	}
	if _, ok := ModeByID(mode); !ok {
		return OutputOnUnknownMode
	}
	return OutputOnKnownMode
}
