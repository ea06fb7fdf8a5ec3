package events

import "time"

// Event type constants for kelindar/event.
const (
	TypeHotplugChanged uint32 = iota + 1
	TypeOutputChanged
	TypeEnableFailed
	TypeConfigReloaded
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// Hot-plug states carried by HotplugChangedEvent.
const (
	HotplugUnknown      = -1
	HotplugDisconnected = 0
	HotplugConnected    = 1
)

// HotplugChangedEvent is published when the HDMI connector state changes.
type HotplugChangedEvent struct {
	Screen    int
	State     int    // HotplugUnknown, HotplugDisconnected or HotplugConnected
	Source    string // "uevent" or "poll"
	Timestamp time.Time
}

// Type returns the event type identifier for HotplugChangedEvent.
func (e HotplugChangedEvent) Type() uint32 { return TypeHotplugChanged }

// Connected reports whether a sink is attached.
func (e HotplugChangedEvent) Connected() bool { return e.State == HotplugConnected }

// OutputChangedEvent describes the output after a hot-plug transition was
// handled.
type OutputChangedEvent struct {
	Screen    int
	Output    string // "HDMI", "None", ...
	State     string // "off", "on", "on-unknown-mode"
	Mode      string
	ModeID    int
	Width     int
	Height    int
	Enabled   bool // output was switched on by this transition
	Timestamp time.Time
}

// Type returns the event type identifier for OutputChangedEvent.
func (e OutputChangedEvent) Type() uint32 { return TypeOutputChanged }

// EnableFailedEvent is published when automatic output enable fails.
type EnableFailedEvent struct {
	Screen    int
	Error     string
	Timestamp time.Time
}

// Type returns the event type identifier for EnableFailedEvent.
func (e EnableFailedEvent) Type() uint32 { return TypeEnableFailed }

// ConfigReloadedEvent is published after the configuration file was
// reloaded.
type ConfigReloadedEvent struct {
	Path      string
	Timestamp time.Time
}

// Type returns the event type identifier for ConfigReloadedEvent.
func (e ConfigReloadedEvent) Type() uint32 { return TypeConfigReloaded }
