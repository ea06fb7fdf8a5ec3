//go:build linux

// Package hotplug listens for display connector events on the kernel uevent
// netlink socket without cgo.
//
// The sunxi BSP kernels report HDMI plug and unplug through the switch class
// ("change" events with SWITCH_NAME=hdmi and SWITCH_STATE=0|1). Mainline
// kernels report connector changes as drm "change" events with HOTPLUG=1 and
// some BSPs use extcon; all three are recognized.
package hotplug

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// Uevent actions.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionChange = "change"
)

// Subsystems carrying display connector state.
const (
	SubsystemSwitch = "switch"
	SubsystemDRM    = "drm"
	SubsystemExtcon = "extcon"
)

// SwitchHDMI is the switch-class device name registered by the sunxi HDMI
// driver (/sys/class/switch/hdmi).
const SwitchHDMI = "hdmi"

// Event is one kernel uevent.
type Event struct {
	Action    string            // "add", "remove", "change"
	KObj      string            // kernel object path, e.g. /devices/virtual/switch/hdmi
	Subsystem string            // "switch", "drm", ...
	DevName   string            // e.g. "card0"
	DevPath   string            // DEVPATH property
	Env       map[string]string // every KEY=VALUE property
}

// SwitchName returns SWITCH_NAME, falling back to the last element of the
// object path for kernels that omit it.
func (e *Event) SwitchName() string {
	if name, ok := e.Env["SWITCH_NAME"]; ok {
		return name
	}
	if e.Subsystem != SubsystemSwitch {
		return ""
	}
	if i := strings.LastIndexByte(e.KObj, '/'); i >= 0 {
		return e.KObj[i+1:]
	}
	return e.KObj
}

// SwitchState returns SWITCH_STATE as an integer. ok is false when the
// property is missing or not a number.
func (e *Event) SwitchState() (state int, ok bool) {
	v, present := e.Env["SWITCH_STATE"]
	if !present {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsDisplayHotplug reports whether the event signals a connector change for
// the named switch device.
func (e *Event) IsDisplayHotplug(switchName string) bool {
	switch e.Subsystem {
	case SubsystemSwitch:
		return e.SwitchName() == switchName
	case SubsystemDRM:
		return e.Action == ActionChange && e.Env["HOTPLUG"] == "1"
	case SubsystemExtcon:
		return e.Action == ActionChange && strings.Contains(e.Env["STATE"], "HDMI=")
	}
	return false
}

// Monitor reads uevents from the kernel broadcast group.
type Monitor struct {
	fd        int
	filters   map[string]struct{}
	filtersMu sync.RWMutex
}

// netlinkKobjectUEvent is NETLINK_KOBJECT_UEVENT.
const netlinkKobjectUEvent = unix.NETLINK_KOBJECT_UEVENT

// NewMonitor opens and binds the uevent socket.
func NewMonitor() (*Monitor, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, netlinkKobjectUEvent)
	if err != nil {
		return nil, err
	}

	addr := &unix.SockaddrNetlink{
		Family: unix.AF_NETLINK,
		Groups: 1, // kernel broadcast group
	}
	if err := unix.Bind(fd, addr); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	// Run polls the context between reads.
	tv := unix.Timeval{Sec: 1}
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	return &Monitor{
		fd:      fd,
		filters: make(map[string]struct{}),
	}, nil
}

// AddSubsystemFilter restricts delivered events to the given subsystems.
// Without filters every event is delivered. Safe for concurrent use.
func (m *Monitor) AddSubsystemFilter(subsystem string) {
	m.filtersMu.Lock()
	m.filters[subsystem] = struct{}{}
	m.filtersMu.Unlock()
}

func (m *Monitor) accepts(subsystem string) bool {
	m.filtersMu.RLock()
	defer m.filtersMu.RUnlock()
	if len(m.filters) == 0 {
		return true
	}
	_, ok := m.filters[subsystem]
	return ok
}

// Close releases the socket.
func (m *Monitor) Close() error {
	return unix.Close(m.fd)
}

// Run delivers events to the channel until ctx is cancelled or the socket
// fails. The channel is closed when Run returns.
func (m *Monitor) Run(ctx context.Context, events chan<- Event) error {
	defer close(events)

	buf := make([]byte, 8192)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, _, err := unix.Recvfrom(m.fd, buf, 0)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}

		event := ParseUEvent(buf[:n])
		if event == nil || !m.accepts(event.Subsystem) {
			continue
		}

		select {
		case events <- *event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ParseUEvent parses "ACTION@KOBJ\0KEY=VALUE\0...". Messages re-broadcast by
// udev carry a binary "libudev" header and are parsed from their property
// block. It returns nil for anything that is not a uevent.
func ParseUEvent(data []byte) *Event {
	if bytes.HasPrefix(data, udevPrefix) {
		return parseUdevMessage(data)
	}

	parts := bytes.Split(data, []byte{0})
	if len(parts) == 0 || len(parts[0]) == 0 {
		return nil
	}

	action, kobj, found := strings.Cut(string(parts[0]), "@")
	if !found || action == "" {
		return nil
	}

	event := &Event{
		Action: action,
		KObj:   kobj,
		Env:    make(map[string]string),
	}
	event.setProperties(parts[1:])
	return event
}

func (e *Event) setProperties(parts [][]byte) {
	for _, part := range parts {
		key, value, ok := strings.Cut(string(part), "=")
		if !ok || key == "" {
			continue
		}
		e.Env[key] = value

		switch key {
		case "SUBSYSTEM":
			e.Subsystem = value
		case "DEVNAME":
			e.DevName = value
		case "DEVPATH":
			e.DevPath = value
		}
	}
}

// libudev monitor header: "libudev\0", magic (big endian), header_size,
// properties_off, properties_len, then filter hashes.
var udevPrefix = []byte("libudev\x00")

const (
	udevMagic         = 0xfeedcafe
	udevHeaderMinSize = 24
)

func parseUdevMessage(data []byte) *Event {
	if len(data) < udevHeaderMinSize || binary.BigEndian.Uint32(data[8:12]) != udevMagic {
		return nil
	}
	off := binary.NativeEndian.Uint32(data[16:20])
	size := binary.NativeEndian.Uint32(data[20:24])
	if off < udevHeaderMinSize || uint64(off)+uint64(size) > uint64(len(data)) {
		return nil
	}

	event := &Event{Env: make(map[string]string)}
	event.setProperties(bytes.Split(data[off:off+size], []byte{0}))
	event.Action = event.Env["ACTION"]
	if event.Action == "" {
		return nil
	}
	event.KObj = event.DevPath
	return event
}
