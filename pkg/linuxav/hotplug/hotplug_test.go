//go:build linux

package hotplug

import (
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestParseUEvent(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected *Event
	}{
		{
			name:     "empty input",
			input:    []byte{},
			expected: nil,
		},
		{
			name:     "nil input",
			input:    nil,
			expected: nil,
		},
		{
			name:     "no @ separator",
			input:    []byte("invalid"),
			expected: nil,
		},
		{
			name:     "missing action",
			input:    []byte("@/devices/virtual/switch/hdmi"),
			expected: nil,
		},
		{
			name:     "only null bytes",
			input:    []byte{0, 0, 0, 0},
			expected: nil,
		},
		{
			name:  "sunxi hdmi plug",
			input: []byte("change@/devices/virtual/switch/hdmi\x00ACTION=change\x00DEVPATH=/devices/virtual/switch/hdmi\x00SUBSYSTEM=switch\x00SWITCH_NAME=hdmi\x00SWITCH_STATE=1\x00SEQNUM=1042\x00"),
			expected: &Event{
				Action:    "change",
				KObj:      "/devices/virtual/switch/hdmi",
				Subsystem: "switch",
				DevPath:   "/devices/virtual/switch/hdmi",
				Env: map[string]string{
					"ACTION":       "change",
					"DEVPATH":      "/devices/virtual/switch/hdmi",
					"SUBSYSTEM":    "switch",
					"SWITCH_NAME":  "hdmi",
					"SWITCH_STATE": "1",
					"SEQNUM":       "1042",
				},
			},
		},
		{
			name:  "drm connector change",
			input: []byte("change@/devices/platform/display-engine/drm/card0\x00SUBSYSTEM=drm\x00DEVNAME=dri/card0\x00HOTPLUG=1\x00"),
			expected: &Event{
				Action:    "change",
				KObj:      "/devices/platform/display-engine/drm/card0",
				Subsystem: "drm",
				DevName:   "dri/card0",
				Env: map[string]string{
					"SUBSYSTEM": "drm",
					"DEVNAME":   "dri/card0",
					"HOTPLUG":   "1",
				},
			},
		},
		{
			name:  "value containing equals",
			input: []byte("change@/devices/extcon0\x00SUBSYSTEM=extcon\x00STATE=HDMI=1\x00"),
			expected: &Event{
				Action:    "change",
				KObj:      "/devices/extcon0",
				Subsystem: "extcon",
				Env: map[string]string{
					"SUBSYSTEM": "extcon",
					"STATE":     "HDMI=1",
				},
			},
		},
		{
			name:  "empty value and consecutive nulls",
			input: []byte("add@/devices/test\x00\x00KEY1=value1\x00KEY2=\x00\x00"),
			expected: &Event{
				Action: "add",
				KObj:   "/devices/test",
				Env: map[string]string{
					"KEY1": "value1",
					"KEY2": "",
				},
			},
		},
		{
			name:  "long path",
			input: []byte("add@/devices/" + strings.Repeat("a", 500) + "\x00"),
			expected: &Event{
				Action: "add",
				KObj:   "/devices/" + strings.Repeat("a", 500),
				Env:    map[string]string{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseUEvent(tt.input)

			if tt.expected == nil {
				if result != nil {
					t.Errorf("expected nil, got %+v", result)
				}
				return
			}
			if result == nil {
				t.Fatalf("expected %+v, got nil", tt.expected)
			}

			if result.Action != tt.expected.Action {
				t.Errorf("Action: expected %q, got %q", tt.expected.Action, result.Action)
			}
			if result.KObj != tt.expected.KObj {
				t.Errorf("KObj: expected %q, got %q", tt.expected.KObj, result.KObj)
			}
			if result.Subsystem != tt.expected.Subsystem {
				t.Errorf("Subsystem: expected %q, got %q", tt.expected.Subsystem, result.Subsystem)
			}
			if result.DevName != tt.expected.DevName {
				t.Errorf("DevName: expected %q, got %q", tt.expected.DevName, result.DevName)
			}
			if result.DevPath != tt.expected.DevPath {
				t.Errorf("DevPath: expected %q, got %q", tt.expected.DevPath, result.DevPath)
			}
			if len(result.Env) != len(tt.expected.Env) {
				t.Errorf("Env length: expected %d, got %d", len(tt.expected.Env), len(result.Env))
			}
			for k, v := range tt.expected.Env {
				if result.Env[k] != v {
					t.Errorf("Env[%q]: expected %q, got %q", k, v, result.Env[k])
				}
			}
		})
	}
}

func udevMessage(magic uint32, props string) []byte {
	header := make([]byte, 40)
	copy(header, "libudev\x00")
	binary.BigEndian.PutUint32(header[8:12], magic)
	binary.NativeEndian.PutUint32(header[12:16], 40)
	binary.NativeEndian.PutUint32(header[16:20], 40)
	binary.NativeEndian.PutUint32(header[20:24], uint32(len(props)))
	return append(header, props...)
}

func TestParseUEventUdevHeader(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected *Event
	}{
		{
			name: "switch change",
			data: udevMessage(0xfeedcafe, "ACTION=change\x00DEVPATH=/devices/virtual/switch/hdmi\x00SUBSYSTEM=switch\x00SWITCH_NAME=hdmi\x00SWITCH_STATE=1\x00"),
			expected: &Event{
				Action:    ActionChange,
				KObj:      "/devices/virtual/switch/hdmi",
				Subsystem: SubsystemSwitch,
				DevPath:   "/devices/virtual/switch/hdmi",
			},
		},
		{
			name: "bad magic",
			data: udevMessage(0xdeadbeef, "ACTION=change\x00SUBSYSTEM=switch\x00"),
		},
		{
			name: "no action property",
			data: udevMessage(0xfeedcafe, "DEVPATH=/devices/virtual/switch/hdmi\x00SUBSYSTEM=switch\x00"),
		},
		{
			name: "truncated properties",
			data: udevMessage(0xfeedcafe, "ACTION=change\x00")[:42],
		},
		{
			name: "short header",
			data: []byte("libudev\x00\xfe\xed\xca\xfe"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := ParseUEvent(tt.data)
			if tt.expected == nil {
				if event != nil {
					t.Fatalf("expected nil, got %+v", event)
				}
				return
			}
			if event == nil {
				t.Fatal("expected event, got nil")
			}
			if event.Action != tt.expected.Action || event.Subsystem != tt.expected.Subsystem {
				t.Errorf("got Action=%q Subsystem=%q", event.Action, event.Subsystem)
			}
			if event.KObj != tt.expected.KObj || event.DevPath != tt.expected.DevPath {
				t.Errorf("got KObj=%q DevPath=%q", event.KObj, event.DevPath)
			}
			if !event.IsDisplayHotplug(SwitchHDMI) {
				t.Error("expected hdmi hotplug event")
			}
		})
	}
}

func TestEventSwitch(t *testing.T) {
	tests := []struct {
		name      string
		event     Event
		wantName  string
		wantState int
		wantOK    bool
		hotplug   bool
	}{
		{
			name: "plugged",
			event: Event{Action: ActionChange, Subsystem: SubsystemSwitch, KObj: "/devices/virtual/switch/hdmi",
				Env: map[string]string{"SWITCH_NAME": "hdmi", "SWITCH_STATE": "1"}},
			wantName: "hdmi", wantState: 1, wantOK: true, hotplug: true,
		},
		{
			name: "unplugged without name property",
			event: Event{Action: ActionChange, Subsystem: SubsystemSwitch, KObj: "/devices/virtual/switch/hdmi",
				Env: map[string]string{"SWITCH_STATE": "0"}},
			wantName: "hdmi", wantState: 0, wantOK: true, hotplug: true,
		},
		{
			name: "other switch",
			event: Event{Action: ActionChange, Subsystem: SubsystemSwitch, KObj: "/devices/virtual/switch/h2w",
				Env: map[string]string{"SWITCH_NAME": "h2w", "SWITCH_STATE": "2"}},
			wantName: "h2w", wantState: 2, wantOK: true, hotplug: false,
		},
		{
			name: "garbage state",
			event: Event{Action: ActionChange, Subsystem: SubsystemSwitch,
				Env: map[string]string{"SWITCH_NAME": "hdmi", "SWITCH_STATE": "on"}},
			wantName: "hdmi", wantOK: false, hotplug: true,
		},
		{
			name:    "drm hotplug",
			event:   Event{Action: ActionChange, Subsystem: SubsystemDRM, Env: map[string]string{"HOTPLUG": "1"}},
			hotplug: true,
		},
		{
			name:    "drm add",
			event:   Event{Action: ActionAdd, Subsystem: SubsystemDRM, Env: map[string]string{}},
			hotplug: false,
		},
		{
			name:    "extcon hdmi",
			event:   Event{Action: ActionChange, Subsystem: SubsystemExtcon, Env: map[string]string{"STATE": "HDMI=0\nUSB=1"}},
			hotplug: true,
		},
		{
			name:    "usb",
			event:   Event{Action: ActionAdd, Subsystem: "usb", Env: map[string]string{}},
			hotplug: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.SwitchName(); got != tt.wantName {
				t.Errorf("SwitchName() = %q, want %q", got, tt.wantName)
			}
			state, ok := tt.event.SwitchState()
			if ok != tt.wantOK || state != tt.wantState {
				t.Errorf("SwitchState() = %d, %v, want %d, %v", state, ok, tt.wantState, tt.wantOK)
			}
			if got := tt.event.IsDisplayHotplug(SwitchHDMI); got != tt.hotplug {
				t.Errorf("IsDisplayHotplug() = %v, want %v", got, tt.hotplug)
			}
		})
	}
}

func TestMonitorAccepts(t *testing.T) {
	m := &Monitor{fd: -1, filters: make(map[string]struct{})}
	if !m.accepts("usb") {
		t.Error("monitor without filters should accept every subsystem")
	}

	m.AddSubsystemFilter(SubsystemSwitch)
	m.AddSubsystemFilter(SubsystemDRM)

	if !m.accepts(SubsystemSwitch) || !m.accepts(SubsystemDRM) {
		t.Error("expected switch and drm to be accepted")
	}
	if m.accepts("usb") {
		t.Error("unexpected usb accepted")
	}
}

// TestMonitorConcurrentFilterAdd checks the filter map under -race.
func TestMonitorConcurrentFilterAdd(t *testing.T) {
	m := &Monitor{fd: -1, filters: make(map[string]struct{})}

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				m.AddSubsystemFilter(SubsystemSwitch)
				m.AddSubsystemFilter(SubsystemDRM)
				_ = m.accepts(SubsystemExtcon)
			}
		}()
	}
	wg.Wait()

	m.filtersMu.RLock()
	if len(m.filters) != 2 {
		t.Errorf("expected 2 filters, got %d", len(m.filters))
	}
	m.filtersMu.RUnlock()
}

func TestMonitorRunCancellation(t *testing.T) {
	m, err := NewMonitor()
	if err != nil {
		t.Skipf("netlink socket unavailable: %v", err)
	}
	defer func() { _ = m.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := make(chan Event, 1)
	if runErr := m.Run(ctx, events); !errors.Is(runErr, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", runErr)
	}
	if _, open := <-events; open {
		t.Error("expected events channel to be closed")
	}
}
