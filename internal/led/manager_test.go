package led

import (
	"sync"
	"testing"
	"time"

	"github.com/smazurov/sunxidisp/internal/events"
)

type setCall struct {
	ledType string
	enabled bool
	pattern string
}

// mockController records Set calls; the bus delivers on other goroutines.
type mockController struct {
	mu       sync.Mutex
	setCalls []setCall
}

func (m *mockController) Set(ledType string, enabled bool, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls = append(m.setCalls, setCall{ledType, enabled, pattern})
	return nil
}

func (m *mockController) Available() []string { return []string{StatusLED} }

func (m *mockController) Patterns() []string { return []string{"solid", "blink"} }

func (m *mockController) last() (setCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.setCalls) == 0 {
		return setCall{}, false
	}
	return m.setCalls[len(m.setCalls)-1], true
}

// waitFor polls until the last Set call equals want.
func waitFor(t *testing.T, ctrl *mockController, want setCall) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if got, ok := ctrl.last(); ok && got == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	got, _ := ctrl.last()
	t.Fatalf("last Set = %+v, want %+v", got, want)
}

func startManager(t *testing.T) (*mockController, *events.Bus) {
	t.Helper()
	ctrl := &mockController{}
	bus := events.New()
	mgr := NewManager(ctrl, bus, testLogger())
	mgr.Start()
	t.Cleanup(func() {
		mgr.Stop()
		bus.Close()
	})
	return ctrl, bus
}

func TestManager_ConnectedBlinksUntilOutputOn(t *testing.T) {
	ctrl, bus := startManager(t)

	bus.Publish(events.HotplugChangedEvent{State: events.HotplugConnected, Timestamp: time.Now()})
	waitFor(t, ctrl, setCall{StatusLED, true, "blink"})

	bus.Publish(events.OutputChangedEvent{Output: "HDMI", State: "on", Mode: "720p50", Enabled: true})
	waitFor(t, ctrl, setCall{StatusLED, true, "solid"})
}

func TestManager_Disconnected(t *testing.T) {
	ctrl, bus := startManager(t)

	bus.Publish(events.HotplugChangedEvent{State: events.HotplugDisconnected})
	waitFor(t, ctrl, setCall{StatusLED, false, ""})
}

func TestManager_EnableFailed(t *testing.T) {
	ctrl, bus := startManager(t)

	bus.Publish(events.HotplugChangedEvent{State: events.HotplugConnected})
	bus.Publish(events.OutputChangedEvent{State: "on"})
	waitFor(t, ctrl, setCall{StatusLED, true, "solid"})

	bus.Publish(events.EnableFailedEvent{Error: "boom"})
	waitFor(t, ctrl, setCall{StatusLED, true, "blink"})
}

func TestManager_StopSwitchesOff(t *testing.T) {
	ctrl := &mockController{}
	bus := events.New()
	defer bus.Close()

	mgr := NewManager(ctrl, bus, testLogger())
	mgr.Start()
	mgr.Stop()

	if got, _ := ctrl.last(); got != (setCall{StatusLED, false, ""}) {
		t.Errorf("last Set after Stop = %+v", got)
	}
	if mgr.Controller() != ctrl {
		t.Error("Controller() did not return the original controller")
	}
}
