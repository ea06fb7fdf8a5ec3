package cmd

import (
	"errors"
	"testing"
	"time"

	"github.com/smazurov/sunxidisp/internal/config"
	"github.com/smazurov/sunxidisp/internal/display"
	"github.com/smazurov/sunxidisp/internal/events"
	"github.com/smazurov/sunxidisp/internal/logging"
	"github.com/smazurov/sunxidisp/pkg/linuxav/sunxi"
)

// fakeWatched is a display whose output follows EnableOutput.
type fakeWatched struct {
	hotplug   display.Hotplug
	enableErr error
	enables   int
	on        bool
	force     bool
}

func (f *fakeWatched) Screen() int { return 0 }

func (f *fakeWatched) Hotplug() (display.Hotplug, error) { return f.hotplug, nil }

func (f *fakeWatched) EnableOutput() (display.Mode, error) {
	f.enables++
	if f.enableErr != nil {
		return display.Mode{}, f.enableErr
	}
	f.on = true
	return display.DefaultMode, nil
}

func (f *fakeWatched) OutputType() (sunxi.OutputType, error) {
	if f.on {
		return sunxi.OutputHDMI, nil
	}
	return sunxi.OutputNone, nil
}

func (f *fakeWatched) OutputState() (display.OutputState, error) {
	if f.on {
		return display.OutputOnKnownMode, nil
	}
	return display.OutputOff, nil
}

func (f *fakeWatched) CurrentMode() (display.Mode, error) { return display.DefaultMode, nil }

func (f *fakeWatched) ScreenSize() (display.Geometry, error) {
	return display.Geometry{Width: 1280, Height: 720}, nil
}

func (f *fakeWatched) SetForce(force bool) { f.force = force }

func newTestBus(t *testing.T) *events.Bus {
	t.Helper()
	bus := events.New()
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		var zero T
		t.Fatalf("timed out waiting for %T", zero)
		return zero
	}
}

func TestHotplugLoopEnablesOnConnect(t *testing.T) {
	bus := newTestBus(t)
	hotplugs := make(chan events.HotplugChangedEvent, 8)
	outputs := make(chan events.OutputChangedEvent, 8)
	defer bus.Subscribe(func(e events.HotplugChangedEvent) { hotplugs <- e })()
	defer bus.Subscribe(func(e events.OutputChangedEvent) { outputs <- e })()

	d := &fakeWatched{hotplug: display.HotplugConnected}
	loop := newHotplugLoop(d, bus, true, logging.GetLogger("hotplug"))

	loop.check("startup")
	loop.check("poll")
	loop.observe(display.HotplugConnected, "uevent")

	if d.enables != 1 {
		t.Errorf("EnableOutput called %d times, want 1", d.enables)
	}

	hp := receive(t, hotplugs)
	if !hp.Connected() || hp.Source != "startup" {
		t.Errorf("hotplug event = %+v", hp)
	}
	out := receive(t, outputs)
	if !out.Enabled || out.Output != "HDMI" || out.ModeID != int(sunxi.TVMode720P50) || out.Width != 1280 {
		t.Errorf("output event = %+v", out)
	}
}

func TestHotplugLoopStateChanges(t *testing.T) {
	bus := newTestBus(t)
	d := &fakeWatched{hotplug: display.HotplugDisconnected}
	loop := newHotplugLoop(d, bus, true, logging.GetLogger("hotplug"))

	loop.check("startup")
	if d.enables != 0 {
		t.Fatalf("enabled while disconnected")
	}

	loop.observe(display.HotplugConnected, "uevent")
	loop.observe(display.HotplugDisconnected, "uevent")
	loop.observe(display.HotplugConnected, "uevent")
	if d.enables != 2 {
		t.Errorf("EnableOutput called %d times, want 2", d.enables)
	}
}

func TestHotplugLoopWithoutAutoEnable(t *testing.T) {
	bus := newTestBus(t)
	outputs := make(chan events.OutputChangedEvent, 8)
	defer bus.Subscribe(func(e events.OutputChangedEvent) { outputs <- e })()

	d := &fakeWatched{hotplug: display.HotplugConnected}
	loop := newHotplugLoop(d, bus, false, logging.GetLogger("hotplug"))
	loop.check("startup")

	if d.enables != 0 {
		t.Errorf("EnableOutput called %d times, want 0", d.enables)
	}
	out := receive(t, outputs)
	if out.Enabled || out.State != "off" || out.ModeID != int(sunxi.TVModeInvalid) {
		t.Errorf("output event = %+v", out)
	}
}

func TestHotplugLoopEnableFailure(t *testing.T) {
	bus := newTestBus(t)
	failures := make(chan events.EnableFailedEvent, 8)
	defer bus.Subscribe(func(e events.EnableFailedEvent) { failures <- e })()

	d := &fakeWatched{hotplug: display.HotplugConnected, enableErr: errors.New("device switch failed")}
	loop := newHotplugLoop(d, bus, true, logging.GetLogger("hotplug"))
	loop.check("startup")

	got := receive(t, failures)
	if got.Error != "device switch failed" {
		t.Errorf("failure event = %+v", got)
	}
}

func TestHotplugState(t *testing.T) {
	tests := []struct {
		in   display.Hotplug
		want int
	}{
		{display.HotplugConnected, events.HotplugConnected},
		{display.Hotplug(2), events.HotplugConnected},
		{display.HotplugDisconnected, events.HotplugDisconnected},
		{display.HotplugUnknown, events.HotplugUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			if got := hotplugState(tt.in); got != tt.want {
				t.Errorf("hotplugState(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestApplyReload(t *testing.T) {
	t.Run("valid configuration is applied", func(t *testing.T) {
		bus := newTestBus(t)
		reloaded := make(chan events.ConfigReloadedEvent, 1)
		defer bus.Subscribe(func(e events.ConfigReloadedEvent) { reloaded <- e })()

		a := newApp()
		d := &fakeWatched{}
		loop := newHotplugLoop(d, bus, true, logging.GetLogger("hotplug"))

		opts := config.Defaults()
		opts.Config = "/etc/sunxidisp.toml"
		opts.WatchAutoEnable = false
		opts.DisplayForce = true
		a.applyReload(loop, d, opts, bus, logging.GetLogger("hotplug"))

		if loop.autoEnable || a.opts.WatchAutoEnable {
			t.Error("auto enable not turned off")
		}
		if !d.force || !a.opts.DisplayForce {
			t.Error("force not applied")
		}
		if got := receive(t, reloaded); got.Path != "/etc/sunxidisp.toml" {
			t.Errorf("reload event path = %q", got.Path)
		}
	})

	t.Run("invalid configuration is ignored", func(t *testing.T) {
		bus := newTestBus(t)
		a := newApp()
		d := &fakeWatched{}
		loop := newHotplugLoop(d, bus, true, logging.GetLogger("hotplug"))

		opts := config.Defaults()
		opts.WatchAutoEnable = false
		opts.DisplayForce = true
		opts.DisplayScreen = 5
		a.applyReload(loop, d, opts, bus, logging.GetLogger("hotplug"))

		if !loop.autoEnable || d.force {
			t.Error("invalid configuration was applied")
		}
	})
}

func TestHotplugLabel(t *testing.T) {
	tests := map[int]string{
		events.HotplugConnected:    "connected",
		events.HotplugDisconnected: "disconnected",
		events.HotplugUnknown:      "state unknown",
	}
	for state, want := range tests {
		if got := hotplugLabel(state); got != want {
			t.Errorf("hotplugLabel(%d) = %q, want %q", state, got, want)
		}
	}
}
