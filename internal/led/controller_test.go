package led

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestNoopController(t *testing.T) {
	ctrl := newNoop(testLogger())

	if err := ctrl.Set(StatusLED, true, "solid"); err != nil {
		t.Errorf("Set() returned error: %v", err)
	}
	if types := ctrl.Available(); len(types) != 0 {
		t.Errorf("Available() = %v, want empty slice", types)
	}
	if patterns := ctrl.Patterns(); len(patterns) != 0 {
		t.Errorf("Patterns() = %v, want empty slice", patterns)
	}
}

// fakeLEDs creates /sys/class/leds/<name>/{trigger,brightness} under a
// temporary root.
func fakeLEDs(t *testing.T, names ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, name := range names {
		dir := filepath.Join(root, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		for _, f := range []string{"trigger", "brightness"} {
			if err := os.WriteFile(filepath.Join(dir, f), nil, 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}
	return root
}

func readLED(t *testing.T, root, name string) (trigger, brightness string) {
	t.Helper()
	tr, err := os.ReadFile(filepath.Join(root, name, "trigger"))
	if err != nil {
		t.Fatal(err)
	}
	br, err := os.ReadFile(filepath.Join(root, name, "brightness"))
	if err != nil {
		t.Fatal(err)
	}
	return string(tr), string(br)
}

func TestSysfsController_Set(t *testing.T) {
	tests := []struct {
		name           string
		enabled        bool
		pattern        string
		wantTrigger    string
		wantBrightness string
	}{
		{"solid", true, "solid", "none", "1"},
		{"blink", true, "blink", "timer", "1"},
		{"heartbeat", true, "heartbeat", "heartbeat", "1"},
		{"raw trigger", true, "mmc0", "mmc0", "1"},
		{"off", false, "blink", "none", "0"},
		{"keep trigger", true, "", "", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := fakeLEDs(t, "orangepi:red:status")
			ctrl := newSysfs(map[string]string{StatusLED: "orangepi:red:status"})
			ctrl.root = root

			if err := ctrl.Set(StatusLED, tt.enabled, tt.pattern); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			trigger, brightness := readLED(t, root, "orangepi:red:status")
			if trigger != tt.wantTrigger || brightness != tt.wantBrightness {
				t.Errorf("trigger=%q brightness=%q, want %q %q", trigger, brightness, tt.wantTrigger, tt.wantBrightness)
			}
		})
	}
}

func TestSysfsController_SetErrors(t *testing.T) {
	ctrl := newSysfs(map[string]string{StatusLED: "missing:led"})
	ctrl.root = t.TempDir()

	if err := ctrl.Set("nonexistent", true, ""); err == nil {
		t.Error("Set() with unknown LED type should fail")
	}
	if err := ctrl.Set(StatusLED, true, "solid"); err == nil {
		t.Error("Set() with missing sysfs node should fail")
	}
}

func TestSysfsController_Available(t *testing.T) {
	tests := []struct {
		name string
		leds map[string]string
		want []string
	}{
		{"two LEDs", map[string]string{StatusLED: "a", "power": "b"}, []string{"power", StatusLED}},
		{"none", map[string]string{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newSysfs(tt.leds).Available(); !slices.Equal(got, tt.want) {
				t.Errorf("Available() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSysfsController_Patterns(t *testing.T) {
	patterns := newSysfs(nil).Patterns()
	for _, want := range []string{"solid", "blink", "heartbeat"} {
		if !slices.Contains(patterns, want) {
			t.Errorf("Patterns() missing %q", want)
		}
	}
}
