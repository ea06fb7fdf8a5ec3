package led

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewForModel(t *testing.T) {
	tests := []struct {
		model     string
		wantSysfs bool
		wantLED   string
	}{
		{"Xunlong Orange Pi PC", true, "orangepi:red:status"},
		{"FriendlyARM NanoPi NEO", true, "nanopi:blue:status"},
		{"LeMaker Banana Pi", true, "bananapi:green:usr"},
		{"Cubietech Cubieboard2", true, "cubieboard2:green:usr"},
		{"Pine64", false, ""},
		{"unknown", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			ctrl := newForModel(tt.model, testLogger())
			s, ok := ctrl.(*sysfs)
			if ok != tt.wantSysfs {
				t.Fatalf("controller = %T, want sysfs=%v", ctrl, tt.wantSysfs)
			}
			if ok && s.leds[StatusLED] != tt.wantLED {
				t.Errorf("status LED = %q, want %q", s.leds[StatusLED], tt.wantLED)
			}
		})
	}
}

func TestDetectBoard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model")
	if err := os.WriteFile(path, []byte("Xunlong Orange Pi PC\x00"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := detectBoard(path); got != "Xunlong Orange Pi PC" {
		t.Errorf("detectBoard() = %q", got)
	}
	if got := detectBoard(filepath.Join(t.TempDir(), "missing")); got != "unknown" {
		t.Errorf("detectBoard(missing) = %q, want unknown", got)
	}
}

func TestNew(t *testing.T) {
	ctrl := New(testLogger())
	if ctrl == nil {
		t.Fatal("New() returned nil")
	}
	if ctrl.Available() == nil || ctrl.Patterns() == nil {
		t.Error("New() controller returned nil slices")
	}
}
