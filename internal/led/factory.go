package led

import (
	"log/slog"
	"os"
	"strings"
)

// DeviceTreeModelPath holds the board name on device-tree kernels.
const DeviceTreeModelPath = "/proc/device-tree/model"

// StatusLED is the LED type the manager drives.
const StatusLED = "status"

type board struct {
	match string
	leds  map[string]string
}

// Mainline LED names of common A20/H3/H5/A64 boards. The first match wins,
// so more specific models come first.
var boards = []board{
	{"Orange Pi PC", map[string]string{StatusLED: "orangepi:red:status", "power": "orangepi:green:pwr"}},
	{"Orange Pi", map[string]string{StatusLED: "orangepi:red:status", "power": "orangepi:green:pwr"}},
	{"NanoPi NEO", map[string]string{StatusLED: "nanopi:blue:status", "power": "nanopi:green:pwr"}},
	{"Banana Pi", map[string]string{StatusLED: "bananapi:green:usr"}},
	{"Cubieboard2", map[string]string{StatusLED: "cubieboard2:green:usr", "user": "cubieboard2:blue:usr"}},
	{"Cubietruck", map[string]string{StatusLED: "cubietruck:green:usr", "user": "cubietruck:blue:usr"}},
	{"Olimex A20-OLinuXino", map[string]string{StatusLED: "a20-olinuxino-lime:green:usr"}},
	{"Pine64", map[string]string{}},
}

// New picks a controller for the board named in the device-tree model.
// Unknown boards get a no-op controller.
func New(logger *slog.Logger) Controller {
	return newForModel(detectBoard(DeviceTreeModelPath), logger)
}

func newForModel(model string, logger *slog.Logger) Controller {
	for _, b := range boards {
		if strings.Contains(model, b.match) && len(b.leds) > 0 {
			logger.Info("Using sysfs LED controller", "board_model", model)
			return newSysfs(b.leds)
		}
	}
	logger.Info("No LED support detected, using no-op controller", "board_model", model)
	return newNoop(logger)
}

// detectBoard returns the model string, or "unknown" when it cannot be read.
func detectBoard(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}
	return strings.TrimRight(string(data), "\x00\n")
}
