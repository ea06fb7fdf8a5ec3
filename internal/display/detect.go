package display

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/smazurov/sunxidisp/pkg/linuxav/sunxi"
)

// Generation identifies the display engine and therefore the driver ABI.
type Generation int

// Display engine generations.
const (
	GenUnknown Generation = iota
	Gen1                  // DE1: A10/A20 (sun4i/sun7i)
	Gen2                  // DE2: H3/H5/A64 (sun8i/sun50i)
)

func (g Generation) String() string {
	switch g {
	case Gen1:
		return "DE1 (A10/A20)"
	case Gen2:
		return "DE2 (H3/H5/A64)"
	default:
		return "Unknown"
	}
}

// ParseGeneration accepts "auto" (or empty), "de1" and "de2".
func ParseGeneration(s string) (Generation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return GenUnknown, nil
	case "de1", "1", "gen1":
		return Gen1, nil
	case "de2", "2", "gen2":
		return Gen2, nil
	default:
		return GenUnknown, fmt.Errorf("%w: generation %q, use auto, de1 or de2", ErrInvalidInput, s)
	}
}

var (
	gen1Markers = []string{"sun7i", "A20", "sun4i", "A10"}
	gen2Markers = []string{"sun8i", "H3", "H5", "sun50i", "A64"}
)

// Detector works out which display engine is present. The hardware identity
// files are consulted first; the control device is only probed when they are
// inconclusive.
type Detector struct {
	CPUInfoPath    string
	DeviceTreePath string
	Conn           sunxi.Conn

	logger *slog.Logger
}

// NewDetector returns a detector reading identity from the given procfs
// locations and probing conn.
func NewDetector(conn sunxi.Conn, cpuinfo, deviceTree string, logger *slog.Logger) *Detector {
	return &Detector{
		CPUInfoPath:    cpuinfo,
		DeviceTreePath: deviceTree,
		Conn:           conn,
		logger:         logger,
	}
}

// Detect never fails. When neither the identity nor the probes are
// conclusive it returns Gen1, which older kernels without clean negative
// replies need.
func (d *Detector) Detect() Generation {
	if id := d.identity(); id != "" {
		if gen := classify(id); gen != GenUnknown {
			d.logger.Debug("Display engine detected from hardware identity", "identity", id, "generation", gen)
			return gen
		}
		d.logger.Debug("Hardware identity not recognised", "identity", id)
	}

	if gen := d.probe(); gen != GenUnknown {
		return gen
	}

	d.logger.Debug("Could not detect display engine, defaulting to DE1")
	return Gen1
}

// identity returns the cpuinfo Hardware value, or the device tree
// compatible and model strings when cpuinfo has no Hardware line.
func (d *Detector) identity() string {
	if hw, ok := cpuinfoHardware(d.CPUInfoPath); ok {
		return hw
	}
	if d.DeviceTreePath == "" {
		return ""
	}
	for _, name := range []string{"compatible", "model"} {
		if v := readDeviceTreeString(filepath.Join(d.DeviceTreePath, name)); v != "" {
			return v
		}
	}
	return ""
}

func (d *Detector) probe() Generation {
	if d.Conn == nil {
		return GenUnknown
	}

	ret, err := d.Conn.Ioctl(sunxi.DE1HDMIGetHPD, sunxi.NewArgs(0, 0, 0, 0))
	if responded(err) {
		d.logger.Debug("DE1 probe responded", "cmd", sunxi.DE1HDMIGetHPD, "ret", ret, "error", err)
		return Gen1
	}

	ret, err = d.Conn.Ioctl(sunxi.DE2HDMISupportMode, sunxi.NewArgs(0, uintptr(sunxi.TVMode720P60), 0, 0))
	if responded(err) {
		d.logger.Debug("DE2 probe responded", "cmd", sunxi.DE2HDMISupportMode, "ret", ret, "error", err)
		return Gen2
	}
	return GenUnknown
}

// responded treats every outcome except "inappropriate ioctl" as a sign the
// driver knows the command.
func responded(err error) bool {
	return err == nil || !errors.Is(err, unix.ENOTTY)
}

func classify(id string) Generation {
	for _, m := range gen1Markers {
		if strings.Contains(id, m) {
			return Gen1
		}
	}
	for _, m := range gen2Markers {
		if strings.Contains(id, m) {
			return Gen2
		}
	}
	return GenUnknown
}

// cpuinfoHardware reports the Hardware line of /proc/cpuinfo. The boolean is
// false when the file is unreadable or has no such line, as on arm64.
func cpuinfoHardware(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "Hardware") {
			continue
		}
		if _, value, ok := strings.Cut(line, ":"); ok {
			return strings.TrimSpace(value), true
		}
		return strings.TrimSpace(line), true
	}
	return "", false
}

// readDeviceTreeString reads a NUL-separated string list property.
func readDeviceTreeString(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	parts := bytes.Split(bytes.Trim(data, "\x00"), []byte{0})
	return strings.TrimSpace(string(bytes.Join(parts, []byte(" "))))
}
