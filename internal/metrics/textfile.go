package metrics

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/smazurov/sunxidisp/internal/events"
)

// WriteTextfile writes every registered metric to path for the node-exporter
// textfile collector. The file is replaced atomically.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Recorder updates the metrics from bus events and rewrites the textfile
// after each one. An empty path only updates the in-process metrics.
type Recorder struct {
	bus         *events.Bus
	path        string
	logger      *slog.Logger
	unsubscribe []func()
	writeMu     sync.Mutex
}

// NewRecorder creates a recorder for bus.
func NewRecorder(bus *events.Bus, path string, logger *slog.Logger) *Recorder {
	return &Recorder{bus: bus, path: path, logger: logger}
}

// Start subscribes to the display events.
func (r *Recorder) Start() {
	r.unsubscribe = append(r.unsubscribe,
		r.bus.Subscribe(func(e events.HotplugChangedEvent) {
			SetHotplug(e.Screen, e.State)
			r.flush()
		}),
		r.bus.Subscribe(func(e events.OutputChangedEvent) {
			SetOutput(e.Screen, e.State != "off", e.ModeID, e.Width, e.Height)
			r.flush()
		}),
		r.bus.Subscribe(func(e events.EnableFailedEvent) {
			IncEnableFailures(e.Screen)
			r.flush()
		}),
		r.bus.Subscribe(func(events.ConfigReloadedEvent) {
			IncConfigReloads()
			r.flush()
		}),
	)
}

// Stop unsubscribes and writes a final textfile.
func (r *Recorder) Stop() {
	for _, unsub := range r.unsubscribe {
		unsub()
	}
	r.unsubscribe = nil
	r.flush()
}

func (r *Recorder) flush() {
	if r.path == "" {
		return
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if err := WriteTextfile(r.path); err != nil {
		r.logger.Warn("Failed to write metrics", "path", r.path, "error", err)
	}
}
