// Package metrics provides Prometheus metrics for the HDMI output, written as
// a node-exporter textfile while "watch" runs.
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sunxidisp"

var (
	hotplugState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "hdmi",
		Name:      "hotplug_state",
		Help:      "HDMI hot-plug state (-1 unknown, 0 disconnected, 1 connected)",
	}, []string{"screen"})

	hotplugTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "hdmi",
		Name:      "hotplug_transitions_total",
		Help:      "Hot-plug state changes observed",
	}, []string{"screen"})

	outputEnabled = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "hdmi",
		Name:      "output_enabled",
		Help:      "Whether the screen drives an output (1) or is off (0)",
	}, []string{"screen"})

	outputMode = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "hdmi",
		Name:      "mode_id",
		Help:      "Driver TV mode id of the active output, -1 when unknown",
	}, []string{"screen"})

	screenWidth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "screen",
		Name:      "width_pixels",
		Help:      "Active screen width",
	}, []string{"screen"})

	screenHeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "screen",
		Name:      "height_pixels",
		Help:      "Active screen height",
	}, []string{"screen"})

	enableFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "hdmi",
		Name:      "enable_failures_total",
		Help:      "Automatic output enables that failed",
	}, []string{"screen"})

	configReloads = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "config_reloads_total",
		Help:      "Configuration file reloads",
	})

	lastHotplug   = make(map[int]int)
	lastHotplugMu sync.Mutex
)

func label(screen int) string {
	return strconv.Itoa(screen)
}

// SetHotplug records the hot-plug state. A change from the previously
// recorded value counts as a transition; the first observation does not.
func SetHotplug(screen, state int) {
	lastHotplugMu.Lock()
	prev, seen := lastHotplug[screen]
	lastHotplug[screen] = state
	lastHotplugMu.Unlock()

	if seen && prev != state {
		hotplugTransitions.WithLabelValues(label(screen)).Inc()
	}
	hotplugState.WithLabelValues(label(screen)).Set(float64(state))
}

// SetOutput records the output after a transition was handled.
func SetOutput(screen int, enabled bool, modeID, width, height int) {
	v := 0.0
	if enabled {
		v = 1
	}
	outputEnabled.WithLabelValues(label(screen)).Set(v)
	outputMode.WithLabelValues(label(screen)).Set(float64(modeID))
	screenWidth.WithLabelValues(label(screen)).Set(float64(width))
	screenHeight.WithLabelValues(label(screen)).Set(float64(height))
}

// IncEnableFailures counts one failed automatic enable.
func IncEnableFailures(screen int) {
	enableFailures.WithLabelValues(label(screen)).Inc()
}

// IncConfigReloads counts one configuration reload.
func IncConfigReloads() {
	configReloads.Inc()
}

// Reset drops every per-screen series.
func Reset() {
	hotplugState.Reset()
	hotplugTransitions.Reset()
	outputEnabled.Reset()
	outputMode.Reset()
	screenWidth.Reset()
	screenHeight.Reset()
	enableFailures.Reset()

	lastHotplugMu.Lock()
	clear(lastHotplug)
	lastHotplugMu.Unlock()
}
