package led

import (
	"log/slog"
	"sync"

	"github.com/smazurov/sunxidisp/internal/events"
)

// Pattern shown for each output condition.
const (
	patternActive  = "solid" // sink attached, output on
	patternPending = "blink" // sink attached, output off or failed
)

// Manager mirrors the HDMI state of one screen on the status LED.
type Manager struct {
	controller  Controller
	eventBus    *events.Bus
	unsubscribe []func()
	logger      *slog.Logger

	mu        sync.Mutex
	connected bool
	active    bool
}

// NewManager creates a manager for controller fed by eventBus.
func NewManager(controller Controller, eventBus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{
		controller: controller,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Start subscribes to hot-plug and output events.
func (m *Manager) Start() {
	m.unsubscribe = append(m.unsubscribe,
		m.eventBus.Subscribe(func(e events.HotplugChangedEvent) {
			m.mu.Lock()
			m.connected = e.Connected()
			if !m.connected {
				m.active = false
			}
			m.mu.Unlock()
			m.update()
		}),
		m.eventBus.Subscribe(func(e events.OutputChangedEvent) {
			m.mu.Lock()
			m.active = e.State != "off"
			m.mu.Unlock()
			m.update()
		}),
		m.eventBus.Subscribe(func(events.EnableFailedEvent) {
			m.mu.Lock()
			m.active = false
			m.mu.Unlock()
			m.update()
		}),
	)
	m.logger.Info("LED manager started")
}

// Stop unsubscribes and switches the status LED off.
func (m *Manager) Stop() {
	for _, unsub := range m.unsubscribe {
		unsub()
	}
	m.unsubscribe = nil
	if err := m.controller.Set(StatusLED, false, ""); err != nil {
		m.logger.Debug("Failed to switch status LED off", "error", err)
	}
	m.logger.Info("LED manager stopped")
}

func (m *Manager) update() {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	switch {
	case !m.connected:
		err = m.controller.Set(StatusLED, false, "")
	case m.active:
		err = m.controller.Set(StatusLED, true, patternActive)
	default:
		err = m.controller.Set(StatusLED, true, patternPending)
	}
	if err != nil {
		m.logger.Warn("Failed to update status LED", "error", err)
	}
}

// Controller returns the underlying LED controller.
func (m *Manager) Controller() Controller {
	return m.controller
}
