package led

import (
	"log/slog"
	"sync"

	"github.com/smazurov/camalbum/internal/events"
)

// Subscriber is the part of the event bus the manager needs.
type Subscriber interface {
	Subscribe(handler any) func()
}

type indication struct {
	on      bool
	pattern string
}

// indications maps controller states to the LED: lit while a camera is
// held, blinking while recording.
var indications = map[string]indication{
	"idle":      {on: false},
	"ready":     {on: true, pattern: "solid"},
	"recording": {on: true, pattern: "blink"},
	"error":     {on: false},
}

// Manager mirrors the capture state on one LED.
type Manager struct {
	controller Controller
	name       string
	bus        Subscriber
	logger     *slog.Logger

	mu          sync.Mutex
	unsubscribe func()
	current     *indication
}

// NewManager creates a manager driving the LED called name.
func NewManager(controller Controller, name string, bus Subscriber, logger *slog.Logger) *Manager {
	return &Manager{controller: controller, name: name, bus: bus, logger: logger}
}

// Start subscribes to capture state changes.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsubscribe != nil {
		return
	}
	m.unsubscribe = m.bus.Subscribe(func(e events.CaptureStateEvent) {
		m.handleState(e.State)
	})
	m.logger.Info("LED indicator started", "led", m.name)
}

// Stop unsubscribes and turns the LED off.
func (m *Manager) Stop() {
	m.mu.Lock()
	unsub := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()
	if unsub == nil {
		return
	}
	unsub()
	m.apply(indication{on: false})
	m.logger.Info("LED indicator stopped")
}

func (m *Manager) handleState(state string) {
	ind, ok := indications[state]
	if !ok {
		return
	}
	m.apply(ind)
}

func (m *Manager) apply(ind indication) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && *m.current == ind {
		return
	}
	if err := m.controller.Set(m.name, ind.on, ind.pattern); err != nil {
		m.logger.Warn("Failed to set LED", "led", m.name, "error", err)
		return
	}
	m.current = &ind
}
