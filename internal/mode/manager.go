package mode

import (
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/sabaki/internal/eventbus"
)

// Manager owns the current mode, the handler registry and switch history.
type Manager struct {
	mu       sync.RWMutex
	current  Mode
	handlers map[Mode]Handler
	order    []Mode
	history  []SwitchEvent
	logging  bool
	bus      *eventbus.Bus
	now      func() time.Time

	// unpublished switches, delivered in history order by one goroutine at
	// a time
	outbox     []SwitchEvent
	publishing bool
}

type Option func(*Manager)

func WithLogging(enabled bool) Option {
	return func(m *Manager) { m.logging = enabled }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager starts in initial. The mode does not need a handler yet; input
// arriving before one is registered is reported as mode-unavailable.
func NewManager(initial Mode, bus *eventbus.Bus, opts ...Option) *Manager {
	m := &Manager{
		current:  initial,
		handlers: make(map[Mode]Handler),
		logging:  true,
		bus:      bus,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterHandler stores h under its mode, replacing any earlier one.
func (m *Manager) RegisterHandler(h Handler) {
	m.mu.Lock()
	mode := h.Mode()
	if _, exists := m.handlers[mode]; !exists {
		m.order = append(m.order, mode)
	}
	m.handlers[mode] = h
	logging := m.logging
	m.mu.Unlock()

	if logging {
		slog.Info("Mode handler registered", "mode", mode, "name", h.Name())
	}
}

// SwitchMode makes target current. Switching to the current mode succeeds
// without recording anything; an unregistered target fails with no change.
func (m *Manager) SwitchMode(target Mode, reason string) bool {
	m.mu.Lock()
	if target == m.current {
		m.mu.Unlock()
		return true
	}
	if _, ok := m.handlers[target]; !ok {
		from := m.current
		logging := m.logging
		m.mu.Unlock()
		if logging {
			slog.Warn("Mode switch rejected: no handler registered", "from", from, "to", target)
		}
		return false
	}

	evt := SwitchEvent{
		From:      m.current,
		To:        target,
		Reason:    reason,
		Timestamp: m.now(),
	}
	m.current = target
	m.history = append(m.history, evt)
	m.outbox = append(m.outbox, evt)
	m.mu.Unlock()

	m.publishSwitches()
	return true
}

// publishSwitches drains the outbox outside the state lock. A switch made
// while another goroutine is draining, or by a subscriber, is left for the
// active drainer.
func (m *Manager) publishSwitches() {
	m.mu.Lock()
	if m.publishing {
		m.mu.Unlock()
		return
	}
	m.publishing = true

	for len(m.outbox) > 0 {
		evt := m.outbox[0]
		m.outbox = m.outbox[1:]
		logging := m.logging
		m.mu.Unlock()

		if logging {
			slog.Info("Mode switched", "from", evt.From, "to", evt.To, "reason", evt.Reason)
		}
		m.bus.Publish(eventbus.TopicModeSwitched, evt)

		m.mu.Lock()
	}
	m.publishing = false
	m.mu.Unlock()
}

func (m *Manager) CurrentMode() Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// CurrentHandler returns the handler for the current mode, if registered.
func (m *Manager) CurrentHandler() (Handler, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handlers[m.current]
	return h, ok
}

func (m *Manager) IsModeAvailable(mode Mode) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.handlers[mode]
	return ok
}

// AvailableModes lists registered modes in registration order.
func (m *Manager) AvailableModes() []Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Mode(nil), m.order...)
}

// ModeInfo describes mode, or the current mode when mode is empty.
func (m *Manager) ModeInfo(mode Mode) (Info, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if mode == "" {
		mode = m.current
	}
	h, ok := m.handlers[mode]
	if !ok {
		return Info{}, false
	}
	return m.infoLocked(h), true
}

func (m *Manager) AllModesInfo() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]Info, 0, len(m.order))
	for _, mode := range m.order {
		infos = append(infos, m.infoLocked(m.handlers[mode]))
	}
	return infos
}

func (m *Manager) infoLocked(h Handler) Info {
	return Info{
		Mode:         h.Mode(),
		Name:         h.Name(),
		Description:  h.Description(),
		Capabilities: h.Capabilities(),
		Active:       h.Mode() == m.current,
	}
}

// History returns the newest limit switch events, or all when limit <= 0.
// The returned slice is a copy.
func (m *Manager) History(limit int) []SwitchEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := 0
	if limit > 0 && len(m.history) > limit {
		start = len(m.history) - limit
	}
	return append([]SwitchEvent(nil), m.history[start:]...)
}

func (m *Manager) ClearHistory() {
	m.mu.Lock()
	m.history = nil
	m.mu.Unlock()
}

func (m *Manager) SetLogging(enabled bool) {
	m.mu.Lock()
	m.logging = enabled
	m.mu.Unlock()
}

