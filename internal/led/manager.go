package led

import (
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/powerled/internal/events"
)

// Manager drives the three power LED groups from a presentation.
type Manager struct {
	controller Controller
	groups     Groups
	eventBus   *events.Bus
	logger     *slog.Logger

	mu      sync.RWMutex
	current Presentation
	applied bool
}

// NewManager creates a new LED manager. eventBus may be nil.
func NewManager(controller Controller, groups Groups, eventBus *events.Bus, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		controller: controller,
		groups:     groups,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Apply requests every group's state for p. Actuation failures are logged
// and reported but never undo or retry the update.
func (m *Manager) Apply(p Presentation) {
	m.mu.Lock()
	previous, hadPrevious := m.current, m.applied
	m.current = p
	m.applied = true
	m.mu.Unlock()

	m.logger.Info("Updating power LED", "presentation", p.String())
	recomputations.Inc()
	observePresentation(p)

	now := time.Now().Format(time.RFC3339)
	for _, a := range m.groups.Assignments(p) {
		if err := m.controller.Set(a.Group, a.Asserted); err != nil {
			actuationErrors.Inc()
			m.logger.Warn("Failed to set LED group",
				"group", a.Group,
				"asserted", a.Asserted,
				"error", err)
			m.publish(events.ActuationFailedEvent{
				Group:     a.Group,
				Asserted:  a.Asserted,
				Error:     err.Error(),
				Timestamp: now,
			})
		}
	}

	ev := events.PresentationChangedEvent{
		Presentation: p.String(),
		Timestamp:    now,
	}
	if hadPrevious {
		ev.Previous = previous.String()
	}
	m.publish(ev)
}

// Current returns the last applied presentation, and false if none was
// applied yet.
func (m *Manager) Current() (Presentation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.applied
}

// GetController returns the underlying LED controller.
func (m *Manager) GetController() Controller {
	return m.controller
}

func (m *Manager) publish(ev events.Event) {
	if m.eventBus != nil {
		m.eventBus.Publish(ev)
	}
}
