package sources

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"NewsOrchestrator/internal/domain"
	"NewsOrchestrator/internal/orchestrator"
	"NewsOrchestrator/internal/ports"
)

// Manager owns the caller-side copy of configured sources, keyed by unique
// name. Rounds receive read-only snapshots; health changes come back as
// lifecycle events and are applied here, never written into the snapshot by
// the tasks themselves.
type Manager struct {
	orchestrator.NoopListener

	logger *slog.Logger

	mu     sync.RWMutex
	byName map[string]*domain.Source
	order  []string
}

var _ ports.SourceProvider = (*Manager)(nil)
var _ orchestrator.Listener = (*Manager)(nil)

// NewManager builds an empty manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		logger: logger,
		byName: map[string]*domain.Source{},
	}
}

// Add registers a source; names are unique across the manager.
func (m *Manager) Add(src domain.Source) error {
	if src.Name == "" {
		return fmt.Errorf("source name is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byName[src.Name]; exists {
		return fmt.Errorf("source %q already exists", src.Name)
	}

	stored := src.Clone()
	if stored.Status == "" {
		stored.Status = domain.StatusUnchecked
	}
	m.byName[src.Name] = &stored
	m.order = append(m.order, src.Name)
	return nil
}

// Get returns a copy of one source by name.
func (m *Manager) Get(name string) (domain.Source, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	src, ok := m.byName[name]
	if !ok {
		return domain.Source{}, false
	}
	return src.Clone(), true
}

// All returns copies of every source in registration order.
func (m *Manager) All() []domain.Source {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return lo.Map(m.order, func(name string, _ int) domain.Source {
		return m.byName[name].Clone()
	})
}

// EnabledSources returns the snapshot a round fans out over; disabled
// sources never make it into a round.
func (m *Manager) EnabledSources() []domain.Source {
	return lo.Filter(m.All(), func(s domain.Source, _ int) bool {
		return s.Enabled
	})
}

// SetEnabled flips a source's enabled flag; false when the name is unknown.
func (m *Manager) SetEnabled(name string, enabled bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok := m.byName[name]
	if !ok {
		return false
	}
	src.Enabled = enabled
	return true
}

// SourceStatusChecked applies a status round's outcome to the manager's own
// copy of the source.
func (m *Manager) SourceStatusChecked(result domain.StatusResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok := m.byName[result.SourceName]
	if !ok {
		if m.logger != nil {
			m.logger.Warn("status result for unknown source", "source", result.SourceName)
		}
		return
	}

	src.Status = result.Status()
	src.ConsecutiveErrors = result.ConsecutiveErrors
	checkedAt := result.CheckedAt
	src.LastCheckedAt = &checkedAt

	if result.Success {
		src.LastError = nil
		return
	}
	msg := result.Message
	if result.ErrorDetails != nil {
		msg = *result.ErrorDetails
	}
	src.LastError = &msg
}
