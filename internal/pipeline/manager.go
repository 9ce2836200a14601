package pipeline

import (
	"log/slog"
	"sync"

	"loom/internal/config"
	"loom/internal/hitl"
	"loom/internal/logging"
	"loom/internal/notifications"
	"loom/internal/phase"
	"loom/internal/project"
	"loom/internal/stage"
)

// Manager coordinates phase execution for one run.
type Manager struct {
	cfg      *config.Config
	state    *project.State
	machine  *phase.Machine
	handlers map[project.Phase]stage.Handler
	ui       hitl.Interface
	notifier notifications.Service
	logger   *slog.Logger

	mu        sync.RWMutex
	lastErr   error
	lastPhase project.Phase
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithNotifier replaces the default noop notifier.
func WithNotifier(notifier notifications.Service) ManagerOption {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithUI sets the operator interface used for rollback confirmation.
func WithUI(ui hitl.Interface) ManagerOption {
	return func(m *Manager) {
		if ui != nil {
			m.ui = ui
		}
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager binds handlers to state. Transitions are persisted through
// persister.
func NewManager(cfg *config.Config, state *project.State, persister project.Persister, handlers map[project.Phase]stage.Handler, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:      cfg,
		state:    state,
		machine:  phase.NewMachine(state, persister),
		handlers: handlers,
		notifier: notifications.Noop(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.ui == nil {
		m.ui = hitl.NewBatch(m.logger)
	}
	m.logger = logging.NewComponentLogger(m.logger, "pipeline")
	return m
}

// State returns the managed run state.
func (m *Manager) State() *project.State { return m.state }

// Machine exposes the phase machine for read-only queries.
func (m *Manager) Machine() *phase.Machine { return m.machine }
