package session

import (
	"sync"

	"go.uber.org/zap"

	"github.com/verityqa/verity/internal/config"
)

// Manager is an explicit registry mapping worker identifiers to their
// sessions. Ownership is visible at the call site: a worker acquires its
// session by id and releases it when its task ends, rather than stashing the
// handle in hidden per-goroutine state.
type Manager struct {
	cfg    *config.Config
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[int]*Session
}

// NewManager constructs an empty registry.
func NewManager(cfg *config.Config, logger *zap.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		logger:   logger.Named("session_manager"),
		sessions: make(map[int]*Session),
	}
}

// Acquire returns the session owned by workerID, creating it on first use.
// The browser itself still launches lazily on the session's first action.
func (m *Manager) Acquire(workerID int) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[workerID]; ok {
		return s
	}
	s := New(m.cfg, m.logger.With(zap.Int("worker_id", workerID)))
	m.sessions[workerID] = s
	m.logger.Debug("Session registered",
		zap.Int("worker_id", workerID),
		zap.String("session_id", s.ID()))
	return s
}

// Release quits and unregisters the session owned by workerID. Releasing a
// worker that holds no session is a no-op.
func (m *Manager) Release(workerID int) {
	m.mu.Lock()
	s, ok := m.sessions[workerID]
	delete(m.sessions, workerID)
	m.mu.Unlock()

	if ok {
		s.Close()
		m.logger.Debug("Session released", zap.Int("worker_id", workerID))
	}
}

// Len reports how many sessions are currently registered.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// CloseAll quits every registered session. Called once after the worker pool
// has fully drained.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[int]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	if len(sessions) > 0 {
		m.logger.Info("All sessions closed", zap.Int("count", len(sessions)))
	}
}
