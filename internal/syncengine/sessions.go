package syncengine

import (
	"context"
	"sync"

	"github.com/boddenberg/budget-sync-go/internal/budget"
	"github.com/boddenberg/budget-sync-go/internal/infra/observability"
	"github.com/boddenberg/budget-sync-go/internal/port"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Session pairs a user's local store with its orchestrator.
type Session struct {
	ID     string
	UserID string
	Store  *budget.Store
	Orch   *Orchestrator

	ready chan struct{} // closed once initialization finished
}

// Manager owns one session per authenticated user id. The handler layer
// acquires sessions on demand and releases them on sign-out or user
// change.
type Manager struct {
	docs    port.DocumentStore
	cfg     Config
	metrics *observability.Metrics
	logger  *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager backed by the given document store.
func NewManager(docs port.DocumentStore, cfg Config, metrics *observability.Metrics, logger *zap.Logger) *Manager {
	return &Manager{
		docs:     docs,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
		sessions: map[string]*Session{},
	}
}

// Acquire returns the live session for userID, starting one if none
// exists. The first call for a user runs the full initialization phase
// (read-or-create, subscribe) before returning; concurrent acquirers of
// the same user block until it finishes, so no caller can mutate the
// default store before the remote state lands.
func (m *Manager) Acquire(ctx context.Context, userID string) *Session {
	m.mu.Lock()
	if s, ok := m.sessions[userID]; ok {
		m.mu.Unlock()
		<-s.ready
		return s
	}

	store := budget.NewStore()
	s := &Session{
		ID:     uuid.NewString(),
		UserID: userID,
		Store:  store,
		Orch:   NewOrchestrator(userID, store, m.docs, m.cfg, m.metrics, m.logger),
		ready:  make(chan struct{}),
	}
	m.sessions[userID] = s
	m.mu.Unlock()

	m.metrics.SessionStarted()
	m.logger.Info("session started",
		zap.String("session_id", s.ID),
		zap.String("user_id", userID),
	)

	s.Orch.Start(ctx)
	close(s.ready)
	return s
}

// Release tears down the user's session if one exists. Idempotent.
func (m *Manager) Release(userID string) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	s.Orch.Teardown()
	m.metrics.SessionEnded()
}

// Shutdown tears down every live session concurrently. Used on process
// exit so no debounce timer outlives the server.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = map[string]*Session{}
	m.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for _, s := range all {
		s := s
		g.Go(func() error {
			s.Orch.Teardown()
			m.metrics.SessionEnded()
			return nil
		})
	}
	return g.Wait()
}
