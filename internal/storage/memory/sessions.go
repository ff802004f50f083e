package memory

import (
	"context"
	"sync"
	"time"

	interfaces "github.com/sheikh-saqib/credit-tracker/internal/interfaces"
	"github.com/sheikh-saqib/credit-tracker/internal/models"
)

// MemorySessionStore keeps sessions for the lifetime of the process.
// Expired sessions are dropped when they are looked up, and every Save sweeps
// the ones nobody came back for.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	now      func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]models.Session),
		now:      time.Now,
	}
}

func (m *MemorySessionStore) Save(ctx context.Context, session models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
		}
	}
	m.sessions[session.ID] = session
	return nil
}

func (m *MemorySessionStore) Get(ctx context.Context, id string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return models.Session{}, interfaces.ErrSessionNotFound
	}
	if session.Expired(m.now()) {
		delete(m.sessions, id)
		return models.Session{}, interfaces.ErrSessionNotFound
	}
	return session, nil
}

func (m *MemorySessionStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

var _ interfaces.SessionStore = (*MemorySessionStore)(nil)
