package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sheikh-saqib/credit-tracker/internal/idgen"
	interfaces "github.com/sheikh-saqib/credit-tracker/internal/interfaces"
	"github.com/sheikh-saqib/credit-tracker/internal/metrics"
	"github.com/sheikh-saqib/credit-tracker/internal/models"
)

// Phase is where a client is in the login flow.
type Phase int

const (
	Loading Phase = iota
	Unauthenticated
	Authenticated
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// State is the session context handed down to request handlers. It starts in
// Loading and is resolved once by Manager.Restore.
type State struct {
	Phase   Phase
	Session models.Session
}

// Role returns the granted role, or RoleNone when not authenticated.
func (s State) Role() models.Role {
	if s.Phase != Authenticated {
		return models.RoleNone
	}
	return s.Session.Role
}

// Manager creates and resolves sessions.
type Manager struct {
	gate   *Gate
	store  interfaces.SessionStore
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

func NewManager(gate *Gate, store interfaces.SessionStore, ttl time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		gate:   gate,
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.Named("auth"),
	}
}

// Login checks the password and opens a session with the resulting role.
func (m *Manager) Login(ctx context.Context, password string) (models.Session, error) {
	role, err := m.gate.Authenticate(password)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("denied").Inc()
		m.logger.Info("login denied")
		return models.Session{}, err
	}

	now := m.now()
	session := models.Session{
		ID:        idgen.SessionID(),
		Role:      role,
		CreatedAt: now,
	}
	if m.ttl > 0 {
		session.ExpiresAt = now.Add(m.ttl)
	}
	if err := m.store.Save(ctx, session); err != nil {
		return models.Session{}, fmt.Errorf("save session: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues("granted").Inc()
	m.logger.Info("login granted", zap.String("role", string(role)))
	return session, nil
}

// Restore resolves a session id into a State. An empty, unknown or expired id is
// Unauthenticated; a store failure is returned along with an Unauthenticated state.
func (m *Manager) Restore(ctx context.Context, id string) (State, error) {
	if id == "" {
		return State{Phase: Unauthenticated}, nil
	}
	session, err := m.store.Get(ctx, id)
	if errors.Is(err, interfaces.ErrSessionNotFound) {
		return State{Phase: Unauthenticated}, nil
	}
	if err != nil {
		return State{Phase: Unauthenticated}, fmt.Errorf("restore session: %w", err)
	}
	if session.Expired(m.now()) {
		_ = m.store.Delete(ctx, id)
		return State{Phase: Unauthenticated}, nil
	}
	return State{Phase: Authenticated, Session: session}, nil
}

// Logout clears the session; the client is back to Unauthenticated.
func (m *Manager) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return m.store.Delete(ctx, id)
}

// Select stores the student the session is looking at. An empty id clears it.
func (m *Manager) Select(ctx context.Context, session models.Session, studentID string) (models.Session, error) {
	session.SelectedStudent = studentID
	if err := m.store.Save(ctx, session); err != nil {
		return session, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}
