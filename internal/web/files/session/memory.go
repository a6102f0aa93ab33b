package session

import (
	"context"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"

	"github.com/Laisky/files-manager/internal/web/files/model"
)

type memorySession struct {
	UserID    model.ID
	ExpiresAt time.Time
}

// Memory keeps sessions in process, expired entries are dropped when read.
type Memory struct {
	sessions sync.Map
	clock    Clock
}

// NewMemory create new in-process session store, nil clock uses the shared clock.
func NewMemory(clock Clock) *Memory {
	if clock == nil {
		clock = gutils.Clock.GetUTCNow
	}

	return &Memory{clock: clock}
}

// IsAlive always true for the in-process store.
func (s *Memory) IsAlive() bool {
	return true
}

// Create issues a token for userID
func (s *Memory) Create(_ context.Context, userID model.ID, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	token := newToken()
	s.sessions.Store(token, &memorySession{
		UserID:    userID,
		ExpiresAt: s.clock().Add(ttl),
	})

	return token, nil
}

// Resolve load user id by token
func (s *Memory) Resolve(_ context.Context, token string) (model.ID, error) {
	raw, ok := s.sessions.Load(token)
	if !ok {
		return model.RootID, errors.WithStack(ErrSessionNotFound)
	}

	sess := raw.(*memorySession)
	if !s.clock().Before(sess.ExpiresAt) {
		s.sessions.CompareAndDelete(token, raw)
		return model.RootID, errors.WithStack(ErrSessionNotFound)
	}

	return sess.UserID, nil
}

// Revoke delete the token
func (s *Memory) Revoke(_ context.Context, token string) error {
	s.sessions.Delete(token)
	return nil
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Redis)(nil)
)
