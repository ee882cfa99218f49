package fakesessionrepo

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-reddit-auth/internal/errors"
	"github.com/jrsteele09/go-reddit-auth/sessions"
)

var (
	_ sessions.Repo   = (*FakeSessionRepo)(nil)
	_ sessions.Pruner = (*FakeSessionRepo)(nil)
)

// FakeSessionRepo keeps sessions in memory. It stores copies so callers
// only observe changes they explicitly Upsert.
type FakeSessionRepo struct {
	sessions map[string]sessions.Session
	lock     sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]sessions.Session),
	}
}

func (sr *FakeSessionRepo) Get(_ context.Context, sessionID string) (*sessions.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	session, ok := sr.sessions[sessionID]
	if !ok {
		return nil, errors.ErrSessionNotFound
	}
	return &session, nil
}

func (sr *FakeSessionRepo) Upsert(_ context.Context, session *sessions.Session) error {
	if session == nil || session.ID == "" {
		return errors.New("session id is required")
	}

	sr.lock.Lock()
	defer sr.lock.Unlock()

	sr.sessions[session.ID] = *session
	return nil
}

func (sr *FakeSessionRepo) Delete(_ context.Context, sessionID string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	delete(sr.sessions, sessionID)
	return nil
}

// DeleteSessionsBefore drops sessions whose UpdatedAt is before cutoff.
func (sr *FakeSessionRepo) DeleteSessionsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	var removed int64
	for id, session := range sr.sessions {
		if session.UpdatedAt.Before(cutoff) {
			delete(sr.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored sessions.
func (sr *FakeSessionRepo) Len() int {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	return len(sr.sessions)
}
