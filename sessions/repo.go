package sessions

import (
	"context"
	"time"
)

// Repo defines the interface for session storage operations.
type Repo interface {
	// Get retrieves a session by ID. Implementations return errors.ErrSessionNotFound
	// when no session exists.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Upsert creates or replaces a session
	Upsert(ctx context.Context, session *Session) error

	// Delete removes a session by ID. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error
}

// Pruner removes sessions that have not been written since cutoff and reports
// how many were dropped.
type Pruner interface {
	DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
