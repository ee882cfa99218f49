package users

import (
	"context"
	"time"
)

type UserRepo interface {
	// GetOrCreate returns the user with the given username, creating an active
	// user when none exists. A new user is passed to configure, when non-nil,
	// before it becomes visible; if configure fails nothing is stored. Concurrent
	// callers for the same new username get the same single configured record,
	// and exactly one sees created=true.
	GetOrCreate(ctx context.Context, username string, configure PostCreateHook) (user *User, created bool, err error)
	Upsert(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	SetActive(ctx context.Context, id string, active bool) error
	SetLastLogin(ctx context.Context, id string, at time.Time) error
}
