package users

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// PostCreateHook configures a user created by its first remote login. It runs
// before the user is stored, so its changes are persisted together with the
// new record and a failure leaves no user behind.
type PostCreateHook func(ctx context.Context, user *User) error

// GrantPermissions returns a hook that grants perms to new users.
func GrantPermissions(perms ...Permission) PostCreateHook {
	return func(_ context.Context, user *User) error {
		user.Grant(perms...)
		return nil
	}
}

// Mapper turns a verified remote username into a local user.
type Mapper struct {
	repo       UserRepo
	postCreate PostCreateHook
}

// NewMapper creates a Mapper. A nil hook leaves new users as created.
func NewMapper(repo UserRepo, hook PostCreateHook) *Mapper {
	return &Mapper{repo: repo, postCreate: hook}
}

// Resolve looks up the local user for username, creating it if absent.
func (m *Mapper) Resolve(ctx context.Context, username string) (*User, error) {
	username = CleanUsername(username)
	if username == "" {
		return nil, fmt.Errorf("[Mapper Resolve] empty username")
	}

	user, created, err := m.repo.GetOrCreate(ctx, username, m.postCreate)
	if err != nil {
		return nil, fmt.Errorf("[Mapper Resolve] get or create %q: %w", username, err)
	}
	if created {
		log.Info().Str("username", username).Str("user_id", user.ID).Msg("local user created")
	} else {
		log.Debug().Str("username", username).Str("user_id", user.ID).Msg("local user found")
	}
	return user, nil
}
