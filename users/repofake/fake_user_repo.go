package fakeuserrepo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-reddit-auth/internal/errors"
	"github.com/jrsteele09/go-reddit-auth/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users       map[string]*users.User
	usernameIds map[string]string // username to user id
	lock        sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:       make(map[string]*users.User),
		usernameIds: make(map[string]string),
	}
}

func (ur *FakeUserRepo) GetOrCreate(ctx context.Context, username string, configure users.PostCreateHook) (*users.User, bool, error) {
	if username == "" {
		return nil, false, errors.New("username is required")
	}

	ur.lock.Lock()
	defer ur.lock.Unlock()

	if id, ok := ur.usernameIds[username]; ok {
		return copyUser(ur.users[id]), false, nil
	}

	user := &users.User{
		ID:         uuid.New().String(),
		Username:   username,
		Active:     true,
		DateJoined: time.Now().UTC(),
	}
	if configure != nil {
		if err := configure(ctx, user); err != nil {
			return nil, false, err
		}
		// The hook may not rename or re-key the user.
		user.Username = username
	}
	ur.users[user.ID] = user
	ur.usernameIds[username] = user.ID
	return copyUser(user), true, nil
}

func (ur *FakeUserRepo) Upsert(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if id, ok := ur.usernameIds[user.Username]; ok && id != user.ID {
		return errors.Wrapf(errors.New("username taken"), "upsert %s", user.Username)
	}
	ur.users[user.ID] = copyUser(user)
	ur.usernameIds[user.Username] = user.ID
	return nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	return copyUser(user), nil
}

func (ur *FakeUserRepo) GetByUsername(_ context.Context, username string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.usernameIds[username]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	return copyUser(ur.users[id]), nil
}

func (ur *FakeUserRepo) SetActive(_ context.Context, id string, active bool) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[id]
	if !ok {
		return errors.ErrUserNotFound
	}
	user.Active = active
	return nil
}

func (ur *FakeUserRepo) SetLastLogin(_ context.Context, id string, at time.Time) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[id]
	if !ok {
		return errors.ErrUserNotFound
	}
	user.LastLogin = at
	return nil
}

// Count returns the number of stored users.
func (ur *FakeUserRepo) Count() int {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return len(ur.users)
}

func copyUser(u *users.User) *users.User {
	c := *u
	c.Permissions = append([]users.Permission(nil), u.Permissions...)
	return &c
}
