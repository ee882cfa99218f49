package users_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jrsteele09/go-reddit-auth/users"
	fakeuserrepo "github.com/jrsteele09/go-reddit-auth/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestMapper_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("creates unknown user and runs hook", func(t *testing.T) {
		repo := fakeuserrepo.NewFakeUserRepo()
		m := users.NewMapper(repo, users.GrantPermissions("view", "comment"))

		user, err := m.Resolve(ctx, "  spez ")
		require.NoError(t, err)
		require.Equal(t, "spez", user.Username)
		require.True(t, user.Active)
		require.Equal(t, []users.Permission{"view", "comment"}, user.Permissions)

		stored, err := repo.GetByUsername(ctx, "spez")
		require.NoError(t, err)
		require.Equal(t, user.ID, stored.ID)
		require.Equal(t, user.Permissions, stored.Permissions)
	})

	t.Run("existing user skips hook", func(t *testing.T) {
		repo := fakeuserrepo.NewFakeUserRepo()
		existing, _, err := repo.GetOrCreate(ctx, "kn0thing", nil)
		require.NoError(t, err)

		calls := 0
		m := users.NewMapper(repo, func(context.Context, *users.User) error {
			calls++
			return nil
		})

		user, err := m.Resolve(ctx, "kn0thing")
		require.NoError(t, err)
		require.Equal(t, existing.ID, user.ID)
		require.Zero(t, calls)
	})

	t.Run("empty username", func(t *testing.T) {
		m := users.NewMapper(fakeuserrepo.NewFakeUserRepo(), nil)
		_, err := m.Resolve(ctx, " ")
		require.Error(t, err)
	})

	t.Run("hook failure", func(t *testing.T) {
		m := users.NewMapper(fakeuserrepo.NewFakeUserRepo(), func(context.Context, *users.User) error {
			return errors.New("boom")
		})
		_, err := m.Resolve(ctx, "newbie")
		require.Error(t, err)
		require.Contains(t, err.Error(), "boom")
	})

	t.Run("hook failure leaves no user and the next login retries it", func(t *testing.T) {
		repo := fakeuserrepo.NewFakeUserRepo()
		calls := 0
		m := users.NewMapper(repo, func(_ context.Context, u *users.User) error {
			calls++
			if calls == 1 {
				return errors.New("boom")
			}
			u.Grant("view")
			return nil
		})

		_, err := m.Resolve(ctx, "newbie")
		require.Error(t, err)
		require.Zero(t, repo.Count())

		user, err := m.Resolve(ctx, "newbie")
		require.NoError(t, err)
		require.Equal(t, 2, calls)
		require.Equal(t, []users.Permission{"view"}, user.Permissions)

		stored, err := repo.GetByUsername(ctx, "newbie")
		require.NoError(t, err)
		require.Equal(t, []users.Permission{"view"}, stored.Permissions)
	})
}

func TestMapper_ResolveConcurrentFirstLogin(t *testing.T) {
	ctx := context.Background()
	repo := fakeuserrepo.NewFakeUserRepo()

	var hookCalls int
	var hookLock sync.Mutex
	m := users.NewMapper(repo, func(_ context.Context, u *users.User) error {
		hookLock.Lock()
		hookCalls++
		hookLock.Unlock()
		u.Grant("view", "comment")
		return nil
	})

	const callers = 8
	results := make([]*users.User, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.Resolve(ctx, "racer")
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, repo.Count())
	require.Equal(t, 1, hookCalls)
	for i, u := range results {
		require.NoError(t, errs[i])
		require.Equal(t, results[0].ID, u.ID)
		require.Equal(t, []users.Permission{"view", "comment"}, u.Permissions, "caller %d", i)
	}
}

func TestUser_Grant(t *testing.T) {
	u := &users.User{}
	u.Grant("view", "view", "", "mod")
	require.Equal(t, []users.Permission{"view", "mod"}, u.Permissions)
	require.True(t, u.HasPermission("mod"))
	require.False(t, u.HasPermission("admin"))
}
