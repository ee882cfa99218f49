package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-reddit-auth/internal/errors"
	"github.com/jrsteele09/go-reddit-auth/users"
)

var _ users.UserRepo = (*Store)(nil)

const userColumns = `id, username, active, permissions, date_joined, last_login`

// GetOrCreate inserts the username if it is new and reads the row back inside
// one immediate transaction. The UNIQUE constraint on username makes
// concurrent first logins collapse onto one row; only the caller whose insert
// landed sees created=true, and configure runs before that row is committed.
func (s *Store) GetOrCreate(ctx context.Context, username string, configure users.PostCreateHook) (*users.User, bool, error) {
	if username == "" {
		return nil, false, errors.New("username is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin get or create %s: %w", username, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, username, active, permissions, date_joined, last_login)
		 VALUES (?, ?, 1, '[]', ?, 0)
		 ON CONFLICT(username) DO NOTHING`,
		uuid.New().String(), username, toMillis(s.now()),
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert user %s: %w", username, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("insert user %s: %w", username, err)
	}

	user, err := scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err != nil {
		return nil, false, err
	}
	created := affected == 1
	if created && configure != nil {
		if err := configure(ctx, user); err != nil {
			return nil, false, err
		}
		perms, err := json.Marshal(permissionsOrEmpty(user.Permissions))
		if err != nil {
			return nil, false, fmt.Errorf("encode permissions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE users SET active = ?, permissions = ? WHERE id = ?`,
			boolToInt(user.Active), string(perms), user.ID); err != nil {
			return nil, false, fmt.Errorf("configure user %s: %w", username, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit get or create %s: %w", username, err)
	}
	return user, created, nil
}

func (s *Store) Upsert(ctx context.Context, user *users.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	perms, err := json.Marshal(permissionsOrEmpty(user.Permissions))
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   username = excluded.username,
		   active = excluded.active,
		   permissions = excluded.permissions,
		   date_joined = excluded.date_joined,
		   last_login = excluded.last_login`,
		user.ID, user.Username, boolToInt(user.Active), string(perms),
		toMillis(user.DateJoined), toMillis(user.LastLogin),
	)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", user.ID, err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*users.User, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *Store) GetByUsername(ctx context.Context, username string) (*users.User, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (s *Store) SetActive(ctx context.Context, id string, active bool) error {
	return s.updateUser(ctx, id, `UPDATE users SET active = ? WHERE id = ?`, boolToInt(active), id)
}

func (s *Store) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	return s.updateUser(ctx, id, `UPDATE users SET last_login = ? WHERE id = ?`, toMillis(at), id)
}

func (s *Store) updateUser(ctx context.Context, id, query string, args ...any) error {
	res, err := s.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user %s: %w", id, err)
	}
	if affected == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (*users.User, error) {
	var (
		user       users.User
		active     int
		perms      string
		dateJoined int64
		lastLogin  int64
	)
	if err := row.Scan(&user.ID, &user.Username, &active, &perms, &dateJoined, &lastLogin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if err := json.Unmarshal([]byte(perms), &user.Permissions); err != nil {
		return nil, fmt.Errorf("decode permissions for %s: %w", user.ID, err)
	}
	if len(user.Permissions) == 0 {
		user.Permissions = nil
	}
	user.Active = active != 0
	user.DateJoined = fromMillis(dateJoined)
	user.LastLogin = fromMillis(lastLogin)
	return &user, nil
}

func permissionsOrEmpty(perms []users.Permission) []users.Permission {
	if perms == nil {
		return []users.Permission{}
	}
	return perms
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
