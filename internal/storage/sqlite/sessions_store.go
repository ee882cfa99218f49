package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jrsteele09/go-reddit-auth/internal/errors"
	"github.com/jrsteele09/go-reddit-auth/sessions"
)

var _ sessions.Repo = (*SessionStore)(nil)

// SessionStore exposes the sessions table as a sessions.Repo. It shares the
// Store's connection; the method names collide with the user repo otherwise.
type SessionStore struct {
	store *Store
}

// Sessions returns the session repository backed by this store.
func (s *Store) Sessions() *SessionStore {
	return &SessionStore{store: s}
}

func (ss *SessionStore) Get(ctx context.Context, sessionID string) (*sessions.Session, error) {
	row := ss.store.sqlDB.QueryRowContext(ctx,
		`SELECT id, access_token, refresh_token, token_type, expires, scope, oauth_state, user_id, created_at, updated_at
		 FROM sessions WHERE id = ?`, sessionID)

	var (
		sess      sessions.Session
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(
		&sess.ID, &sess.Tokens.AccessToken, &sess.Tokens.RefreshToken, &sess.Tokens.TokenType,
		&sess.Tokens.Expires, &sess.Tokens.Scope, &sess.OAuthState, &sess.UserID, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	sess.CreatedAt = fromMillis(createdAt)
	sess.UpdatedAt = fromMillis(updatedAt)
	return &sess, nil
}

func (ss *SessionStore) Upsert(ctx context.Context, sess *sessions.Session) error {
	if sess.ID == "" {
		return errors.New("session id is required")
	}
	_, err := ss.store.sqlDB.ExecContext(ctx,
		`INSERT INTO sessions (id, access_token, refresh_token, token_type, expires, scope, oauth_state, user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   access_token = excluded.access_token,
		   refresh_token = excluded.refresh_token,
		   token_type = excluded.token_type,
		   expires = excluded.expires,
		   scope = excluded.scope,
		   oauth_state = excluded.oauth_state,
		   user_id = excluded.user_id,
		   created_at = excluded.created_at,
		   updated_at = excluded.updated_at`,
		sess.ID, sess.Tokens.AccessToken, sess.Tokens.RefreshToken, sess.Tokens.TokenType,
		sess.Tokens.Expires, sess.Tokens.Scope, sess.OAuthState, sess.UserID,
		toMillis(sess.CreatedAt), toMillis(sess.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", sess.ID, err)
	}
	return nil
}

func (ss *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := ss.store.sqlDB.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}
