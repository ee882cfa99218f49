package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-reddit-auth/internal/errors"
	"github.com/jrsteele09/go-reddit-auth/reddit"
	"github.com/jrsteele09/go-reddit-auth/sessions"
	"github.com/jrsteele09/go-reddit-auth/users"
	"github.com/rs/zerolog/log"
)

// TokenBroker acquires Reddit tokens for a session and builds authorize URLs.
type TokenBroker interface {
	Acquire(ctx context.Context, sess *sessions.Session, code string, forceRefresh bool) (string, error)
	AuthCodeURL(state string) string
}

// IdentityFetcher fetches the Reddit identity of a session's user.
type IdentityFetcher interface {
	Me(ctx context.Context, sess *sessions.Session) (*reddit.Identity, bool)
}

// IdentityResolver maps a Reddit username onto a local user.
type IdentityResolver interface {
	Resolve(ctx context.Context, username string) (*users.User, error)
}

// Repos holds all repository dependencies for the LoginService
type Repos struct {
	Users    users.UserRepo // Repository for local users
	Sessions sessions.Repo  // Repository for browser sessions
}

// LoginService runs the Reddit sign-in flow: it hands out authorize URLs,
// validates the callback and logs the resolved local user into the session.
type LoginService struct {
	repos    Repos
	broker   TokenBroker
	identity IdentityFetcher
	resolver IdentityResolver
	nowTime  func() time.Time // nowTime function (injectable for testing)
	newID    func() string
}

// LoginServiceOption defines a function type to modify the LoginService instance.
type LoginServiceOption func(*LoginService)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) LoginServiceOption {
	return func(ls *LoginService) {
		ls.nowTime = nowFunc
	}
}

// WithIDGenerator sets the generator for state values and session IDs (primarily for testing)
func WithIDGenerator(newID func() string) LoginServiceOption {
	return func(ls *LoginService) {
		ls.newID = newID
	}
}

func NewLoginService(repos Repos, broker TokenBroker, identity IdentityFetcher, resolver IdentityResolver, opts ...LoginServiceOption) *LoginService {
	ls := &LoginService{
		repos:    repos,
		broker:   broker,
		identity: identity,
		resolver: resolver,
		nowTime:  time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(ls)
	}
	return ls
}

// AuthorizationURL starts a login attempt: it stores a fresh state value in
// the session, replacing any earlier one, and returns the Reddit authorize URL.
func (ls *LoginService) AuthorizationURL(ctx context.Context, sess *sessions.Session) (string, error) {
	sess.OAuthState = ls.newID()
	if err := ls.save(ctx, sess); err != nil {
		return "", fmt.Errorf("[LoginService AuthorizationURL] %w", err)
	}
	return ls.broker.AuthCodeURL(sess.OAuthState), nil
}

// IsValidState reports whether state is non-empty and exactly matches the
// value stored in the session.
func IsValidState(sess *sessions.Session, state string) bool {
	return state != "" && sess.OAuthState != "" && state == sess.OAuthState
}

// HandleCallback completes a login from Reddit's redirect. On success the
// session is logged in as the returned user. Failures are one of the callback
// errors in internal/errors; none of them are retried.
func (ls *LoginService) HandleCallback(ctx context.Context, sess *sessions.Session, params CallbackParameters) (*users.User, error) {
	if params.Error != "" {
		return nil, &errors.ProviderError{Code: params.Error}
	}

	if !IsValidState(sess, params.State) {
		return nil, errors.ErrStateMismatch
	}
	// The state is single use, even when the rest of the callback fails.
	sess.OAuthState = ""
	if err := ls.save(ctx, sess); err != nil {
		return nil, fmt.Errorf("[LoginService HandleCallback] %w", err)
	}

	if params.Code == "" {
		return nil, errors.ErrMissingAuthorization
	}
	if _, err := ls.broker.Acquire(ctx, sess, params.Code, false); err != nil {
		return nil, errors.Wrapf(errors.ErrNoToken, "[LoginService HandleCallback] %v", err)
	}

	identity, ok := ls.identity.Me(ctx, sess)
	if !ok {
		return nil, errors.ErrIdentityUnavailable
	}
	log.Info().Str("session_id", sess.ID).Str("username", identity.Name).Msg("reddit identity received")

	user, err := ls.resolver.Resolve(ctx, identity.Name)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrLocalAuthDenied, "[LoginService HandleCallback] resolve %q: %v", identity.Name, err)
	}
	if user == nil {
		return nil, errors.ErrLocalAuthDenied
	}
	if !user.Active {
		return nil, errors.Wrapf(errors.ErrLocalAuthDenied, "[LoginService HandleCallback] user %q is inactive", user.Username)
	}

	if err := ls.login(ctx, sess, user); err != nil {
		return nil, err
	}
	log.Info().Str("session_id", sess.ID).Str("user_id", user.ID).Str("username", user.Username).Msg("user logged in")
	return user, nil
}

// login attaches user to the session under a new session ID, so an ID seen
// before authentication is not valid after it.
func (ls *LoginService) login(ctx context.Context, sess *sessions.Session, user *users.User) error {
	previousID := sess.ID
	sess.ID = ls.newID()
	sess.UserID = user.ID
	sess.CreatedAt = ls.nowTime().UTC()

	if err := ls.save(ctx, sess); err != nil {
		return fmt.Errorf("[LoginService login] %w", err)
	}
	if previousID != "" {
		if err := ls.repos.Sessions.Delete(ctx, previousID); err != nil {
			log.Err(err).Str("session_id", previousID).Msg("failed to delete pre-login session")
		}
	}
	if err := ls.repos.Users.SetLastLogin(ctx, user.ID, ls.nowTime().UTC()); err != nil {
		log.Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	}
	return nil
}

// Logout removes the session and every token and state value it held.
// Nothing is revoked at Reddit.
func (ls *LoginService) Logout(ctx context.Context, sess *sessions.Session) error {
	id := sess.ID
	*sess = sessions.Session{}
	if id == "" {
		return nil
	}
	if err := ls.repos.Sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("[LoginService Logout] delete session %s: %w", id, err)
	}
	return nil
}

// CurrentUser returns the user logged into the session.
func (ls *LoginService) CurrentUser(ctx context.Context, sess *sessions.Session) (*users.User, error) {
	if !sess.IsAuthenticated() {
		return nil, errors.ErrUserNotFound
	}
	user, err := ls.repos.Users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("[LoginService CurrentUser] %w", err)
	}
	if !user.Active {
		return nil, errors.ErrLocalAuthDenied
	}
	return user, nil
}

func (ls *LoginService) save(ctx context.Context, sess *sessions.Session) error {
	sess.UpdatedAt = ls.nowTime().UTC()
	if err := ls.repos.Sessions.Upsert(ctx, sess); err != nil {
		return fmt.Errorf("store session %s: %w", sess.ID, err)
	}
	return nil
}
