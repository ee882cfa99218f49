package token

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/go-reddit-auth/internal/config"
	"github.com/jrsteele09/go-reddit-auth/internal/errors"
	"github.com/jrsteele09/go-reddit-auth/internal/transport"
	"github.com/jrsteele09/go-reddit-auth/sessions"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Broker owns the token lifecycle of a session: it exchanges authorization
// codes, refreshes expired access tokens and caches the result in the session.
//
// Concurrent requests on the same session may both refresh. The last write
// wins and both tokens are valid, so this is left unguarded.
type Broker struct {
	oauthConfig *oauth2.Config
	httpClient  *http.Client
	sessions    sessions.Repo
	duration    string
	scopes      []string
	now         func() time.Time
}

type Option func(*Broker)

// WithClock overrides the time source used for expiry calculations.
func WithClock(now func() time.Time) Option {
	return func(b *Broker) { b.now = now }
}

// WithHTTPClient overrides the client used to reach the token endpoint.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Broker) { b.httpClient = c }
}

func NewBroker(cfg config.OAuthConfig, repo sessions.Repo, opts ...Option) *Broker {
	b := &Broker{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.GetClientID(),
			ClientSecret: cfg.GetClientSecret(),
			RedirectURL:  cfg.GetRedirectURI(),
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.GetAuthURL(),
				TokenURL:  cfg.GetTokenURL(),
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: transport.NewClient(cfg.GetUserAgent(), cfg.GetRequestTimeout(), nil),
		sessions:   repo,
		duration:   cfg.GetDuration(),
		scopes:     cfg.GetScopes(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AuthCodeURL builds the Reddit authorize URL for state. Reddit wants the scope
// list comma separated, so it is set directly rather than through Config.Scopes.
func (b *Broker) AuthCodeURL(state string) string {
	return b.oauthConfig.AuthCodeURL(state,
		oauth2.SetAuthURLParam("duration", b.duration),
		oauth2.SetAuthURLParam("scope", strings.Join(b.scopes, ",")),
	)
}

// Acquire returns a usable access token for the session, exchanging code or
// refreshing as Decide dictates. When no fresh access token is left afterwards
// the whole token record is cleared and errors.ErrNoToken is returned, unless
// the refresh failed for a transient reason, in which case the record is kept.
func (b *Broker) Acquire(ctx context.Context, sess *sessions.Session, code string, forceRefresh bool) (string, error) {
	now := b.now()
	action := Decide(sess.Tokens, code, forceRefresh, now)
	var refreshErr error
	log.Debug().Str("session_id", sess.ID).Stringer("action", action).Msg("token decision")

	switch action {
	case ActionExchangeCode:
		tokens, err := b.exchangeCode(ctx, code)
		if err != nil {
			log.Warn().Err(err).Str("session_id", sess.ID).Msg("authorization code exchange failed")
			return "", errors.Wrapf(errors.ErrTokenExchange, "[Broker Acquire] %v", err)
		}
		sess.Tokens = tokens
		log.Info().Str("session_id", sess.ID).Msg("initial access token acquired")

	case ActionRefresh:
		if err := b.refresh(ctx, sess); err != nil {
			// Fall through to whatever is cached.
			log.Warn().Err(err).Str("session_id", sess.ID).Msg("access token refresh failed")
			refreshErr = err
		} else {
			log.Info().Str("session_id", sess.ID).Msg("access token refreshed")
		}

	case ActionUseCached:
		return sess.Tokens.AccessToken, nil
	}

	if sess.Tokens.HasAccessToken() && !sess.Tokens.IsStale(now) {
		if err := b.save(ctx, sess); err != nil {
			return "", err
		}
		return sess.Tokens.AccessToken, nil
	}

	if refreshErr != nil && isTransient(refreshErr) {
		// The refresh token may still be good; the next request retries it.
		log.Warn().Str("session_id", sess.ID).Msg("token endpoint unavailable, keeping refresh token")
		return "", errors.ErrNoToken
	}

	log.Info().Str("session_id", sess.ID).Msg("no access token available, clearing token record")
	sess.ClearTokens()
	if err := b.save(ctx, sess); err != nil {
		return "", err
	}
	return "", errors.ErrNoToken
}

func (b *Broker) exchangeCode(ctx context.Context, code string) (sessions.Tokens, error) {
	tok, err := b.oauthConfig.Exchange(b.clientContext(ctx), code)
	if err != nil {
		return sessions.Tokens{}, fmt.Errorf("authorization_code grant: %w", err)
	}
	return b.toRecord(tok)
}

// refresh mints a new access token. The refresh token itself is kept as is.
func (b *Broker) refresh(ctx context.Context, sess *sessions.Session) error {
	src := b.oauthConfig.TokenSource(b.clientContext(ctx), &oauth2.Token{RefreshToken: sess.Tokens.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return fmt.Errorf("refresh_token grant: %w", err)
	}
	fresh, err := b.toRecord(tok)
	if err != nil {
		return err
	}
	sess.Tokens.AccessToken = fresh.AccessToken
	sess.Tokens.TokenType = fresh.TokenType
	sess.Tokens.Expires = fresh.Expires
	sess.Tokens.Scope = fresh.Scope
	return nil
}

// toRecord validates a token endpoint response. A missing access_token is
// already rejected by oauth2; a missing expires_in is rejected here.
func (b *Broker) toRecord(tok *oauth2.Token) (sessions.Tokens, error) {
	expiresIn, ok := seconds(tok.Extra("expires_in"))
	if !ok || expiresIn <= 0 {
		return sessions.Tokens{}, fmt.Errorf("token response missing expires_in")
	}
	scope, _ := tok.Extra("scope").(string)
	return sessions.Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expires:      b.now().Unix() + expiresIn,
		Scope:        scope,
	}, nil
}

func (b *Broker) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
}

func (b *Broker) save(ctx context.Context, sess *sessions.Session) error {
	sess.UpdatedAt = b.now().UTC()
	if err := b.sessions.Upsert(ctx, sess); err != nil {
		return fmt.Errorf("[Broker Acquire] store session: %w", err)
	}
	return nil
}

// isTransient reports whether a token endpoint failure says nothing about the
// refresh token itself: no response at all, a 5xx or a 429.
func isTransient(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response == nil {
			return true
		}
		code := retrieveErr.Response.StatusCode
		return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func seconds(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}
