package token_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-reddit-auth/internal/config"
	"github.com/jrsteele09/go-reddit-auth/internal/errors"
	"github.com/jrsteele09/go-reddit-auth/sessions"
	fakesessionrepo "github.com/jrsteele09/go-reddit-auth/sessions/repofakes"
	"github.com/jrsteele09/go-reddit-auth/token"
	"github.com/stretchr/testify/require"
)

const (
	testClientID     = "test-client"
	testClientSecret = "test-secret"
	testRedirectURI  = "http://localhost:8080/auth/callback"
	testSessionID    = "session-1"
)

// tokenEndpoint is a fake Reddit token endpoint that records every request.
type tokenEndpoint struct {
	server   *httptest.Server
	lock     sync.Mutex
	requests []url.Values
	status   int
	body     map[string]any
}

func newTokenEndpoint(t *testing.T) *tokenEndpoint {
	t.Helper()
	te := &tokenEndpoint{
		status: http.StatusOK,
		body: map[string]any{
			"access_token":  "access-new",
			"refresh_token": "refresh-new",
			"token_type":    "bearer",
			"expires_in":    3600,
			"scope":         "identity,read",
		},
	}
	te.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, secret, ok := r.BasicAuth()
		if !ok || id != testClientID || secret != testClientSecret {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		te.lock.Lock()
		te.requests = append(te.requests, r.PostForm)
		status, body := te.status, te.body
		te.lock.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(te.server.Close)
	return te
}

func (te *tokenEndpoint) calls() []url.Values {
	te.lock.Lock()
	defer te.lock.Unlock()
	return append([]url.Values(nil), te.requests...)
}

func (te *tokenEndpoint) respond(status int, body map[string]any) {
	te.lock.Lock()
	defer te.lock.Unlock()
	te.status, te.body = status, body
}

func testConfig(tokenURL string) config.OAuth {
	return config.OAuth{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		RedirectURI:  testRedirectURI,
		AuthURL:      "https://ssl.reddit.com/api/v1/authorize",
		TokenURL:     tokenURL,
		Duration:     "permanent",
		Scope:        "identity,mysubreddits",
		UserAgent:    "test-agent",
	}
}

func fixedClock(unix int64) func() time.Time {
	return func() time.Time { return time.Unix(unix, 0) }
}

func newBroker(t *testing.T, te *tokenEndpoint, now int64) (*token.Broker, *fakesessionrepo.FakeSessionRepo) {
	t.Helper()
	repo := fakesessionrepo.NewFakeSessionRepo()
	b := token.NewBroker(testConfig(te.server.URL), repo,
		token.WithClock(fixedClock(now)),
		token.WithHTTPClient(te.server.Client()),
	)
	return b, repo
}

func TestDecide(t *testing.T) {
	now := time.Unix(1000, 0)
	fresh := sessions.Tokens{AccessToken: "A", RefreshToken: "R", Expires: 2000}
	stale := sessions.Tokens{AccessToken: "A", RefreshToken: "R", Expires: 500}

	tests := []struct {
		name   string
		tokens sessions.Tokens
		code   string
		force  bool
		want   token.Action
	}{
		{"empty with code", sessions.Tokens{}, "C", false, token.ActionExchangeCode},
		{"stale with code beats refresh", stale, "C", true, token.ActionExchangeCode},
		{"fresh with code reuses cache", fresh, "C", false, token.ActionUseCached},
		{"fresh forced with code refreshes", fresh, "C", true, token.ActionRefresh},
		{"stale refreshes", stale, "", false, token.ActionRefresh},
		{"fresh forced refreshes", fresh, "", true, token.ActionRefresh},
		{"fresh reuses cache", fresh, "", false, token.ActionUseCached},
		{"forced without refresh token reuses cache", sessions.Tokens{AccessToken: "A", Expires: 2000}, "", true, token.ActionUseCached},
		{"stale without refresh token fails", sessions.Tokens{AccessToken: "A", Expires: 500}, "", false, token.ActionFail},
		{"empty fails", sessions.Tokens{}, "", false, token.ActionFail},
		{"zero expiry is stale", sessions.Tokens{AccessToken: "A"}, "", false, token.ActionFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, token.Decide(tt.tokens, tt.code, tt.force, now))
		})
	}
}

func TestBroker_Acquire(t *testing.T) {
	ctx := context.Background()

	t.Run("cached token makes no network call", func(t *testing.T) {
		te := newTokenEndpoint(t)
		b, _ := newBroker(t, te, 1000)
		sess := &sessions.Session{ID: testSessionID, Tokens: sessions.Tokens{
			AccessToken: "cached", RefreshToken: "R", TokenType: "bearer", Expires: 5000, Scope: "identity",
		}}
		before := sess.Tokens

		for i := 0; i < 3; i++ {
			tok, err := b.Acquire(ctx, sess, "", false)
			require.NoError(t, err)
			require.Equal(t, "cached", tok)
		}
		require.Empty(t, te.calls())
		require.Equal(t, before, sess.Tokens)
	})

	t.Run("stale refresh scenario", func(t *testing.T) {
		te := newTokenEndpoint(t)
		b, repo := newBroker(t, te, 200)
		sess := &sessions.Session{ID: testSessionID, Tokens: sessions.Tokens{Expires: 100, RefreshToken: "R"}}

		tok, err := b.Acquire(ctx, sess, "", false)
		require.NoError(t, err)
		require.Equal(t, "access-new", tok)

		calls := te.calls()
		require.Len(t, calls, 1)
		require.Equal(t, "refresh_token", calls[0].Get("grant_type"))
		require.Equal(t, "R", calls[0].Get("refresh_token"))

		require.Equal(t, int64(200+3600), sess.Tokens.Expires)
		require.Equal(t, "R", sess.Tokens.RefreshToken, "refresh token is not rotated")
		require.Equal(t, "bearer", sess.Tokens.TokenType)
		require.Equal(t, "identity,read", sess.Tokens.Scope)

		stored, err := repo.Get(ctx, testSessionID)
		require.NoError(t, err)
		require.Equal(t, sess.Tokens, stored.Tokens)
	})

	t.Run("authorization code exchange", func(t *testing.T) {
		te := newTokenEndpoint(t)
		b, _ := newBroker(t, te, 1000)
		sess := &sessions.Session{ID: testSessionID}

		tok, err := b.Acquire(ctx, sess, "the-code", false)
		require.NoError(t, err)
		require.Equal(t, "access-new", tok)

		calls := te.calls()
		require.Len(t, calls, 1)
		require.Equal(t, "authorization_code", calls[0].Get("grant_type"))
		require.Equal(t, "the-code", calls[0].Get("code"))
		require.Equal(t, testRedirectURI, calls[0].Get("redirect_uri"))

		require.Equal(t, sessions.Tokens{
			AccessToken:  "access-new",
			RefreshToken: "refresh-new",
			TokenType:    "bearer",
			Expires:      1000 + 3600,
			Scope:        "identity,read",
		}, sess.Tokens)
	})

	t.Run("failed code exchange keeps prior state", func(t *testing.T) {
		te := newTokenEndpoint(t)
		te.respond(http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
		b, _ := newBroker(t, te, 1000)
		prior := sessions.Tokens{AccessToken: "old", RefreshToken: "R", TokenType: "bearer", Expires: 10, Scope: "identity"}
		sess := &sessions.Session{ID: testSessionID, Tokens: prior}

		_, err := b.Acquire(ctx, sess, "bad-code", false)
		require.Error(t, err)
		require.True(t, errors.Is(err, errors.ErrTokenExchange))
		require.Equal(t, prior, sess.Tokens)
		require.Len(t, te.calls(), 1)
	})

	t.Run("no token anywhere clears every field", func(t *testing.T) {
		te := newTokenEndpoint(t)
		b, repo := newBroker(t, te, 1000)
		sess := &sessions.Session{ID: testSessionID, OAuthState: "keep", Tokens: sessions.Tokens{
			AccessToken: "expired", TokenType: "bearer", Expires: 999, Scope: "identity",
		}}

		tok, err := b.Acquire(ctx, sess, "", false)
		require.ErrorIs(t, err, errors.ErrNoToken)
		require.Empty(t, tok)
		require.Equal(t, sessions.Tokens{}, sess.Tokens)
		require.Equal(t, "keep", sess.OAuthState)
		require.Empty(t, te.calls())

		stored, err := repo.Get(ctx, testSessionID)
		require.NoError(t, err)
		require.Equal(t, sessions.Tokens{}, stored.Tokens)
	})

	t.Run("failed forced refresh keeps fresh token", func(t *testing.T) {
		te := newTokenEndpoint(t)
		te.respond(http.StatusUnauthorized, map[string]any{"error": "invalid_token"})
		b, _ := newBroker(t, te, 1000)
		sess := &sessions.Session{ID: testSessionID, Tokens: sessions.Tokens{AccessToken: "A", RefreshToken: "R", Expires: 5000}}

		tok, err := b.Acquire(ctx, sess, "", true)
		require.NoError(t, err)
		require.Equal(t, "A", tok)
		require.Len(t, te.calls(), 1)
	})

	t.Run("rejected refresh of stale token clears record", func(t *testing.T) {
		te := newTokenEndpoint(t)
		te.respond(http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
		b, repo := newBroker(t, te, 1000)
		sess := &sessions.Session{ID: testSessionID, Tokens: sessions.Tokens{AccessToken: "A", RefreshToken: "R", Expires: 10}}

		_, err := b.Acquire(ctx, sess, "", false)
		require.ErrorIs(t, err, errors.ErrNoToken)
		require.Equal(t, sessions.Tokens{}, sess.Tokens)

		stored, err := repo.Get(ctx, testSessionID)
		require.NoError(t, err)
		require.Equal(t, sessions.Tokens{}, stored.Tokens)
	})

	t.Run("token endpoint outage keeps refresh token", func(t *testing.T) {
		te := newTokenEndpoint(t)
		b, repo := newBroker(t, te, 1000)
		staleTokens := sessions.Tokens{AccessToken: "A", RefreshToken: "R", Expires: 10}
		require.NoError(t, repo.Upsert(ctx, &sessions.Session{ID: testSessionID, Tokens: staleTokens}))

		for _, status := range []int{http.StatusInternalServerError, http.StatusServiceUnavailable, http.StatusTooManyRequests} {
			te.respond(status, map[string]any{})
			sess := &sessions.Session{ID: testSessionID, Tokens: staleTokens}

			tok, err := b.Acquire(ctx, sess, "", false)
			require.ErrorIs(t, err, errors.ErrNoToken, "status %d", status)
			require.Empty(t, tok)
			require.Equal(t, staleTokens, sess.Tokens, "status %d", status)

			stored, err := repo.Get(ctx, testSessionID)
			require.NoError(t, err)
			require.Equal(t, "R", stored.Tokens.RefreshToken, "status %d", status)
		}

		// Once the endpoint recovers the kept refresh token is used again.
		te.respond(http.StatusOK, map[string]any{"access_token": "A2", "token_type": "bearer", "expires_in": 3600})
		sess := &sessions.Session{ID: testSessionID, Tokens: staleTokens}
		tok, err := b.Acquire(ctx, sess, "", false)
		require.NoError(t, err)
		require.Equal(t, "A2", tok)
		require.Equal(t, "R", te.calls()[len(te.calls())-1].Get("refresh_token"))
	})

	t.Run("unreachable token endpoint keeps refresh token", func(t *testing.T) {
		te := newTokenEndpoint(t)
		b, repo := newBroker(t, te, 1000)
		te.server.Close()
		staleTokens := sessions.Tokens{AccessToken: "A", RefreshToken: "R", Expires: 10}
		sess := &sessions.Session{ID: testSessionID, Tokens: staleTokens}

		_, err := b.Acquire(ctx, sess, "", false)
		require.ErrorIs(t, err, errors.ErrNoToken)
		require.Equal(t, staleTokens, sess.Tokens)
		require.Equal(t, 0, repo.Len())
	})

	t.Run("response without expires_in is rejected", func(t *testing.T) {
		te := newTokenEndpoint(t)
		te.respond(http.StatusOK, map[string]any{"access_token": "A", "token_type": "bearer"})
		b, _ := newBroker(t, te, 1000)
		sess := &sessions.Session{ID: testSessionID}

		_, err := b.Acquire(ctx, sess, "code", false)
		require.ErrorIs(t, err, errors.ErrTokenExchange)
		require.Equal(t, sessions.Tokens{}, sess.Tokens)
	})

	t.Run("response without access_token is rejected", func(t *testing.T) {
		te := newTokenEndpoint(t)
		te.respond(http.StatusOK, map[string]any{"token_type": "bearer", "expires_in": 3600})
		b, _ := newBroker(t, te, 1000)
		sess := &sessions.Session{ID: testSessionID}

		_, err := b.Acquire(ctx, sess, "code", false)
		require.ErrorIs(t, err, errors.ErrTokenExchange)
	})
}

func TestBroker_AuthCodeURL(t *testing.T) {
	te := newTokenEndpoint(t)
	b, _ := newBroker(t, te, 1000)

	raw := b.AuthCodeURL("state-123")
	u, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "ssl.reddit.com", u.Host)
	require.Equal(t, "/api/v1/authorize", u.Path)

	q := u.Query()
	require.Equal(t, testClientID, q.Get("client_id"))
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "state-123", q.Get("state"))
	require.Equal(t, testRedirectURI, q.Get("redirect_uri"))
	require.Equal(t, "permanent", q.Get("duration"))
	require.Equal(t, "identity,mysubreddits", q.Get("scope"))
}
