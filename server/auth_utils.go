package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-reddit-auth/internal/errors"
	"github.com/jrsteele09/go-reddit-auth/sessions"
	"github.com/rs/zerolog/log"
)

// sessionCookieName carries a signed token naming the browser's session.
const sessionCookieName = "reddit_session"

type contextKey string

const contextKeySession contextKey = "session"

// sessionFromContext returns the session loaded by SessionMiddleware.
func sessionFromContext(ctx context.Context) *sessions.Session {
	sess, _ := ctx.Value(contextKeySession).(*sessions.Session)
	return sess
}

// SessionMiddleware attaches the caller's session to the request context.
// A missing, forged or expired cookie, or one naming a deleted session,
// yields a fresh unsaved session.
func (s *Server) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := s.loadSession(r)
		ctx := context.WithValue(r.Context(), contextKeySession, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireLogin redirects anonymous sessions to the login page.
func (s *Server) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFromContext(r.Context())
		if sess == nil || !sess.IsAuthenticated() {
			http.Redirect(w, r, RouteAuthLogin, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loadSession(r *http.Request) *sessions.Session {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		id, err := s.parseSessionToken(cookie.Value)
		if err != nil {
			log.Debug().Err(err).Msg("ignoring invalid session cookie")
		} else {
			sess, err := s.sessions.Get(r.Context(), id)
			if err == nil {
				return sess
			}
			if !errors.Is(err, errors.ErrSessionNotFound) {
				log.Err(err).Str("session_id", id).Msg("failed to load session")
			}
		}
	}
	return sessions.New(s.newID(), s.nowTime().UTC())
}

func (s *Server) signSessionToken(sessionID string) (string, error) {
	now := s.nowTime()
	claims := jwt.RegisteredClaims{
		ID:        sessionID,
		Issuer:    s.config.GetAppName(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.config.GetMaxSessionAge())),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.GetSessionSecret())
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func (s *Server) parseSessionToken(value string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(value, claims,
		func(*jwt.Token) (interface{}, error) { return s.config.GetSessionSecret(), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.config.GetAppName()),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.nowTime),
	)
	if err != nil {
		return "", err
	}
	if claims.ID == "" {
		return "", fmt.Errorf("session token has no id")
	}
	return claims.ID, nil
}

// SetSessionCookie points the browser at sess. It must run before the
// response body is written.
func (s *Server) SetSessionCookie(w http.ResponseWriter, r *http.Request, sess *sessions.Session) error {
	token, err := s.signSessionToken(sess.ID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.config.GetMaxSessionAge() / time.Second),
	})
	return nil
}

func (s *Server) ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// secureCookies reports whether the session cookie needs the Secure flag:
// either the request arrived over https or the app is published on https.
func (s *Server) secureCookies(r *http.Request) bool {
	if getScheme(r) == "https" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(s.config.GetBaseURL()), "https://")
}

// redirectWithError sends the browser to the configured error destination.
// Failure kinds are not distinguished to the user.
func (s *Server) redirectWithError(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.config.GetErrorRedirect(), http.StatusSeeOther)
}

func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if path == "" {
		path = RouteIndex
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// loginErrorMessage is the message the index page shows after a failed login.
func loginErrorMessage(query url.Values) string {
	if query.Get("login") == "error" {
		return "Sign in with Reddit failed. Please try again."
	}
	return ""
}
