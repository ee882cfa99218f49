package server

import (
	"net/http"

	"github.com/jrsteele09/go-reddit-auth/auth"
	"github.com/jrsteele09/go-reddit-auth/internal/errors"
	"github.com/rs/zerolog/log"
)

// OAuthCallbackHandler completes a login from Reddit's redirect
// (GET /auth/callback). Every failure ends in the same error redirect; the
// kind is only logged.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFromContext(r.Context())
		params := auth.ParseCallbackParameters(r.URL.Query())

		user, err := s.login.HandleCallback(r.Context(), sess, params)
		if err != nil {
			event := log.Warn()
			if errors.Is(err, errors.ErrLocalAuthDenied) {
				event = log.Info()
			}
			event.Err(err).Str("session_id", sess.ID).Msg("reddit login failed")
			s.redirectWithError(w, r)
			return
		}

		// The login moved the session to a new ID.
		if err := s.SetSessionCookie(w, r, sess); err != nil {
			log.Err(err).Str("session_id", sess.ID).Msg("failed to set session cookie")
			s.redirectWithError(w, r)
			return
		}
		log.Info().Str("user_id", user.ID).Msg("login complete")
		redirectSuccess(w, r, s.config.GetSuccessRedirect())
	}
}

// LogoutHandler clears the session and its tokens (GET /auth/logout).
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFromContext(r.Context())
		if err := s.login.Logout(r.Context(), sess); err != nil {
			log.Err(err).Msg("failed to delete session on logout")
		}
		s.ClearSessionCookie(w, r)
		redirectSuccess(w, r, RouteIndex)
	}
}
