package server

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	AppName      string
	AuthorizeURL string // Reddit authorize URL carrying this session's fresh state
}

// LoginPageHandler starts a login attempt (GET /auth/login). Each visit
// replaces the session's state, so only the most recent link can complete.
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFromContext(r.Context())

		authorizeURL, err := s.login.AuthorizationURL(r.Context(), sess)
		if err != nil {
			log.Err(err).Str("session_id", sess.ID).Msg("failed to start login")
			http.Error(w, "Failed to start login", http.StatusInternalServerError)
			return
		}
		if err := s.SetSessionCookie(w, r, sess); err != nil {
			log.Err(err).Str("session_id", sess.ID).Msg("failed to set session cookie")
			http.Error(w, "Failed to start login", http.StatusInternalServerError)
			return
		}

		renderPage(w, "login.html", LoginPageData{
			AppName:      s.config.GetAppName(),
			AuthorizeURL: authorizeURL,
		})
	}
}
