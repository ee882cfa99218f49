package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/jrsteele09/go-reddit-auth/reddit"
	"github.com/jrsteele09/go-reddit-auth/users"
	"github.com/rs/zerolog/log"
)

// MeResponse is the JSON body of GET /me.
type MeResponse struct {
	User        *users.User        `json:"user"`
	Identity    *reddit.Identity   `json:"identity,omitempty"`
	Karma       []reddit.Karma     `json:"karma,omitempty"`
	Trophies    []reddit.Trophy    `json:"trophies,omitempty"`
	Subscribed  []reddit.Subreddit `json:"subscribed,omitempty"`
	Contributor []reddit.Subreddit `json:"contributor,omitempty"`
	Moderated   []reddit.Subreddit `json:"moderated,omitempty"`
}

// MeHandler shows the logged-in user with their live Reddit identity, trophies
// and subreddits. Reddit failures leave the remote parts out instead of failing
// the page. ?limit=N caps the subscribed list.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFromContext(r.Context())

		user, err := s.login.CurrentUser(r.Context(), sess)
		if err != nil {
			log.Warn().Err(err).Str("session_id", sess.ID).Msg("session user unavailable")
			http.Redirect(w, r, RouteAuthLogin, http.StatusSeeOther)
			return
		}

		resp := MeResponse{User: user}
		if identity, ok := s.reddit.Me(r.Context(), sess); ok {
			resp.Identity = identity
		}
		if karma, ok := s.reddit.KarmaBreakdown(r.Context(), sess); ok {
			resp.Karma = karma
		}
		if trophies, ok := s.reddit.Trophies(r.Context(), sess); ok {
			resp.Trophies = trophies
		}
		if subscribed, ok := s.reddit.SubscribedSubreddits(r.Context(), sess, subredditLimit(r)); ok {
			resp.Subscribed = subscribed
		}
		if contributor, ok := s.reddit.ContributorSubreddits(r.Context(), sess); ok {
			resp.Contributor = contributor
		}
		if moderated, ok := s.reddit.ModeratorSubreddits(r.Context(), sess); ok {
			resp.Moderated = moderated
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Err(err).Msg("failed to encode /me response")
		}
	}
}

// subredditLimit reads ?limit=, falling back to one page for absent or bad values.
func subredditLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return reddit.DefaultPageSize
	}
	return limit
}
