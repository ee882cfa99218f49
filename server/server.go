package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-reddit-auth/auth"
	"github.com/jrsteele09/go-reddit-auth/internal/config"
	"github.com/jrsteele09/go-reddit-auth/reddit"
	"github.com/jrsteele09/go-reddit-auth/sessions"
	"github.com/jrsteele09/go-reddit-auth/users"
	"github.com/rs/zerolog/log"
)

// LoginFlow is the sign-in flow the HTTP handlers drive.
type LoginFlow interface {
	AuthorizationURL(ctx context.Context, sess *sessions.Session) (string, error)
	HandleCallback(ctx context.Context, sess *sessions.Session, params auth.CallbackParameters) (*users.User, error)
	Logout(ctx context.Context, sess *sessions.Session) error
	CurrentUser(ctx context.Context, sess *sessions.Session) (*users.User, error)
}

// RedditAPI is the subset of the Reddit client the /me view reads from.
type RedditAPI interface {
	Me(ctx context.Context, sess *sessions.Session) (*reddit.Identity, bool)
	KarmaBreakdown(ctx context.Context, sess *sessions.Session) ([]reddit.Karma, bool)
	Trophies(ctx context.Context, sess *sessions.Session) ([]reddit.Trophy, bool)
	SubscribedSubreddits(ctx context.Context, sess *sessions.Session, limit int) ([]reddit.Subreddit, bool)
	ContributorSubreddits(ctx context.Context, sess *sessions.Session) ([]reddit.Subreddit, bool)
	ModeratorSubreddits(ctx context.Context, sess *sessions.Session) ([]reddit.Subreddit, bool)
}

var _ RedditAPI = (*reddit.Client)(nil)

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	router   chi.Router
	config   config.Config
	login    LoginFlow
	reddit   RedditAPI
	sessions sessions.Repo
	nowTime  func() time.Time
	newID    func() string
}

// Option modifies a Server before its routes are built.
type Option func(*Server)

// WithNowTime sets the clock used for cookies and new sessions (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Server) {
		s.nowTime = nowFunc
	}
}

// WithIDGenerator sets the generator for new session IDs (primarily for testing)
func WithIDGenerator(newID func() string) Option {
	return func(s *Server) {
		s.newID = newID
	}
}

func New(cfg config.Config, login LoginFlow, api RedditAPI, sessionRepo sessions.Repo, opts ...Option) (*Server, error) {
	if len(cfg.GetSessionSecret()) == 0 {
		return nil, fmt.Errorf("[Server New] session secret is required")
	}

	s := &Server{
		env:      cfg.GetEnv(),
		router:   chi.NewRouter(),
		config:   cfg,
		login:    login,
		reddit:   api,
		sessions: sessionRepo,
		nowTime:  time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	_ = chi.Walk(s.router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		log.Debug().Msg(colourMethod(method) + " " + route)
		return nil
	})
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
