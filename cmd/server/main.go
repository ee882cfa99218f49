package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-reddit-auth/auth"
	"github.com/jrsteele09/go-reddit-auth/internal/config"
	"github.com/jrsteele09/go-reddit-auth/internal/storage/sqlite"
	"github.com/jrsteele09/go-reddit-auth/reddit"
	"github.com/jrsteele09/go-reddit-auth/server"
	"github.com/jrsteele09/go-reddit-auth/sessions"
	fakesessionrepo "github.com/jrsteele09/go-reddit-auth/sessions/repofakes"
	"github.com/jrsteele09/go-reddit-auth/token"
	"github.com/jrsteele09/go-reddit-auth/users"
	fakeuserrepo "github.com/jrsteele09/go-reddit-auth/users/repofake"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const sessionPruneInterval = time.Hour

func main() {
	configPath := flag.String("config", config.GetEnv("CONFIG_PATH", ""), "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatal().Err(err).Msg("error running server")
	}
	log.Info().Msg("server stopped")
}

func run(configPath string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupLogger(c.GetEnv(), os.Stderr)
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repos, pruner, closeRepos, err := openRepos(ctx, c)
	if err != nil {
		return err
	}
	defer closeRepos()
	go pruneSessions(ctx, pruner, c.GetMaxSessionAge())

	broker := token.NewBroker(c, repos.Sessions)
	redditClient := reddit.NewClient(c, broker)
	mapper := users.NewMapper(repos.Users, users.GrantPermissions(toPermissions(c.GetDefaultPermissions())...))
	loginService := auth.NewLoginService(repos, broker, redditClient, mapper)

	handler, err := server.New(c, loginService, redditClient, repos.Sessions)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(httpServer) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

// openRepos picks sqlite when a database path is configured and in-memory
// repositories otherwise. Either way the returned pruner drops idle sessions.
func openRepos(ctx context.Context, c config.Config) (auth.Repos, sessions.Pruner, func(), error) {
	path := c.GetDatabasePath()
	if path == "" {
		log.Warn().Msg("no database path configured, users and sessions are kept in memory")
		sessionRepo := fakesessionrepo.NewFakeSessionRepo()
		return auth.Repos{
			Users:    fakeuserrepo.NewFakeUserRepo(),
			Sessions: sessionRepo,
		}, sessionRepo, func() {}, nil
	}

	store, err := sqlite.Open(path)
	if err != nil {
		return auth.Repos{}, nil, nil, fmt.Errorf("open storage: %w", err)
	}
	log.Info().Str("path", path).Msg("using sqlite storage")

	closeStore := func() {
		if err := store.Close(); err != nil {
			log.Err(err).Msg("failed to close storage")
		}
	}
	return auth.Repos{Users: store, Sessions: store.Sessions()}, store, closeStore, nil
}

// pruneSessions drops sessions idle for longer than the cookie lifetime.
func pruneSessions(ctx context.Context, pruner sessions.Pruner, maxAge time.Duration) {
	ticker := time.NewTicker(sessionPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			pruneOnce(ctx, pruner, now.Add(-maxAge))
		}
	}
}

func pruneOnce(ctx context.Context, pruner sessions.Pruner, cutoff time.Time) int64 {
	removed, err := pruner.DeleteSessionsBefore(ctx, cutoff)
	if err != nil {
		log.Err(err).Msg("failed to prune sessions")
		return 0
	}
	if removed > 0 {
		log.Info().Int64("removed", removed).Msg("pruned idle sessions")
	}
	return removed
}

func toPermissions(names []string) []users.Permission {
	perms := make([]users.Permission, 0, len(names))
	for _, name := range names {
		perms = append(perms, users.Permission(name))
	}
	return perms
}

// setupLogger writes human-readable logs in DEV and JSON everywhere else.
func setupLogger(env string, out io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339
	if env == "DEV" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
