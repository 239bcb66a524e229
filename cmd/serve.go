package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/mixtape/internal/auth"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/server"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/session"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/urfave/cli/v3"
)

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the playlist web service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Serve,
	}
}

// Serve wires the session store, auth gate, Resource API client and HTTP
// handlers together and runs the server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))

	var db *sql.DB
	if config.Database.Path != "" {
		var err error
		db, err = shared.NewDatabase(config.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

		if err := shared.RunMigrations(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	manager := session.NewManager(config.Session, shared.WithLogger(r.logger, "component", "session"))

	var sessions session.Store
	switch config.Session.Backend {
	case "sqlite":
		if db == nil {
			return fmt.Errorf("%w: session backend is sqlite but no database path is configured", shared.ErrInvalidConfig)
		}
		sqliteStore := session.NewSQLiteStore(db, manager.TTL())
		if pruned, err := sqliteStore.Prune(ctx); err != nil {
			r.logger.Warn("failed to prune expired sessions", "error", err)
		} else if pruned > 0 {
			r.logger.Info("pruned expired sessions", "rows", pruned)
		}
		sessions = sqliteStore
	default:
		memStore := session.NewMemoryStore(manager.TTL())
		defer memStore.Close()
		sessions = memStore
	}

	authClient, err := auth.NewClient(config.Credentials.Spotify)
	if err != nil {
		return err
	}

	tokens := auth.NewTokenStore(sessions)
	gate := auth.NewGate(tokens, authClient, shared.WithLogger(r.logger, "component", "auth"))

	api := services.NewSpotify(nil)

	var cache tasks.FeatureCache
	if db != nil {
		cache = repositories.NewFeatureRepository(db)
	}
	engine := tasks.NewFeatureEngine(api, cache, config.Features, shared.WithLogger(r.logger, "component", "tasks"))

	httpLogger := shared.WithLogger(r.logger, "component", "http")

	router := server.NewBasicRouter()
	router.Use(
		server.Recover(httpLogger),
		server.RequestLogger(httpLogger),
		server.Throttle(config.Server.RateLimit),
		manager.Middleware,
	)

	router.Handler(server.NewAuthHandler(authClient, tokens, sessions, httpLogger))
	router.Handler(server.Protect(gate, server.NewProfileHandler(api, httpLogger)))
	router.Handler(server.Protect(gate, server.NewPlaylistHandler(api, engine, httpLogger)))
	router.Handler(&server.HealthHandler{})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(config.Server, router, r.logger)
	r.writePlain("mixtape listening on http://%s\n", srv.Addr())

	start := time.Now()
	if err := srv.Start(ctx); err != nil {
		return err
	}

	r.logger.Info("server stopped", "uptime", time.Since(start))
	return nil
}
