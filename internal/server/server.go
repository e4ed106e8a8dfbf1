// Package server wires the article service, search engine, SSE broker, and
// filesystem watcher into an HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/corvid-labs/fuda/internal/api"
	"github.com/corvid-labs/fuda/internal/article"
	"github.com/corvid-labs/fuda/internal/index"
	"github.com/corvid-labs/fuda/internal/linker"
	"github.com/corvid-labs/fuda/internal/scope"
	"github.com/corvid-labs/fuda/internal/search"
	"github.com/corvid-labs/fuda/internal/sse"
	"github.com/corvid-labs/fuda/internal/storage"
	"github.com/corvid-labs/fuda/internal/watcher"
)

// Run starts the server with the given options and blocks until shutdown.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	cwd := app.cwd
	if cwd == "" {
		var err error
		cwd, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}

	store := storage.NewFS()
	scopes, err := scope.New(store, cwd, home)
	if err != nil {
		return fmt.Errorf("init scope resolver: %w", err)
	}

	idx := index.NewRepo(store, scopes)
	links := linker.NewRepo(store, scopes)
	svc := article.NewService(store, scopes, idx, links)
	engine := search.NewEngine(store, idx)

	sel, err := scope.ParseSelector(cfg.Serve.Scope)
	if err != nil {
		return err
	}
	res, err := scopes.Resolve(sel, scope.Read)
	if err != nil {
		return fmt.Errorf("resolve served scopes: %w", err)
	}
	roots := res.Roots()
	vaultDirs := make(map[scope.Scope]string, len(roots))
	for _, root := range roots {
		vaultDirs[root.Scope] = scopes.PathsFor(root.Path).Vault
	}

	logger.Info("configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.Int("scopes", len(roots)),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Bring the side-files up to date with the vault before serving.
	if _, err := svc.Reindex(sel); err != nil {
		logger.Warn("initial reindex failed", slog.String("error", err.Error()))
	}

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(svc, engine, store, broker, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Watch.Enabled {
		g.Go(func() error {
			reindex := func(root scope.Root) error {
				_, err := svc.Reindex(scope.Selector(root.Scope))
				return err
			}
			return watcher.Watch(gCtx, roots, vaultDirs, reindex, logger, func(root scope.Root) {
				broker.Publish(sse.Event{
					Type: "scope.reindexed",
					Data: map[string]string{"scope": string(root.Scope)},
				})
			})
		})
	}

	g.Go(func() error {
		logger.Info("starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("server stopped")
	return nil
}
