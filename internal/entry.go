// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/j-shelfwood/obsidian-local-rest-api/internal/api"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/mcpserver"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/noteservice"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/sse"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/storage"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/vault"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/watcher"
)

func setup(opts []Option) (*application, *slog.Logger, error) {
	app := &application{logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return app, logger, nil
}

// openStore builds the configured storage driver. The returned close func
// releases driver resources.
func openStore(cfg *Config) (storage.Provider, func() error, error) {
	switch cfg.Vault.Driver {
	case DriverSQLite:
		db, err := storage.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("init sqlite storage: %w", err)
		}
		return db, db.Close, nil
	default:
		// Ensure vault directory exists.
		if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create vault dir: %w", err)
		}
		fs, err := storage.NewFS(cfg.Vault.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("init storage: %w", err)
		}
		return fs, func() error { return nil }, nil
	}
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_driver", cfg.Vault.Driver),
		slog.String("vault_path", cfg.Vault.Path),
		slog.Bool("watch", cfg.Vault.Watch),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("storage close error", slog.String("error", err.Error()))
		}
	}()

	// SSE broker.
	broker := sse.NewBroker(cfg.Events.Throttle)
	defer broker.Close()

	// The watcher sees API writes on disk too, so the service only reports
	// changes itself when nothing else will.
	watch := cfg.Vault.Watch && store.Root() != ""
	v := vault.New(store, cfg.Vault.ReadConcurrency)
	var svcOpts []noteservice.Option
	if !watch {
		svcOpts = append(svcOpts, noteservice.WithNotifier(broker.Notify))
	}
	svc := noteservice.NewService(v, svcOpts...)

	apiRouter := api.NewRouter(v, svc, broker,
		cfg.App.HTTP.RateLimit.RequestsPerSecond, cfg.App.HTTP.RateLimit.Burst)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints.
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := store.Dirs(""); err != nil {
			logger.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	if watch {
		g.Go(func() error {
			if err := watcher.Watch(gCtx, store.Root(), logger, broker.Notify); err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Open SSE streams end with the broker.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the vault tools over stdio until stdin closes.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, logger, err := setup(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	cfg := app.config

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	v := vault.New(store, cfg.Vault.ReadConcurrency)
	srv := mcpserver.New(v, noteservice.NewService(v))

	logger.Info("MCP server starting on stdio",
		slog.String("vault_driver", cfg.Vault.Driver),
		slog.String("vault_path", cfg.Vault.Path))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}
