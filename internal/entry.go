// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/sanctum/internal/api"
	"github.com/starford/sanctum/internal/mcpserver"
	"github.com/starford/sanctum/internal/prefs"
	"github.com/starford/sanctum/internal/records"
	"github.com/starford/sanctum/internal/sse"
	"github.com/starford/sanctum/internal/storage"
	"github.com/starford/sanctum/internal/tags"
	"github.com/starford/sanctum/internal/watch"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("storage_path", cfg.Storage.DataPath()),
		slog.String("owner", cfg.Owner.Identity),
		slog.String("log_level", cfg.App.LogLevel.String()))

	provider, closeProvider, err := openProvider(cfg.Storage)
	if err != nil {
		return err
	}
	defer closeProvider()

	// SSE broker.
	broker := sse.NewBroker(cfg.Events.StatsThrottle)
	defer broker.Close()

	store := records.NewStore(provider, tags.Default(), logger,
		records.WithEvents(broker.PublishRecordEvent))

	var watcher *watch.Watcher
	routerCfg := api.RouterConfig{
		AuthEnabled: cfg.Auth.AuthEnabled(),
		Token:       cfg.Auth.Token,
		Owner:       cfg.Owner.Identity,
		Preferences: prefs.NewFile(cfg.Storage.DataPath()),
		Events:      broker,
	}
	if cfg.Watch.Enabled {
		watcher = newWatcher(cfg.Storage, cfg.Watch.Debounce, logger)
		routerCfg.OnMutation = watcher.MarkLocal
	}

	// Build chi router.
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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := provider.List(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(store, routerCfg))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if watcher != nil {
		g.Go(func() error {
			if err := watcher.Run(gCtx, broker.PublishStoreChanged); err != nil {
				logger.Warn("store watcher stopped", slog.String("error", err.Error()))
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group once the server has been asked to stop, so
// the watcher exits too.
var errShutdown = errors.New("shutdown")

// RunMCP serves the record tools over stdio until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config
	logger := app.logger()

	provider, closeProvider, err := openProvider(cfg.Storage)
	if err != nil {
		return err
	}
	defer closeProvider()

	store := records.NewStore(provider, tags.Default(), logger)
	logger.Info("MCP server starting on stdio",
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("storage_path", cfg.Storage.DataPath()))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return mcpserver.New(store, cfg.Owner.Identity).Serve(ctx, os.Stdin, os.Stdout)
}

// PrintStats writes the dashboard summary of the configured collection to w
// as indented JSON.
func PrintStats(ctx context.Context, w io.Writer, opts ...Option) error {
	app := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	provider, closeProvider, err := openProvider(cfg.Storage)
	if err != nil {
		return err
	}
	defer closeProvider()

	store := records.NewStore(provider, tags.Default(), app.logger())
	d, err := store.Dashboard(storage.WithOwner(ctx, cfg.Owner.Identity))
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// logger initializes the structured JSON logger and makes it the default.
func (a *application) logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// openProvider opens the configured document collection.
func openProvider(cfg StorageConfig) (storage.Provider, func(), error) {
	switch cfg.Driver {
	case DriverDir:
		dir, err := storage.NewDir(cfg.Dir.Path, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("init storage: %w", err)
		}
		return dir, func() {}, nil
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		db, err := storage.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("init storage: %w", err)
		}
		return db, func() { db.Close() }, nil
	}
}

func newWatcher(cfg StorageConfig, debounce time.Duration, logger *slog.Logger) *watch.Watcher {
	if cfg.Driver == DriverDir {
		return watch.New(cfg.Dir.Path, watch.Suffix(".json"), debounce, logger)
	}
	return watch.New(filepath.Dir(cfg.SQLite.Path), watch.SQLiteFiles(cfg.SQLite.Path), debounce, logger)
}
