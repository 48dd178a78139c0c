// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/livetag/internal/api"
	"github.com/starford/livetag/internal/index"
	"github.com/starford/livetag/internal/mcpserver"
	"github.com/starford/livetag/internal/sse"
	"github.com/starford/livetag/internal/storage"
	"github.com/starford/livetag/internal/tagservice"
)

// newApplication applies opts. Without WithLogger, logs go to w in the
// configured format, or defaultFormat when none is set.
func newApplication(w io.Writer, defaultFormat string, opts ...Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		app.logger = newLogger(w, app.config.App, defaultFormat)
	}
	slog.SetDefault(app.logger)
	return app, nil
}

func newLogger(w io.Writer, cfg ApplicationConfig, defaultFormat string) *slog.Logger {
	format := cfg.LogFormat
	if format == "" {
		format = defaultFormat
	}
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if format == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// service opens the library and, when withCatalog is set, the catalog.
// The returned close func releases the catalog.
func (a *application) service(withCatalog bool) (*tagservice.Service, storage.Provider, *index.DB, func(), error) {
	cfg := a.config
	store, err := storage.NewFS(cfg.Library.Root)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("init storage: %w", err)
	}

	opts := []tagservice.Option{
		tagservice.WithCreatorTool(cfg.Tagger.CreatorTool),
		tagservice.WithLogger(a.logger),
	}
	closeFn := func() {}
	var db *index.DB
	if withCatalog {
		db, err = index.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("init index: %w", err)
		}
		opts = append(opts, tagservice.WithCatalog(db))
		closeFn = func() { db.Close() }
	}
	return tagservice.NewService(store, opts...), store, db, closeFn, nil
}

// catalogExists reports whether a catalog was built before. Batch runs
// keep an existing catalog current but never create one.
func catalogExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Tag runs one tag operation over the library and returns its result.
// Without req.Commit nothing is written.
func Tag(ctx context.Context, req tagservice.Request, opts ...Option) (*tagservice.Result, error) {
	app, err := newApplication(os.Stderr, LogFormatText, opts...)
	if err != nil {
		return nil, err
	}
	svc, _, _, closeFn, err := app.service(catalogExists(app.config.SQLite.Path))
	if err != nil {
		return nil, err
	}
	defer closeFn()

	res, err := svc.Apply(ctx, req)
	if res != nil {
		attrs := []any{
			slog.String("op", string(res.Op)),
			slog.Int("files", res.Files),
			slog.Int("changed", res.Changed),
			slog.Int("failed", res.Failed),
		}
		if res.DryRun {
			app.logger.Info("dry run complete, pass --commit to write", attrs...)
		} else {
			app.logger.Info("tagging complete", attrs...)
		}
	}
	return res, err
}

// List returns the tags of every file matched by include.
func List(ctx context.Context, include string, opts ...Option) ([]tagservice.FileTags, error) {
	app, err := newApplication(os.Stderr, LogFormatText, opts...)
	if err != nil {
		return nil, err
	}
	svc, _, _, closeFn, err := app.service(false)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	return svc.ListTags(ctx, include)
}

// Index syncs every folder document under the library root into the catalog.
func Index(ctx context.Context, opts ...Option) (index.SyncStats, error) {
	app, err := newApplication(os.Stderr, LogFormatText, opts...)
	if err != nil {
		return index.SyncStats{}, err
	}
	svc, _, _, closeFn, err := app.service(true)
	if err != nil {
		return index.SyncStats{}, err
	}
	defer closeFn()
	return svc.Sync(ctx)
}

// ServeMCP runs the MCP server on stdin/stdout until the client hangs up.
// Logs go to stderr.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(os.Stderr, LogFormatText, opts...)
	if err != nil {
		return err
	}
	svc, store, _, closeFn, err := app.service(true)
	if err != nil {
		return err
	}
	defer closeFn()

	if _, err := svc.Sync(ctx); err != nil {
		app.logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	return mcpserver.New(svc, store, app.version).ServeStdio()
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(os.Stdout, LogFormatJSON, opts...)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_root", cfg.Library.Root),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, store, db, closeFn, err := app.service(true)
	if err != nil {
		return err
	}
	defer closeFn()

	// Run initial sync.
	if _, err := svc.Sync(ctx); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(svc, store, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		if err := db.Ping(req.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "catalog unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		if err := index.Watch(gCtx, db, store, logger, broker.PublishFolderEvent); err != nil {
			logger.Error("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

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
		// Stops the watcher.
		stop()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"status":%q}`, status)
}
