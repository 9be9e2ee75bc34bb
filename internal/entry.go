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

	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/chunker"
	"github.com/starford/ansuz/internal/contextservice"
	"github.com/starford/ansuz/internal/docsync"
	"github.com/starford/ansuz/internal/embedding"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/search"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/ticketservice"
	"github.com/starford/ansuz/internal/vecindex"
)

// Run starts the HTTP server with the given options and blocks until
// shutdown.
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

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("embedding_model", cfg.Embedding.Model),
		slog.String("log_level", cfg.App.LogLevel.String()))

	contexts, tickets, db, err := app.buildServices(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(contexts, tickets, broker, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	// Docs importer: initial sync plus a watcher, when a docs path is set.
	if cfg.Docs.Path != "" {
		importer, err := app.buildImporter(contexts, db, cfg, logger)
		if err != nil {
			return err
		}
		if err := importer.Sync(gCtx); err != nil {
			logger.Warn("initial docs sync failed", slog.String("error", err.Error()))
		}
		g.Go(func() error {
			return importer.Watch(gCtx, cfg.Docs.Path, func(kind, path string) {
				broker.PublishContextEvent(kind, "document", path)
			})
		})
	}

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

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP server on stdio. Log output goes to stderr so it
// cannot corrupt the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	contexts, tickets, db, err := app.buildServices(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	return mcpserver.New(contexts, tickets).ServeStdio()
}

// buildServices opens the database, hydrates the vector index, and wires the
// service layer shared by the HTTP and MCP entrypoints.
func (app *application) buildServices(cfg *Config, logger *slog.Logger) (*contextservice.Service, *ticketservice.Service, *store.DB, error) {
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}

	embedder := app.embedder
	if embedder == nil {
		embedder = embedding.NewOllama(cfg.Embedding.BaseURL, cfg.Embedding.Model,
			cfg.Embedding.Dimension, cfg.Embedding.Timeout())
	}

	index := vecindex.New()
	lifecycle := embedding.NewLifecycle(db, embedder, index, chunker.Config{
		MaxChunkSize: cfg.Embedding.ChunkSize,
		Overlap:      cfg.Embedding.ChunkOverlap,
	}, logger)

	if err := lifecycle.Load(); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("load vector index: %w", err)
	}
	logger.Info("Vector index loaded", slog.Int("entries", index.Len()))

	searcher := search.New(db, embedder, index, logger)
	searcher.SetDefaults(cfg.Search.DefaultTopK, cfg.Search.MinSimilarity)

	contexts := contextservice.New(db, lifecycle, searcher, logger)
	tickets := ticketservice.New(db, logger)
	return contexts, tickets, db, nil
}

// buildImporter wires the docs directory mirror.
func (app *application) buildImporter(contexts *contextservice.Service, db *store.DB, cfg *Config, logger *slog.Logger) (*docsync.Importer, error) {
	if err := os.MkdirAll(cfg.Docs.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create docs dir: %w", err)
	}
	files, err := storage.NewFS(cfg.Docs.Path)
	if err != nil {
		return nil, fmt.Errorf("init docs storage: %w", err)
	}
	return docsync.New(contexts, db, files, cfg.Docs.RepoID, logger), nil
}
