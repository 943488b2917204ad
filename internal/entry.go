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

	"github.com/hagall/raido/internal/api"
	"github.com/hagall/raido/internal/artifacts"
	"github.com/hagall/raido/internal/document"
	"github.com/hagall/raido/internal/engine"
	"github.com/hagall/raido/internal/indexer"
	"github.com/hagall/raido/internal/mcpserver"
	"github.com/hagall/raido/internal/rebuild"
	"github.com/hagall/raido/internal/sse"
	pkgconfig "github.com/hagall/raido/pkg/config"
)

func setup(opts []Option) (*Config, *slog.Logger, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// RunBuild executes the build pipeline once: parse the hierarchical code
// document, flatten it, and publish the artifacts.
func RunBuild(_ context.Context, opts ...Option) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}

	logger.Info("Build starting",
		slog.String("source", cfg.Source.Path),
		slog.String("artifacts_dir", cfg.Artifacts.Dir))

	code, err := document.LoadFile(cfg.Source.Path)
	if err != nil {
		return fmt.Errorf("load source document: %w", err)
	}

	var overrides *indexer.Overrides
	if cfg.Source.Overrides != "" {
		overrides = &indexer.Overrides{}
		if err := pkgconfig.Load(cfg.Source.Overrides, overrides); err != nil {
			return fmt.Errorf("load indexing overrides: %w", err)
		}
	}

	res, err := indexer.Build(code, overrides)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	arts, err := indexer.Export(res)
	if err != nil {
		return fmt.Errorf("export artifacts: %w", err)
	}

	if err := os.MkdirAll(cfg.Artifacts.Dir, 0o755); err != nil {
		return fmt.Errorf("create artifacts dir: %w", err)
	}
	store, err := artifacts.NewFS(cfg.Artifacts.Dir)
	if err != nil {
		return fmt.Errorf("init artifact store: %w", err)
	}
	if err := artifacts.Publish(store, arts); err != nil {
		return fmt.Errorf("publish artifacts: %w", err)
	}

	logger.Info("Build complete",
		slog.Int("documents", len(res.Documents)),
		slog.Int("content_types", len(res.Metadata.ContentTypes)))
	return nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("artifacts_dir", cfg.Artifacts.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, factory, holder, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if eng := holder.Current(); eng != nil {
			_ = eng.Close()
		}
	}()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(holder, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated). Readiness reflects the
	// engine state, so a load balancer routes around a degraded instance.
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		eng := holder.Current()
		if eng == nil || !eng.Ready() {
			state := "missing"
			if eng != nil {
				state = string(eng.State())
			}
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(fmt.Sprintf(`{"status":"unavailable","state":%q}`, state)))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the artifact directory and hot-swap the engine on change.
	if cfg.Artifacts.Watch {
		watcher := rebuild.New(holder, factory, store, cfg.Artifacts.Dir, cfg.Artifacts.Debounce(), logger, broker)
		g.Go(func() error {
			return watcher.Run(gCtx)
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

// RunMCP starts the MCP server on stdio.
func RunMCP(ctx context.Context, opts ...Option) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}

	_, _, holder, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if eng := holder.Current(); eng != nil {
			_ = eng.Close()
		}
	}()

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(holder).ServeStdio()
}

// buildEngine wires the artifact store to an initial engine generation.
// A failed initialization is logged, not fatal: the server comes up
// degraded and the artifact watcher can recover it with the next build.
func buildEngine(ctx context.Context, cfg *Config, logger *slog.Logger) (*artifacts.FS, func() *engine.Engine, *engine.Holder, error) {
	if err := os.MkdirAll(cfg.Artifacts.Dir, 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("create artifacts dir: %w", err)
	}
	store, err := artifacts.NewFS(cfg.Artifacts.Dir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init artifact store: %w", err)
	}

	factory := func() *engine.Engine {
		return engine.New(engine.StoreSource{Store: store}, engine.WithLogger(logger))
	}

	first := factory()
	if err := first.Initialize(ctx); err != nil {
		logger.Error("initial index load failed, serving degraded",
			slog.String("error", err.Error()))
	}
	return store, factory, engine.NewHolder(first), nil
}
