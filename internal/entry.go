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

	"github.com/WesleySmits/project-manager-bot-sub000/internal/api"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/cache"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/history"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/insights"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/mcpserver"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/metrics"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/notion"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/sse"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/workspace"
)

// Name identifies the service to MCP clients and in CLI help.
const Name = "project-manager-bot"

// Version is overridden at build time with -ldflags.
var Version = "dev"

// staleThrottle spaces insights.stale hints during write bursts.
const staleThrottle = 2 * time.Second

// runtime is the wired object graph shared by the HTTP and MCP entrypoints.
type runtime struct {
	cfg      *Config
	logger   *slog.Logger
	level    *slog.LevelVar
	metrics  *metrics.Collector
	cache    *cache.Cache
	repo     *workspace.Repository
	insights *insights.Service
	history  *history.Store
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := app.config.Validate(); err != nil {
		return nil, err
	}
	return app, nil
}

func (app *application) build() (*runtime, error) {
	cfg := app.config

	level := new(slog.LevelVar)
	level.Set(cfg.App.LogLevel)
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("notion_base_url", cfg.Notion.BaseURL),
		slog.Duration("cache_ttl", cfg.Cache.TTL),
		slog.String("history_path", cfg.History.Path),
		slog.Bool("breaker", cfg.Notion.Breaker.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	collector := metrics.New()

	clientOpts := append(cfg.Notion.Options(),
		notion.WithObserver(collector),
		notion.WithLogger(logger))
	client := notion.New(cfg.Notion.Token, clientOpts...)

	c := cache.New(cfg.Cache.TTL, cache.WithObserver(collector))
	repo := workspace.New(client, c, cfg.Databases.IDs(), logger)

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		level:    level,
		metrics:  collector,
		cache:    c,
		repo:     repo,
		insights: insights.New(repo),
		history:  store,
	}, nil
}

// applyReload applies the settings that can change at runtime.
func (rt *runtime) applyReload(next *Config) {
	if next.App.LogLevel != rt.level.Level() {
		rt.logger.Info("config reload: log level",
			slog.String("from", rt.level.Level().String()),
			slog.String("to", next.App.LogLevel.String()))
		rt.level.Set(next.App.LogLevel)
	}
	if next.Cache.TTL != rt.cache.TTL() {
		rt.logger.Info("config reload: cache ttl", slog.Duration("ttl", next.Cache.TTL))
		rt.cache.SetTTL(next.Cache.TTL)
	}
}

func (rt *runtime) httpHandler(broker *sse.Broker) http.Handler {
	cfg := rt.cfg

	handler := api.NewHandler(rt.insights, rt.repo, rt.history)
	apiRouter := api.NewRouter(handler, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(rt.metrics.Middleware)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := rt.history.Ping(); err != nil {
			rt.logger.Warn("readiness: history unavailable", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", rt.metrics.Handler())

	r.Mount("/api", apiRouter)
	return r
}

// Run starts the HTTP service with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.build()
	if err != nil {
		return err
	}
	defer rt.history.Close()
	logger := rt.logger
	cfg := rt.cfg

	broker := sse.NewBroker(staleThrottle)
	defer broker.Close()
	rt.repo.SetListener(broker.PublishChange)

	job := &history.Job{
		Store:     rt.history,
		Analyzer:  rt.insights,
		Interval:  cfg.History.Interval,
		Retention: cfg.History.Retention,
		Logger:    logger,
		OnRecorded: func(snaps []history.Snapshot, err error) {
			rt.metrics.SnapshotRecorded(err)
			if err == nil {
				broker.Publish(sse.Event{Type: sse.EventSnapshotRecorded, Data: map[string]string{
					"run_id": snaps[0].RunID,
				}})
			}
		},
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           rt.httpHandler(broker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return job.Run(gCtx)
	})

	if app.configPath != "" {
		g.Go(func() error {
			if err := watchConfig(gCtx, app.configPath, logger, rt.applyReload); err != nil {
				logger.Warn("config watcher unavailable", slog.String("error", err.Error()))
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
		waitForShutdown(gCtx, logger)
		cancel()

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

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
// Logs go to the configured output, which must not be stdout.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.build()
	if err != nil {
		return err
	}
	defer rt.history.Close()

	if app.configPath != "" {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := watchConfig(watchCtx, app.configPath, rt.logger, rt.applyReload); err != nil {
				rt.logger.Warn("config watcher unavailable", slog.String("error", err.Error()))
			}
		}()
	}

	srv := mcpserver.New(Name, Version, rt.insights, rt.repo)
	rt.logger.Info("MCP server starting on stdio")
	if err := srv.ServeStdio(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func waitForShutdown(ctx context.Context, logger *slog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, initiating shutdown")
	}
}
