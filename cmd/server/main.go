// Package main is the entrypoint for the GraphPredict API server.
package main

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

	"github.com/vikramraman/graphpredict/internal/api"
	"github.com/vikramraman/graphpredict/internal/api/handler"
	mw "github.com/vikramraman/graphpredict/internal/api/middleware"
	"github.com/vikramraman/graphpredict/internal/archive"
	"github.com/vikramraman/graphpredict/internal/config"
	"github.com/vikramraman/graphpredict/internal/graph"
	"github.com/vikramraman/graphpredict/internal/jobs"
	"github.com/vikramraman/graphpredict/internal/predict"
	"github.com/vikramraman/graphpredict/pkg/models"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "graph_base_url", cfg.Graph.BaseURL, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Create graph store client
	graphClient := graph.NewHTTPClient(cfg.Graph)

	// 3. Select job store backend: Redis primary, in-process fallback.
	// Selection happens once; the choice is surfaced in /health.
	jobStore, counter := selectJobStore(ctx, cfg)
	if rs, ok := jobStore.(*jobs.RedisStore); ok {
		defer rs.Close()
	}

	// 4. Optional Postgres archive for terminal jobs
	var archiver jobs.Archiver
	if cfg.Archive.DatabaseURL != "" {
		if err := archive.RunMigrations(cfg.Archive.DatabaseURL, cfg.Archive.MigrationsDir); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		pool, err := archive.Connect(ctx, cfg.Archive.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect archive database: %w", err)
		}
		defer pool.Close()
		archiver = archive.New(pool)
		slog.Info("job archive enabled")
	}

	// 5. Create lifecycle manager
	factory := func(predictionType string) models.Predictor {
		return predict.NewPredictor(predictionType, graphClient)
	}
	manager := jobs.NewManager(jobStore, factory, archiver, cfg.Jobs.MaxConcurrent)

	// 6. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(cfg.Auth.APIKeyHash),
		RateLimit: mw.NewRateLimit(counter, cfg.Jobs.RatePerMin),

		HealthHandler:      handler.NewHealthHandler(graphClient, jobStore, jobStore.Name()),
		SubmitHandler:      handler.NewSubmitHandler(manager),
		JobStatusHandler:   handler.NewStatusHandler(manager),
		JobResultsHandler:  handler.NewResultsHandler(manager),
		CancelJobHandler:   handler.NewCancelHandler(manager),
		QueueStatusHandler: handler.NewQueueStatusHandler(manager),
	}

	router := api.NewRouter(deps)

	// 7. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr, "job_store", jobStore.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// selectJobStore connects to Redis when configured and reachable, otherwise
// falls back to the in-process store with a one-time warning. Fallback
// records have no expiry and no cross-process visibility.
func selectJobStore(ctx context.Context, cfg *config.Config) (jobs.Store, mw.Counter) {
	if cfg.Redis.URL == "" {
		slog.Warn("REDIS_URL not set, using in-process job store")
		ms := jobs.NewMemoryStore()
		return ms, ms
	}

	rs, err := jobs.NewRedisStore(cfg.Redis.URL, cfg.Jobs.Retention)
	if err != nil {
		slog.Warn("invalid Redis URL, using in-process job store", "error", err)
		ms := jobs.NewMemoryStore()
		return ms, ms
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rs.Ping(pingCtx); err != nil {
		slog.Warn("Redis unreachable, using in-process job store", "error", err)
		ms := jobs.NewMemoryStore()
		return ms, ms
	}

	slog.Info("redis connected", "retention", cfg.Jobs.Retention)
	return rs, rs
}
