// Package main is the entrypoint for the caseflow API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kiranshivaraju/caseflow/internal/api"
	"github.com/kiranshivaraju/caseflow/internal/api/handler"
	mw "github.com/kiranshivaraju/caseflow/internal/api/middleware"
	"github.com/kiranshivaraju/caseflow/internal/api/response"
	"github.com/kiranshivaraju/caseflow/internal/cache"
	"github.com/kiranshivaraju/caseflow/internal/config"
	"github.com/kiranshivaraju/caseflow/internal/convert"
	"github.com/kiranshivaraju/caseflow/internal/extraction"
	"github.com/kiranshivaraju/caseflow/internal/pipeline"
	"github.com/kiranshivaraju/caseflow/internal/store"
	"github.com/kiranshivaraju/caseflow/internal/upload"
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
	// 1. Load .env (optional) and config
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "upload_source", cfg.Upload.Source)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Pipeline collaborators
	if err := os.MkdirAll(cfg.Workspace.Dir, 0o755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	targets, err := newTargetSource(cfg.Upload)
	if err != nil {
		return fmt.Errorf("create upload target source: %w", err)
	}
	extractor := extraction.NewHTTPClient(cfg.Extraction.ExtractEndpoint,
		cfg.Extraction.JobStatusEndpoint, cfg.Extraction.RequestTimeout)

	pgStore := store.NewPostgresStore(pool)

	orch := pipeline.New(pipeline.Dependencies{
		WorkDir:   cfg.Workspace.Dir,
		Converter: convert.NewFileConverter(cfg.Convert.DPI, cfg.Convert.JPEGQuality),
		Targets:   targets,
		Uploader:  upload.NewUploader(cfg.Upload.Timeout, slog.Default()),
		Submitter: extractor,
		Poller:    extraction.NewPoller(extractor, cfg.Extraction.PollInterval, cfg.Extraction.MaxPollAttempts),
		Sink:      store.NewResultSink(pgStore, slog.Default()),
		Runs:      redisCache,
		RunTTL:    cfg.Server.RunStatusTTL,
		Logger:    slog.Default(),
	})

	// 6. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(pgStore),
		RateLimit: mw.NewRateLimit(redisCache, cfg.Server.RateLimit),

		HealthHandler:      healthHandler(pgStore, redisCache),
		ProcessCaseHandler: handler.NewProcessCaseHandler(orch, cfg.Server.MaxUploadBytes),
		RunStatusHandler:   handler.NewRunStatusHandler(redisCache),
		CreateKeyHandler:   handler.NewCreateKeyHandler(pgStore),
		ListKeysHandler:    handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler:   handler.NewRevokeKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 7. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	pollBudget := time.Duration(cfg.Extraction.MaxPollAttempts) * cfg.Extraction.PollInterval
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 5 * time.Minute,
		// Process-case holds the connection until polling finishes.
		WriteTimeout: pollBudget + 5*time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
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

// newTargetSource picks where pre-signed upload URLs come from.
func newTargetSource(cfg config.UploadConfig) (upload.TargetSource, error) {
	switch cfg.Source {
	case "s3":
		return upload.NewS3TargetSource(cfg.S3.Region, cfg.S3.Bucket, cfg.S3.KeyPrefix, cfg.S3.PresignTTL)
	case "api":
		return upload.NewHTTPTargetSource(cfg.URLsEndpoint, cfg.Timeout, slog.Default()), nil
	default:
		return nil, fmt.Errorf("unknown upload source %q", cfg.Source)
	}
}

// Pinger is anything with a liveness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler checks database and cache connectivity.
func healthHandler(db Pinger, c Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := db.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
