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

	"github.com/kiranshivaraju/autoshow/internal/ai"
	"github.com/kiranshivaraju/autoshow/internal/api"
	"github.com/kiranshivaraju/autoshow/internal/api/handler"
	mw "github.com/kiranshivaraju/autoshow/internal/api/middleware"
	"github.com/kiranshivaraju/autoshow/internal/artifact"
	"github.com/kiranshivaraju/autoshow/internal/cache"
	"github.com/kiranshivaraju/autoshow/internal/config"
	"github.com/kiranshivaraju/autoshow/internal/ingest"
	"github.com/kiranshivaraju/autoshow/internal/logging"
	"github.com/kiranshivaraju/autoshow/internal/media"
	"github.com/kiranshivaraju/autoshow/internal/pipeline"
	"github.com/kiranshivaraju/autoshow/internal/segment"
	"github.com/kiranshivaraju/autoshow/internal/store"
	"github.com/kiranshivaraju/autoshow/internal/transcribe"
)

const shutdownTimeout = 30 * time.Second

func runServer(parent context.Context, migrationsDir string) error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logCloser, err := logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		File:        cfg.Log.File,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)
	logger.Info("config loaded", "env", cfg.Server.Env, "fallback_order", cfg.AI.FallbackOrder)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer st.Close()
	logger.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, migrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations applied")

	// 4. Create progress cache
	progressCache, err := cache.Open(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}
	defer progressCache.Close()

	if err := progressCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping cache: %w", err)
	}
	logger.Info("cache connected")

	// 5. Build the provider catalog
	catalog, err := ai.NewCatalogFromConfig(cfg.AI)
	if err != nil {
		return fmt.Errorf("create provider catalog: %w", err)
	}
	if !catalog.HasCredentialedProvider() {
		logger.Warn("no LLM provider has credentials; generation stages will fail")
	}
	executor := ai.NewExecutor(catalog, cfg.AI.InferenceTimeout, logger)

	// 6. Pipeline service
	if err := os.MkdirAll(cfg.Media.WorkDir, 0o755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	tools := media.NewTools(cfg.Media.FFmpegPath, cfg.Media.FFprobePath, cfg.Media.YtDlpPath)
	transcriber := transcribe.NewClient(cfg.Transcription)

	svc := pipeline.NewService(pipeline.Dependencies{
		Store:    st,
		Cache:    progressCache,
		Ingester: ingest.NewDefaultRouter(tools, cfg.Media.WorkDir, cfg.Media.MinSourceBytes, cfg.Media.MaxDownloadBytes, logger),
		Transcriber: func(model string) segment.Transcriber {
			return transcriber.WithModel(model)
		},
		Extractor: tools,
		Executor:  executor,
		Artifacts: artifact.NewSet(cfg.Artifacts),
		Weights:   cfg.Pipeline.StageWeights,
		Segment: segment.Config{
			ThresholdSecs: float64(cfg.Segment.ThresholdSecs),
			WindowSecs:    float64(cfg.Segment.WindowSecs),
			Concurrency:   cfg.Segment.Concurrency,
		},
		WorkDir: cfg.Media.WorkDir,
		Logger:  logger,
	})

	// 7. Build router with dependencies
	router := api.NewRouter(api.Dependencies{
		Auth:      mw.NewAuth(st),
		RateLimit: mw.NewRateLimit(progressCache, cfg.Server.RateLimitPerMinute),

		HealthHandler:        handler.NewHealthHandler(st, progressCache),
		SubmitJobHandler:     handler.NewSubmitJobHandler(svc),
		GetJobHandler:        handler.NewGetJobHandler(st, progressCache),
		GetResultHandler:     handler.NewGetResultHandler(st, progressCache),
		ListProvidersHandler: handler.NewListProvidersHandler(catalog),
	})

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("waiting for running jobs to finish")
	svc.Wait()

	logger.Info("server stopped gracefully")
	return nil
}
