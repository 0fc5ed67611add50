package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/marisolvega/callinsights-backend/internal/assets"
	"github.com/marisolvega/callinsights-backend/internal/pipeline"
	"github.com/marisolvega/callinsights-backend/internal/scan"
	"github.com/marisolvega/callinsights-backend/internal/transcription"
	"github.com/marisolvega/callinsights-backend/pkg/config"
	"github.com/marisolvega/callinsights-backend/pkg/db"
	"github.com/marisolvega/callinsights-backend/pkg/logger"
	"github.com/marisolvega/callinsights-backend/pkg/metrics"
	"github.com/marisolvega/callinsights-backend/pkg/migrate"
	"github.com/marisolvega/callinsights-backend/pkg/storage/azblob"
)

// Advisory lock key shared by every scan worker pointed at one database.
const scanLockKey = 0x63616C6C73 // "calls"

func main() {
	logg := logger.New(logger.Options{ServiceName: "scan-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "scan-worker"

	logg = logger.New(logger.Options{
		ServiceName: "scan-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	storageClient, err := azblob.NewClient(context.Background(), cfg.Storage, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap blob storage", err)
		os.Exit(1)
	}

	transcriptionClient, err := transcription.NewClient(cfg.Transcription, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create transcription client", err)
		os.Exit(1)
	}

	repo := assets.NewRepository(dbClient.DB())
	pipelineMetrics := metrics.NewPipelineMetrics(prometheus.DefaultRegisterer)

	orchestrator, err := pipeline.New(pipeline.Params{
		Storage:     storageClient,
		Transcriber: transcriptionClient,
		Repo:        repo,
		Logger:      logg,
		Metrics:     pipelineMetrics,
		Retry: pipeline.RetryPolicy{
			MaxAttempts:    cfg.Pipeline.MaxRetryAttempts,
			InitialBackoff: cfg.Pipeline.InitialBackoff,
			MaximumBackoff: cfg.Pipeline.MaximumBackoff,
		},
		CreatedBy: "scan-worker",
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pipeline", err)
		os.Exit(1)
	}

	var lock scan.Lock
	if cfg.FeatureFlags.UseSQLite {
		lock = scan.NewLocalLock()
	} else {
		lock, err = scan.NewAdvisoryLock(dbClient.DB(), scanLockKey)
		if err != nil {
			logg.Error(context.Background(), "failed to create scan lock", err)
			os.Exit(1)
		}
	}

	service, err := scan.NewService(scan.ServiceParams{
		Logger:    logg,
		Storage:   storageClient,
		Repo:      repo,
		Pipeline:  orchestrator,
		Lock:      lock,
		Metrics:   metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:  cfg.Scan.Interval,
		BatchSize: cfg.Scan.BatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create scan service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting scan worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "scan worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "scan worker shutting down gracefully")
}
