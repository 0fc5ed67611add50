package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/marisolvega/callinsights-backend/api/routes"
	"github.com/marisolvega/callinsights-backend/internal/assets"
	"github.com/marisolvega/callinsights-backend/internal/pipeline"
	"github.com/marisolvega/callinsights-backend/internal/transcription"
	"github.com/marisolvega/callinsights-backend/pkg/config"
	"github.com/marisolvega/callinsights-backend/pkg/db"
	"github.com/marisolvega/callinsights-backend/pkg/instance"
	"github.com/marisolvega/callinsights-backend/pkg/logger"
	"github.com/marisolvega/callinsights-backend/pkg/metrics"
	"github.com/marisolvega/callinsights-backend/pkg/migrate"
	"github.com/marisolvega/callinsights-backend/pkg/storage/azblob"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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
		CreatedBy: "api",
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pipeline", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, storageClient, orchestrator, repo),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
