package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marisolvega/callinsights-backend/api/controllers"
	"github.com/marisolvega/callinsights-backend/api/middleware"
	"github.com/marisolvega/callinsights-backend/internal/assets"
	"github.com/marisolvega/callinsights-backend/internal/pipeline"
	"github.com/marisolvega/callinsights-backend/pkg/config"
	"github.com/marisolvega/callinsights-backend/pkg/db"
	"github.com/marisolvega/callinsights-backend/pkg/logger"
	"github.com/marisolvega/callinsights-backend/pkg/storage/azblob"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	storageClient *azblob.Client,
	orchestrator *pipeline.Orchestrator,
	repo *assets.Repository,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, storageClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/recordings", func(r chi.Router) {
		r.Post("/process", controllers.ProcessRecordings(orchestrator, logg))
		r.Get("/", controllers.ListRecordings(repo, logg))
		r.Get("/stats", controllers.RecordingStats(repo, logg))
		r.Get("/{fileId}/results", controllers.GetRecordingResults(repo, logg))
	})

	return r
}
