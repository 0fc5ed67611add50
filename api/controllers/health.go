package controllers

import (
	"context"
	"net/http"

	"github.com/marisolvega/callinsights-backend/api/responses"
	"github.com/marisolvega/callinsights-backend/pkg/config"
	pkgerrors "github.com/marisolvega/callinsights-backend/pkg/errors"
	"github.com/marisolvega/callinsights-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CallInsights-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when the database and blob storage both
// answer a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, storageP pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CallInsights-Env", cfg.App.Env)
		ctx := r.Context()

		checks := map[string]string{}
		healthy := true
		for name, p := range map[string]pinger{"database": dbP, "storage": storageP} {
			if p == nil {
				checks[name] = "not configured"
				continue
			}
			if err := p.Ping(ctx); err != nil {
				checks[name] = "unreachable"
				healthy = false
				if logg != nil {
					logg.Error(ctx, "readiness check failed: "+name, err)
				}
				continue
			}
			checks[name] = "ok"
		}

		if !healthy {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeStorageUnavailable, "dependency unreachable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
