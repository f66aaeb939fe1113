package controllers

import (
	"context"
	"net/http"

	"github.com/reelbrand-ai/reelbrand-backend/api/responses"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/config"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/db"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/logger"
)

const envHeader = "X-ReelBrand-Env"

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes the hard dependencies. Nil pingers are skipped so the
// same handler serves deployments without redis.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		checks := map[string]string{}
		healthy := true

		if dbP != nil {
			if err := dbP.Ping(r.Context()); err != nil {
				checks["database"] = err.Error()
				healthy = false
			} else {
				checks["database"] = "ok"
			}
		}
		if redisP != nil {
			if err := redisP.Ping(r.Context()); err != nil {
				checks["redis"] = err.Error()
				healthy = false
			} else {
				checks["redis"] = "ok"
			}
		}

		status := "ready"
		code := http.StatusOK
		if !healthy {
			status = "degraded"
			code = http.StatusServiceUnavailable
			if logg != nil {
				ctx := logg.WithFields(r.Context(), map[string]any{"checks": checks})
				logg.Warn(ctx, "readiness check degraded")
			}
		}

		responses.WriteSuccessStatus(w, code, map[string]any{
			"status": status,
			"checks": checks,
		})
	}
}
