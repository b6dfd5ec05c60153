package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/energypractice/enrollment-backend/api/responses"
	"github.com/energypractice/enrollment-backend/pkg/config"
	"github.com/energypractice/enrollment-backend/pkg/db"
	pkgerrors "github.com/energypractice/enrollment-backend/pkg/errors"
	"github.com/energypractice/enrollment-backend/pkg/logger"
	"github.com/energypractice/enrollment-backend/pkg/redis"
)

const readyTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Enrollment-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings Postgres and Redis. Either failing marks the instance unready.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Enrollment-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		checks := map[string]string{}
		ready := true
		if dbP != nil {
			checks["database"] = "ok"
			if err := dbP.Ping(ctx); err != nil {
				checks["database"] = "unavailable"
				ready = false
				if logg != nil {
					logg.Error(ctx, "health.database_ping_failed", err)
				}
			}
		}
		if redisP != nil {
			checks["redis"] = "ok"
			if err := redisP.Ping(ctx); err != nil {
				checks["redis"] = "unavailable"
				ready = false
				if logg != nil {
					logg.Error(ctx, "health.redis_ping_failed", err)
				}
			}
		}

		if !ready {
			err := pkgerrors.New(pkgerrors.CodeDependency, "service not ready").WithDetails(checks)
			responses.WriteError(r.Context(), nil, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
