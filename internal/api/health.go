// Copyright (c) 2026 IP Platform. All rights reserved.

package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// # Health Check Definitions

// HealthDependencies holds ping functions for the external systems the API
// cannot serve without.
type HealthDependencies struct {
	// CheckDatabase pings PostgreSQL.
	CheckDatabase func(context.Context) error

	// CheckCache pings Redis.
	CheckCache func(context.Context) error
}

// checkResult is the JSON body returned by the readiness probe.
type checkResult struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// # Health Handlers

/*
NewHealthHandlers builds the liveness and readiness probe handlers.

Liveness answers 200 whenever the process is running; orchestrators use it
to decide whether to restart the container. Readiness pings every entry in
deps with a short deadline and reports 503 with per-check detail when any
dependency is unreachable, so the instance is pulled from rotation instead
of being killed.

Parameters:
  - deps: ping functions for PostgreSQL and Redis.
  - logger: used to record failed readiness checks.

Returns:
  - liveness: handler for GET /health.
  - readiness: handler for GET /ready.
*/
func NewHealthHandlers(deps HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	liveness = func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(writer).Encode(map[string]string{"status": "ok"})
	}

	readiness = func(writer http.ResponseWriter, request *http.Request) {
		ctx, cancel := context.WithTimeout(request.Context(), 5*time.Second)
		defer cancel()

		result := checkResult{Status: "ok", Checks: map[string]string{}}
		checks := map[string]func(context.Context) error{
			"database": deps.CheckDatabase,
			"cache":    deps.CheckCache,
		}

		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check(ctx); err != nil {
				logger.Warn("readiness check failed",
					slog.String("check", name),
					slog.String("error", err.Error()))
				result.Status = "degraded"
				result.Checks[name] = "unreachable"
				continue
			}
			result.Checks[name] = "ok"
		}

		writer.Header().Set("Content-Type", "application/json")
		if result.Status != "ok" {
			writer.WriteHeader(http.StatusServiceUnavailable)
		} else {
			writer.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(writer).Encode(result)
	}

	return liveness, readiness
}
