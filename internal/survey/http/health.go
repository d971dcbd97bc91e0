package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aussiebroadwan/alimatrix/internal/survey/audit"
	"github.com/aussiebroadwan/alimatrix/internal/survey/store"
	"github.com/aussiebroadwan/alimatrix/pkg/httpx"
	"github.com/aussiebroadwan/alimatrix/pkg/surveysdk"
)

// LivezHandler godoc
//
//	@Summary		Health Check Endpoint
//	@Description	Liveness check returning status, uptime and version. Always 200 while the process runs.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	surveysdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, surveysdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness check of the database and, when configured, the shared cache.
//	@Description	Audit write failures are reported but do not fail readiness.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	surveysdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	surveysdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	cachePing func(context.Context) error,
	auditLog *audit.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &surveysdk.HealthChecks{
			Database: "ok",
			Cache:    "disabled",
			Audit:    "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if cachePing != nil {
			checks.Cache = "ok"
			if err := cachePing(r.Context()); err != nil {
				checks.Cache = "error: " + err.Error()
				overallStatus = "degraded"
				statusCode = http.StatusServiceUnavailable
			}
		}

		if auditLog != nil {
			if dropped, failed := auditLog.Dropped(), auditLog.Failures(); dropped+failed > 0 {
				checks.Audit = fmt.Sprintf("degraded: %d dropped, %d failed", dropped, failed)
			}
		}

		httpx.WriteJSON(w, statusCode, surveysdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
