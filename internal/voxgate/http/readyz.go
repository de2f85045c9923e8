package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/store"
	"github.com/aussiebroadwan/voxgate/pkg/httpx"
	"github.com/aussiebroadwan/voxgate/pkg/voxsdk"
)

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe endpoint returning service health status and checks for critical dependencies
//	@Description	Includes uptime, version, and status of the credential store and embedding model
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	voxsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	voxsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	model ModelStatus,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &voxsdk.HealthChecks{
			Database: "ok",
			Model:    "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if model == nil || model.Dimension() <= 0 {
			checks.Model = "error: no model loaded"
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		response := voxsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		}
		httpx.WriteJSON(w, statusCode, response)
	}
}
