package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"
)

const (
	healthStatusHealthy   = "healthy"
	healthStatusOK        = "ok"
	healthStatusUnhealthy = "unhealthy"

	readinessTimeout = 2 * time.Second
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// healthzHandler handles liveness probes (/healthz)
func (h *Handler) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
}

// readyzHandler handles readiness probes (/readyz).
// Returns 503 when any registered check fails.
func (h *Handler) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	allHealthy := true
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			checks[name] = healthStatusUnhealthy + ": " + err.Error()
			allHealthy = false
			h.logger.Warn(ctx).Err(err).Str("check", name).Msg("readiness check failed")
			continue
		}
		checks[name] = healthStatusHealthy
	}

	response := HealthResponse{Status: healthStatusOK, Checks: checks}
	status := http.StatusOK
	if !allHealthy {
		response.Status = healthStatusUnhealthy
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}
