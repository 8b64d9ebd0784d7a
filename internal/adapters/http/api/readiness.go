// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"

	service "github.com/perchsocial/cohort-engine/internal/app"
)

// ReadinessHandler handles pool readiness requests.
type ReadinessHandler struct {
	deps Dependencies
}

// NewReadinessHandler creates a new readiness handler.
func NewReadinessHandler(deps Dependencies) *ReadinessHandler {
	return &ReadinessHandler{deps: deps}
}

// HandleReadiness handles GET /readiness requests. The report is derived
// from the current snapshot without any formation side effects.
func (h *ReadinessHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	report, err := h.deps.Readiness(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrSnapshotUnavailable) || errors.Is(err, service.ErrNotStarted) {
			writeError(w, http.StatusServiceUnavailable, "unavailable", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
