// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/perchsocial/cohort-engine/internal/adapters/repository"
	service "github.com/perchsocial/cohort-engine/internal/app"
	"github.com/perchsocial/cohort-engine/internal/domain/model"
)

// Bounds for GET /runs listings.
const (
	defaultRunListLimit = 20
	maxRunListLimit     = 100
)

// RunsHandler handles run trigger and run record requests.
type RunsHandler struct {
	deps       Dependencies
	adminToken string
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(deps Dependencies, adminToken string) *RunsHandler {
	return &RunsHandler{deps: deps, adminToken: adminToken}
}

// triggerRequest mirrors the optional POST /runs body.
type triggerRequest struct {
	BatchID string `json:"batch_id"`
}

// HandleRuns handles POST /runs (manual trigger) and GET /runs (listing).
func (h *RunsHandler) HandleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleTrigger(w, r)
	case http.MethodGet:
		h.handleList(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *RunsHandler) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
		return
	}

	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	batchID := strings.TrimSpace(req.BatchID)
	if batchID == "" {
		batchID = uuid.NewString()
	}

	run, err := h.deps.Trigger(r.Context(), batchID, model.TriggerManual)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, toRunResponse(run))
	case errors.Is(err, service.ErrDuplicateBatch):
		// Idempotent replay: the recorded run, not a new one.
		writeJSON(w, http.StatusOK, toRunResponse(run))
	case errors.Is(err, service.ErrRunActive):
		writeError(w, http.StatusConflict, "run_active", err)
	case errors.Is(err, service.ErrSnapshotUnavailable):
		writeError(w, http.StatusServiceUnavailable, "snapshot_unavailable", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "not_started", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

func (h *RunsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		if n > maxRunListLimit {
			n = maxRunListLimit
		}
		limit = n
	}

	runs, err := h.deps.RecentRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	out := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunResponse(run))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleRunLookup handles GET /runs/latest and GET /runs/{batch_id}.
func (h *RunsHandler) HandleRunLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	key := strings.TrimPrefix(r.URL.Path, "/runs/")
	if key == "" || strings.Contains(key, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	var (
		run model.MatchingRun
		err error
	)
	if key == "latest" {
		run, err = h.deps.LatestRun(r.Context())
	} else {
		run, err = h.deps.RunByBatchID(r.Context(), key)
	}
	if err != nil {
		if errors.Is(err, repository.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunResponse(run))
}

// authorized checks the bearer token on mutating requests. An empty
// configured token disables the check.
func (h *RunsHandler) authorized(r *http.Request) bool {
	if h.adminToken == "" {
		return true
	}
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	return ok && token == h.adminToken
}
