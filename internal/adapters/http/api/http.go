// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/perchsocial/cohort-engine/internal/domain/model"
	"github.com/perchsocial/cohort-engine/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Trigger starts a matching run for the batch id.
	Trigger(ctx context.Context, batchID string, trigger model.TriggerSource) (model.MatchingRun, error)

	// Read operations expose run records and pool readiness.
	LatestRun(ctx context.Context) (model.MatchingRun, error)
	RunByBatchID(ctx context.Context, batchID string) (model.MatchingRun, error)
	RecentRuns(ctx context.Context, n int) ([]model.MatchingRun, error)
	Readiness(ctx context.Context) (types.ReadinessReport, error)
}

// Server wires HTTP routes for the matching API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	runsHandler      *RunsHandler
	readinessHandler *ReadinessHandler
}

// NewServer creates a new API server with all handlers. adminToken guards
// the manual trigger; empty disables the check.
func NewServer(deps Dependencies, statsProvider StatsProvider, adminToken string) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		runsHandler:      NewRunsHandler(deps, adminToken),
		readinessHandler: NewReadinessHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/readiness", MetricsMiddleware(s.readinessHandler.HandleReadiness, "readiness"))
	mux.HandleFunc("/runs", MetricsMiddleware(s.runsHandler.HandleRuns, "runs"))
	mux.HandleFunc("/runs/", MetricsMiddleware(s.runsHandler.HandleRunLookup, "run_lookup"))
}

// groupResponse mirrors the wire shape of one formed group.
type groupResponse struct {
	ID        string   `json:"id"`
	City      string   `json:"city"`
	Members   []string `json:"members"`
	MeanScore float64  `json:"mean_score"`
	Week      string   `json:"week"`
}

// runResponse mirrors the wire shape of one recorded matching run.
type runResponse struct {
	BatchID       string          `json:"batch_id"`
	Trigger       string          `json:"trigger"`
	Week          string          `json:"week"`
	StartedAt     time.Time       `json:"started_at"`
	DurationMS    int64           `json:"duration_ms"`
	PoolSize      int             `json:"pool_size"`
	EligibleCount int             `json:"eligible_count"`
	Groups        []groupResponse `json:"groups"`
	PlacedCount   int             `json:"placed_count"`
	Rollover      []string        `json:"rollover"`
	Status        string          `json:"status"`
	Error         string          `json:"error,omitempty"`
}

func toRunResponse(run model.MatchingRun) runResponse {
	groups := make([]groupResponse, 0, len(run.Groups))
	for _, g := range run.Groups {
		groups = append(groups, groupResponse{
			ID:        g.ID,
			City:      g.City,
			Members:   g.Members,
			MeanScore: g.MeanScore,
			Week:      g.Week.String(),
		})
	}
	return runResponse{
		BatchID:       run.BatchID,
		Trigger:       string(run.Trigger),
		Week:          run.Week.String(),
		StartedAt:     run.StartedAt,
		DurationMS:    run.Duration.Milliseconds(),
		PoolSize:      run.PoolSize,
		EligibleCount: run.EligibleCount,
		Groups:        groups,
		PlacedCount:   run.PlacedCount(),
		Rollover:      run.Rollover,
		Status:        string(run.Status),
		Error:         run.Error,
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
