package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/perchsocial/cohort-engine/internal/adapters/http/api"
	"github.com/perchsocial/cohort-engine/internal/adapters/repository"
	service "github.com/perchsocial/cohort-engine/internal/app"
	"github.com/perchsocial/cohort-engine/internal/domain/model"
	"github.com/perchsocial/cohort-engine/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// mockService implements api.Dependencies and api.StatsProvider with
// swappable behavior per test.
type mockService struct {
	triggerFn   func(ctx context.Context, batchID string, trigger model.TriggerSource) (model.MatchingRun, error)
	latestFn    func(ctx context.Context) (model.MatchingRun, error)
	byBatchFn   func(ctx context.Context, batchID string) (model.MatchingRun, error)
	recentFn    func(ctx context.Context, n int) ([]model.MatchingRun, error)
	readinessFn func(ctx context.Context) (types.ReadinessReport, error)
}

func (m *mockService) Trigger(ctx context.Context, batchID string, trigger model.TriggerSource) (model.MatchingRun, error) {
	return m.triggerFn(ctx, batchID, trigger)
}

func (m *mockService) LatestRun(ctx context.Context) (model.MatchingRun, error) {
	return m.latestFn(ctx)
}

func (m *mockService) RunByBatchID(ctx context.Context, batchID string) (model.MatchingRun, error) {
	return m.byBatchFn(ctx, batchID)
}

func (m *mockService) RecentRuns(ctx context.Context, n int) ([]model.MatchingRun, error) {
	return m.recentFn(ctx, n)
}

func (m *mockService) Readiness(ctx context.Context) (types.ReadinessReport, error) {
	return m.readinessFn(ctx)
}

func (m *mockService) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func completedRun(batchID string) model.MatchingRun {
	week := model.WeekOf(time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC))
	return model.MatchingRun{
		BatchID:   batchID,
		Trigger:   model.TriggerManual,
		Week:      week,
		StartedAt: time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC),
		Duration:  1200 * time.Millisecond,
		PoolSize:  6,
		Groups: []model.Group{{
			ID:        "group-1",
			City:      "Austin",
			Members:   []string{"m-a", "m-b", "m-c"},
			MeanScore: 0.91,
			Week:      week,
		}},
		EligibleCount: 6,
		Rollover:      []string{"m-d"},
		Status:        model.RunCompleted,
	}
}

func newMux(deps *mockService, token string) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, deps, token).Register(context.Background(), mux)
	return mux
}

func TestTriggerEndpoint(t *testing.T) {
	Convey("Given a server guarding the trigger with an admin token", t, func() {
		mock := &mockService{
			triggerFn: func(ctx context.Context, batchID string, trigger model.TriggerSource) (model.MatchingRun, error) {
				So(trigger, ShouldEqual, model.TriggerManual)
				return completedRun(batchID), nil
			},
		}
		mux := newMux(mock, "s3cret")

		Convey("When a trigger arrives without a token", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/runs", nil))

			Convey("Then it is rejected as unauthorized", func() {
				So(rec.Code, ShouldEqual, http.StatusUnauthorized)
			})
		})

		Convey("When a trigger arrives with the wrong token", func() {
			req := httptest.NewRequest(http.MethodPost, "/runs", nil)
			req.Header.Set("Authorization", "Bearer nope")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("When an authorized trigger names a batch id", func() {
			req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(`{"batch_id":"batch-42"}`))
			req.Header.Set("Authorization", "Bearer s3cret")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then the run is accepted and echoed back", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				var body map[string]any
				So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
				So(body["batch_id"], ShouldEqual, "batch-42")
				So(body["status"], ShouldEqual, "completed")
				So(body["placed_count"], ShouldEqual, 3.0)
			})
		})

		Convey("When an authorized trigger omits the batch id", func() {
			var captured string
			mock.triggerFn = func(ctx context.Context, batchID string, trigger model.TriggerSource) (model.MatchingRun, error) {
				captured = batchID
				return completedRun(batchID), nil
			}
			req := httptest.NewRequest(http.MethodPost, "/runs", nil)
			req.Header.Set("Authorization", "Bearer s3cret")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then a batch id is generated", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				So(captured, ShouldNotBeEmpty)
			})
		})
	})
}

func TestTriggerErrorMapping(t *testing.T) {
	Convey("Given a server with no admin token configured", t, func() {
		trigger := func(err error) *httptest.ResponseRecorder {
			mock := &mockService{
				triggerFn: func(ctx context.Context, batchID string, _ model.TriggerSource) (model.MatchingRun, error) {
					if errors.Is(err, service.ErrDuplicateBatch) {
						return completedRun(batchID), err
					}
					return model.MatchingRun{}, err
				},
			}
			rec := httptest.NewRecorder()
			newMux(mock, "").ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/runs", nil))
			return rec
		}

		Convey("When the batch id was already processed", func() {
			rec := trigger(service.ErrDuplicateBatch)

			Convey("Then the recorded run is returned with 200", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"status":"completed"`)
			})
		})

		Convey("When another run is active", func() {
			So(trigger(service.ErrRunActive).Code, ShouldEqual, http.StatusConflict)
		})

		Convey("When the snapshot source is unavailable", func() {
			rec := trigger(fmt.Errorf("%w: upstream offline", service.ErrSnapshotUnavailable))
			So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When the service is not started", func() {
			So(trigger(service.ErrNotStarted).Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When the run fails for any other reason", func() {
			So(trigger(errors.New("boom")).Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestRunLookupEndpoints(t *testing.T) {
	Convey("Given a server over recorded runs", t, func() {
		recorded := completedRun("batch-42")
		mock := &mockService{
			latestFn: func(ctx context.Context) (model.MatchingRun, error) {
				return recorded, nil
			},
			byBatchFn: func(ctx context.Context, batchID string) (model.MatchingRun, error) {
				if batchID == "batch-42" {
					return recorded, nil
				}
				return model.MatchingRun{}, fmt.Errorf("%w: %s", repository.ErrRunNotFound, batchID)
			},
			recentFn: func(ctx context.Context, n int) ([]model.MatchingRun, error) {
				So(n, ShouldBeLessThanOrEqualTo, 100)
				return []model.MatchingRun{recorded}, nil
			},
		}
		mux := newMux(mock, "")

		get := func(path string) *httptest.ResponseRecorder {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			return rec
		}

		Convey("When the latest run is requested", func() {
			rec := get("/runs/latest")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, `"batch_id":"batch-42"`)
		})

		Convey("When a run is requested by batch id", func() {
			So(get("/runs/batch-42").Code, ShouldEqual, http.StatusOK)
		})

		Convey("When an unknown batch id is requested", func() {
			So(get("/runs/batch-unknown").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the run list is requested", func() {
			rec := get("/runs?limit=5")
			So(rec.Code, ShouldEqual, http.StatusOK)
			var runs []map[string]any
			So(json.Unmarshal(rec.Body.Bytes(), &runs), ShouldBeNil)
			So(runs, ShouldHaveLength, 1)
		})

		Convey("When the run list limit is malformed", func() {
			So(get("/runs?limit=zero").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the lookup path has extra segments", func() {
			So(get("/runs/a/b").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestReadinessEndpoint(t *testing.T) {
	Convey("Given a server with a readiness report", t, func() {
		mock := &mockService{
			readinessFn: func(ctx context.Context) (types.ReadinessReport, error) {
				return types.ReadinessReport{
					PoolSize:      9,
					EligibleCount: 8,
					MinGroupSize:  3,
					Localities: []types.LocalityPool{
						{City: "Austin", EligibleSize: 6, MeetsMinimum: true},
						{City: "Boise", EligibleSize: 2, MeetsMinimum: false},
					},
				}, nil
			},
		}
		mux := newMux(mock, "")

		Convey("When readiness is requested", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readiness", nil))

			Convey("Then the per-city report is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var report types.ReadinessReport
				So(json.Unmarshal(rec.Body.Bytes(), &report), ShouldBeNil)
				So(report.EligibleCount, ShouldEqual, 8)
				So(report.Localities, ShouldHaveLength, 2)
				So(report.Localities[1].MeetsMinimum, ShouldBeFalse)
			})
		})

		Convey("When the snapshot behind readiness is unavailable", func() {
			mock.readinessFn = func(ctx context.Context) (types.ReadinessReport, error) {
				return types.ReadinessReport{}, fmt.Errorf("%w: offline", service.ErrSnapshotUnavailable)
			}
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readiness", nil))

			So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestStatsEndpoint(t *testing.T) {
	Convey("Given a server exposing stats", t, func() {
		mux := newMux(&mockService{}, "")

		Convey("When stats are requested", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("When stats are requested with the wrong method", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stats", nil))

			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}
