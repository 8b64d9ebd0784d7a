// Package service provides the core matching service that implements the
// dependencies required by the HTTP API: run lifecycle, mutual exclusion,
// idempotency, rollover aggregation, the run recorder, and the scheduler.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	bucketqueue "github.com/perchsocial/cohort-engine/internal/adapters/mq/queue"
	workerpool "github.com/perchsocial/cohort-engine/internal/adapters/mq/worker"
	"github.com/perchsocial/cohort-engine/internal/adapters/notify"
	"github.com/perchsocial/cohort-engine/internal/adapters/repository"
	"github.com/perchsocial/cohort-engine/internal/adapters/snapshot"
	"github.com/perchsocial/cohort-engine/internal/domain/eligibility"
	"github.com/perchsocial/cohort-engine/internal/domain/formation"
	"github.com/perchsocial/cohort-engine/internal/domain/history"
	"github.com/perchsocial/cohort-engine/internal/domain/model"
	"github.com/perchsocial/cohort-engine/internal/domain/scoring"
	"github.com/perchsocial/cohort-engine/internal/domain/types"
	"github.com/perchsocial/cohort-engine/pkg/logger"
	"github.com/perchsocial/cohort-engine/pkg/metrics"
)

// Service owns the matching run lifecycle. Exactly one run may be in
// progress at a time; triggers arriving during an active run are rejected,
// never queued.
type Service struct {
	mu sync.RWMutex

	// Core components
	source    snapshot.Source
	runs      repository.RunStore
	history   repository.HistoryStore
	announcer notify.Announcer
	scorer    scoring.Scorer
	queue     bucketqueue.Queue
	pool      *workerpool.Pool

	// Configuration
	params           formation.Params
	cooldownWeeks    int
	groupTTLWeeks    int
	workerCount      int
	queueSize        int
	runTimeout       time.Duration
	scheduleInterval time.Duration

	// State
	started   bool
	runActive bool
	stopCh    chan struct{}
	schedWG   sync.WaitGroup

	// now is swappable so tests can pin the run week.
	now func() time.Time

	// Logging
	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		params: formation.Params{
			MinSize:   formation.DefaultMinGroupSize,
			MaxSize:   formation.DefaultMaxGroupSize,
			Threshold: formation.DefaultAcceptanceThreshold,
		},
		cooldownWeeks:    history.DefaultCooldownWeeks,
		groupTTLWeeks:    4,
		workerCount:      runtime.NumCPU(),
		queueSize:        256,
		runTimeout:       3 * time.Minute,
		scheduleInterval: 168 * time.Hour,
		stopCh:           make(chan struct{}),
		now:              time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components and launches the scheduler.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting cohort matching service...")

	if s.source == nil {
		s.source = snapshot.NewStaticSource(nil)
	}
	if s.runs == nil {
		s.runs = repository.NewMemRunStore()
	}
	if s.history == nil {
		s.history = repository.NewMemHistoryStore()
	}
	if s.announcer == nil {
		s.announcer = notify.NewChannelAnnouncer()
	}
	if s.scorer == nil {
		s.scorer = scoring.New(scoring.DefaultWeights())
	}

	s.queue = bucketqueue.NewInMemoryQueue(
		bucketqueue.WithCapacity(s.queueSize),
	)
	s.pool = workerpool.NewPool(s.workerCount, s.queue)
	s.pool.Start(ctx)
	metrics.UpdateWorkerCount(s.pool.Size())

	s.schedWG.Add(1)
	go s.scheduleLoop()

	s.started = true
	s.logger.Info(ctx, "cohort matching service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Duration("scheduleInterval", s.scheduleInterval),
	)

	return nil
}

// Stop gracefully shuts down the scheduler and the worker pool.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping cohort matching service...")

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.schedWG.Wait()

	if s.pool != nil {
		s.pool.Stop()
	}
	if s.queue != nil && !s.queue.IsClosed() {
		_ = s.queue.Close()
	}

	s.started = false
	s.logger.Info(context.Background(), "cohort matching service stopped")
}

// scheduleLoop fires automatic runs at the configured cadence.
func (s *Service) scheduleLoop() {
	defer s.schedWG.Done()

	ticker := time.NewTicker(s.scheduleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			ctx := context.Background()
			batchID := uuid.NewString()
			if _, err := s.Trigger(ctx, batchID, model.TriggerScheduled); err != nil {
				s.logger.Warn(ctx, "scheduled run did not complete",
					logger.String("batchID", batchID),
					logger.Error(err),
				)
			}
		}
	}
}

// Trigger executes one matching run end to end and returns its record.
//
// Replaying a batch id returns the recorded run alongside ErrDuplicateBatch
// without reprocessing. A trigger during an active run returns ErrRunActive
// and records nothing.
func (s *Service) Trigger(ctx context.Context, batchID string, trigger model.TriggerSource) (model.MatchingRun, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return model.MatchingRun{}, ErrNotStarted
	}

	if recorded, err := s.runs.ByBatchID(ctx, batchID); err == nil {
		s.logger.Info(ctx, "batch id already processed, returning recorded run",
			logger.String("batchID", batchID),
			logger.String("status", string(recorded.Status)),
		)
		return recorded, ErrDuplicateBatch
	}

	if !s.acquireRun() {
		metrics.RecordSkippedTrigger()
		s.logger.Warn(ctx, "trigger rejected, another run is active",
			logger.String("batchID", batchID),
			logger.String("trigger", string(trigger)),
		)
		return model.MatchingRun{}, ErrRunActive
	}
	defer s.releaseRun()

	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	startedAt := s.now()
	run := model.MatchingRun{
		BatchID:   batchID,
		Trigger:   trigger,
		Week:      model.WeekOf(startedAt),
		StartedAt: startedAt,
	}

	s.logger.Info(ctx, "matching run started",
		logger.String("batchID", batchID),
		logger.String("trigger", string(trigger)),
		logger.String("week", run.Week.String()),
	)

	run, err := s.execute(runCtx, run)
	run.Duration = s.now().Sub(startedAt)

	if err != nil {
		run.Status = model.RunFailed
		run.Error = err.Error()
		run.Groups = nil
		run.Rollover = nil
	}

	if recErr := s.record(ctx, run); recErr != nil {
		return model.MatchingRun{}, recErr
	}

	metrics.RecordRun(string(run.Status), float64(run.Duration.Milliseconds()))
	s.logger.Info(ctx, "matching run recorded",
		logger.String("batchID", batchID),
		logger.String("status", string(run.Status)),
		logger.Int("groups", len(run.Groups)),
		logger.Int("rollover", len(run.Rollover)),
		logger.Duration("duration", run.Duration),
	)
	return run, err
}

// execute performs snapshot, eligibility, formation, and aggregation. It
// mutates and returns the run record; a non-nil error marks the run failed.
func (s *Service) execute(ctx context.Context, run model.MatchingRun) (model.MatchingRun, error) {
	profiles, err := s.source.Profiles(ctx)
	if err != nil {
		return run, fmt.Errorf("%w: %v", ErrSnapshotUnavailable, err)
	}
	run.PoolSize = len(profiles)
	metrics.UpdatePoolSize(run.PoolSize)

	active, err := s.runs.ActiveMembers(ctx, run.Week, s.groupTTLWeeks)
	if err != nil {
		return run, err
	}

	eligible := eligibility.Filter(profiles, eligibility.ActiveSet(active))
	run.EligibleCount = len(eligible)
	metrics.UpdateEligibleMembers(run.EligibleCount)

	if len(eligible) < s.params.MinSize {
		run.Status = model.RunInsufficientPool
		run.Rollover = rolloverOf(eligible)
		return run, nil
	}

	sinceWeek := run.Week - model.Week(s.cooldownWeeks)
	entries, err := s.history.EntriesSince(ctx, sinceWeek)
	if err != nil {
		return run, err
	}
	guard := history.NewGuard(entries, run.Week, history.WithCooldownWeeks(s.cooldownWeeks))

	buckets, cities := eligibility.Buckets(eligible)
	results := make(chan formation.BucketResult, len(cities))
	for _, city := range cities {
		job := bucketqueue.Job{
			BatchID: run.BatchID,
			City:    city,
			Members: buckets[city],
			Week:    run.Week,
			Scorer:  s.scorer,
			Guard:   guard,
			Params:  s.params,
			Result:  results,
		}
		if !s.queue.Enqueue(ctx, job) {
			return run, fmt.Errorf("bucket queue rejected job for city %q", city)
		}
	}

	byCity := make(map[string]formation.BucketResult, len(cities))
	for range cities {
		select {
		case res := <-results:
			byCity[res.City] = res
		case <-ctx.Done():
			return run, fmt.Errorf("%w after %d of %d buckets", ErrRunTimeout, len(byCity), len(cities))
		}
	}

	// Merge in city order so identical inputs produce identical records.
	for _, city := range cities {
		res := byCity[city]
		run.Groups = append(run.Groups, res.Groups...)
		run.Rollover = append(run.Rollover, res.Unplaced...)
	}
	model.SortMembers(run.Rollover)

	if len(run.Groups) > 0 {
		run.Status = model.RunCompleted
	} else {
		run.Status = model.RunInsufficientPool
	}
	metrics.RecordGroupsFormed(len(run.Groups))
	metrics.UpdateRolloverMembers(len(run.Rollover))
	return run, nil
}

// record appends the run and, for non-failed runs, the group history and
// downstream notifications. Failed runs write no groups and no history.
func (s *Service) record(ctx context.Context, run model.MatchingRun) error {
	if err := s.runs.Append(ctx, run); err != nil {
		return err
	}
	if run.Status == model.RunFailed {
		return nil
	}

	for _, g := range run.Groups {
		if err := s.history.Append(ctx, g.Pairs()); err != nil {
			return err
		}
		if err := s.announcer.Announce(ctx, notify.EventFor(run.BatchID, g)); err != nil {
			s.logger.Warn(ctx, "group notification dropped",
				logger.String("groupID", g.ID),
				logger.Error(err),
			)
		}
	}
	return nil
}

// Readiness reports pool state without any formation side effects.
func (s *Service) Readiness(ctx context.Context) (types.ReadinessReport, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return types.ReadinessReport{}, ErrNotStarted
	}

	profiles, err := s.source.Profiles(ctx)
	if err != nil {
		return types.ReadinessReport{}, fmt.Errorf("%w: %v", ErrSnapshotUnavailable, err)
	}

	week := model.WeekOf(s.now())
	active, err := s.runs.ActiveMembers(ctx, week, s.groupTTLWeeks)
	if err != nil {
		return types.ReadinessReport{}, err
	}

	eligible := eligibility.Filter(profiles, eligibility.ActiveSet(active))
	buckets, cities := eligibility.Buckets(eligible)

	report := types.ReadinessReport{
		PoolSize:      len(profiles),
		EligibleCount: len(eligible),
		MinGroupSize:  s.params.MinSize,
	}
	for _, city := range cities {
		report.Localities = append(report.Localities, types.LocalityPool{
			City:         city,
			EligibleSize: len(buckets[city]),
			MeetsMinimum: len(buckets[city]) >= s.params.MinSize,
		})
	}
	return report, nil
}

// LatestRun returns the most recently recorded run.
func (s *Service) LatestRun(ctx context.Context) (model.MatchingRun, error) {
	return s.runs.Latest(ctx)
}

// RunByBatchID returns the recorded run for a batch id.
func (s *Service) RunByBatchID(ctx context.Context, batchID string) (model.MatchingRun, error) {
	return s.runs.ByBatchID(ctx, batchID)
}

// RecentRuns returns up to n runs, newest first.
func (s *Service) RecentRuns(ctx context.Context, n int) ([]model.MatchingRun, error) {
	return s.runs.Recent(ctx, n)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":       s.started,
		"runActive":     s.runActive,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"minGroupSize":  s.params.MinSize,
		"maxGroupSize":  s.params.MaxSize,
		"cooldownWeeks": s.cooldownWeeks,
	}

	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
		stats["runsRecorded"] = s.runs.Count(ctx)
		stats["historyEntries"] = s.history.Len(ctx)
	}

	return stats
}

// acquireRun claims the single run slot. Returns false if a run is active.
func (s *Service) acquireRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runActive {
		return false
	}
	s.runActive = true
	return true
}

func (s *Service) releaseRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runActive = false
}

// rolloverOf lists the member ids of an undersized global pool.
func rolloverOf(members []model.EligibleMember) []string {
	if len(members) == 0 {
		return nil
	}
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.Profile.ID)
	}
	return model.SortMembers(ids)
}
