package service

import (
	"time"

	"github.com/perchsocial/cohort-engine/internal/adapters/notify"
	"github.com/perchsocial/cohort-engine/internal/adapters/repository"
	"github.com/perchsocial/cohort-engine/internal/adapters/snapshot"
	"github.com/perchsocial/cohort-engine/internal/domain/formation"
	"github.com/perchsocial/cohort-engine/internal/domain/scoring"
	"github.com/perchsocial/cohort-engine/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSource sets the profile snapshot source.
func WithSource(src snapshot.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithRunStore sets the run store.
func WithRunStore(store repository.RunStore) Option {
	return func(s *Service) {
		if store != nil {
			s.runs = store
		}
	}
}

// WithHistoryStore sets the match history store.
func WithHistoryStore(store repository.HistoryStore) Option {
	return func(s *Service) {
		if store != nil {
			s.history = store
		}
	}
}

// WithAnnouncer sets the downstream group-formed announcer.
func WithAnnouncer(a notify.Announcer) Option {
	return func(s *Service) {
		if a != nil {
			s.announcer = a
		}
	}
}

// WithScorer sets the pairwise compatibility scorer.
func WithScorer(sc scoring.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithFormationParams sets group size bounds and acceptance threshold.
func WithFormationParams(p formation.Params) Option {
	return func(s *Service) {
		if p.MinSize > 0 && p.MaxSize >= p.MinSize {
			s.params = p
		}
	}
}

// WithCooldownWeeks sets the pair-history cooldown window.
func WithCooldownWeeks(weeks int) Option {
	return func(s *Service) {
		if weeks >= 0 {
			s.cooldownWeeks = weeks
		}
	}
}

// WithGroupTTLWeeks sets how long group membership keeps members out of
// the eligible pool.
func WithGroupTTLWeeks(weeks int) Option {
	return func(s *Service) {
		if weeks >= 0 {
			s.groupTTLWeeks = weeks
		}
	}
}

// WithWorkerCount sets the number of bucket formation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the bucket job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithRunTimeout sets the per-run time budget.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.runTimeout = d
		}
	}
}

// WithScheduleInterval sets the automatic trigger cadence.
func WithScheduleInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.scheduleInterval = d
		}
	}
}

// WithClock overrides the time source. Intended for tests that need to
// pin the run week.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
