// Package history tracks recently grouped pairs and blocks rematches
// within the cooldown window.
package history

import (
	"github.com/perchsocial/cohort-engine/internal/domain/model"
)

// DefaultCooldownWeeks is the minimum elapsed time before two previously
// grouped members may be grouped again.
const DefaultCooldownWeeks = 8

// Guard answers O(1) blocked-pair lookups during group formation. It is
// built once per run from the history log and is read-only afterwards, so
// concurrent bucket workers share one instance without synchronization.
type Guard struct {
	lastShared map[string]model.Week
	runWeek    model.Week
	cooldown   int
}

// Option applies a configuration option to the Guard.
type Option func(*Guard)

// WithCooldownWeeks overrides the default cooldown window.
func WithCooldownWeeks(weeks int) Option {
	return func(g *Guard) {
		if weeks > 0 {
			g.cooldown = weeks
		}
	}
}

// NewGuard indexes the history entries relevant to a run starting in
// runWeek. Entries older than the cooldown window are skipped at build
// time, so the lookup structure stays bounded regardless of total
// historical volume.
func NewGuard(entries []model.HistoryEntry, runWeek model.Week, opts ...Option) *Guard {
	g := &Guard{
		lastShared: make(map[string]model.Week),
		runWeek:    runWeek,
		cooldown:   DefaultCooldownWeeks,
	}
	for _, opt := range opts {
		opt(g)
	}
	for _, e := range entries {
		if runWeek.Sub(e.Week) >= g.cooldown {
			continue
		}
		key := model.PairKey(e.A, e.B)
		if prev, ok := g.lastShared[key]; !ok || e.Week > prev {
			g.lastShared[key] = e.Week
		}
	}
	return g
}

// Blocked reports whether the unordered pair (a, b) shared a group within
// the cooldown window of the run's week.
func (g *Guard) Blocked(a, b string) bool {
	week, ok := g.lastShared[model.PairKey(a, b)]
	if !ok {
		return false
	}
	return g.runWeek.Sub(week) < g.cooldown
}

// BlockedCount returns the number of pairs currently indexed as blocked.
func (g *Guard) BlockedCount() int {
	return len(g.lastShared)
}
