package model

import (
	"sort"
	"time"
)

// Dimension names used in PairScore breakdowns and weight configuration.
const (
	DimSpecialty    = "specialty"
	DimInterests    = "interests"
	DimSocial       = "social"
	DimAvailability = "availability"
	DimLocality     = "locality"
	DimLifestyle    = "lifestyle"
)

// Dimensions lists every scoring dimension in a stable order.
var Dimensions = []string{
	DimSpecialty,
	DimInterests,
	DimSocial,
	DimAvailability,
	DimLocality,
	DimLifestyle,
}

// PairScore is the symmetric compatibility score for an unordered member
// pair. A and B are stored in lexicographic order.
type PairScore struct {
	A         string
	B         string
	Score     float64
	Breakdown map[string]float64
}

// PairKey returns the canonical "a|b" key for an unordered member pair,
// with the lexicographically smaller id first.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// HistoryEntry records that two members shared a group in a given week.
// Append-only; the pair is normalized so A < B.
type HistoryEntry struct {
	A    string
	B    string
	Week Week
}

// NewHistoryEntry normalizes the pair ordering.
func NewHistoryEntry(a, b string, week Week) HistoryEntry {
	if b < a {
		a, b = b, a
	}
	return HistoryEntry{A: a, B: b, Week: week}
}

// Group is one formed cohort. Immutable after formation.
type Group struct {
	ID        string
	City      string
	Members   []string
	MeanScore float64
	Week      Week
}

// Pairs enumerates every unordered member pair within the group.
func (g Group) Pairs() []HistoryEntry {
	var out []HistoryEntry
	for i := 0; i < len(g.Members); i++ {
		for j := i + 1; j < len(g.Members); j++ {
			out = append(out, NewHistoryEntry(g.Members[i], g.Members[j], g.Week))
		}
	}
	return out
}

// RunStatus is the terminal status of a matching run.
type RunStatus string

const (
	RunCompleted        RunStatus = "completed"
	RunInsufficientPool RunStatus = "insufficient_pool"
	RunFailed           RunStatus = "failed"
)

// TriggerSource identifies how a run was started.
type TriggerSource string

const (
	TriggerScheduled TriggerSource = "scheduled"
	TriggerManual    TriggerSource = "manual"
)

// MatchingRun is the immutable record of one engine invocation. BatchID is
// the unit of idempotency: replaying a batch id must not double-process.
type MatchingRun struct {
	BatchID       string
	Trigger       TriggerSource
	Week          Week
	StartedAt     time.Time
	Duration      time.Duration
	PoolSize      int
	EligibleCount int
	Groups        []Group
	Rollover      []string
	Status        RunStatus
	Error         string
}

// PlacedCount returns the number of members placed into groups.
func (r MatchingRun) PlacedCount() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Members)
	}
	return n
}

// SortMembers sorts a member id slice in place and returns it. Group member
// lists and rollover lists are kept sorted so identical inputs produce
// byte-identical run records.
func SortMembers(ids []string) []string {
	sort.Strings(ids)
	return ids
}
