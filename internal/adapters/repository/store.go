// Package repository defines the run and history store interfaces and
// their in-memory implementations. Persistence technology is a deployment
// concern; everything behind these interfaces is append-only.
package repository

import (
	"context"

	"github.com/perchsocial/cohort-engine/internal/domain/model"
)

// RunStore records one immutable MatchingRun per invocation.
type RunStore interface {
	// Append stores a finished run. Returns ErrDuplicateBatch if the batch
	// id was already recorded.
	Append(ctx context.Context, run model.MatchingRun) error

	// ByBatchID returns the recorded run for a batch id, or ErrRunNotFound.
	ByBatchID(ctx context.Context, batchID string) (model.MatchingRun, error)

	// Latest returns the most recently appended run, or ErrRunNotFound
	// when no run has ever been recorded.
	Latest(ctx context.Context) (model.MatchingRun, error)

	// Recent returns up to n runs, newest first.
	Recent(ctx context.Context, n int) ([]model.MatchingRun, error)

	// ActiveMembers returns the ids of members belonging to a group whose
	// formation week is within ttlWeeks of runWeek.
	ActiveMembers(ctx context.Context, runWeek model.Week, ttlWeeks int) (map[string]bool, error)

	// Count returns the number of recorded runs.
	Count(ctx context.Context) int
}

// HistoryStore is the append-only match history log read by the history
// guard. Entries are only appended after a run completes successfully.
type HistoryStore interface {
	// Append adds entries for the formed groups of a completed run.
	Append(ctx context.Context, entries []model.HistoryEntry) error

	// EntriesSince returns entries with a week at or after the given week.
	EntriesSince(ctx context.Context, week model.Week) ([]model.HistoryEntry, error)

	// Len returns the total number of retained entries.
	Len(ctx context.Context) int
}
