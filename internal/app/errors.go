package service

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrNotStarted is returned when a run is triggered before Start.
	ErrNotStarted = errors.New("service not started")

	// ErrRunActive rejects a trigger arriving while another run is active.
	ErrRunActive = errors.New("matching run already active")

	// ErrDuplicateBatch reports that a batch id was already processed; the
	// recorded run is returned alongside it.
	ErrDuplicateBatch = errors.New("duplicate batch id")

	// ErrSnapshotUnavailable wraps profile snapshot read failures.
	ErrSnapshotUnavailable = errors.New("profile snapshot unavailable")

	// ErrRunTimeout marks a run that exceeded its time budget.
	ErrRunTimeout = errors.New("matching run exceeded time budget")
)
