// Package snapshot defines the read-only port to the external profile
// store. The engine treats the pool as a point-in-time list and never
// writes back.
package snapshot

import (
	"context"

	"github.com/perchsocial/cohort-engine/internal/domain/model"
)

// Source supplies the candidate profile pool for a run.
type Source interface {
	// Profiles returns the current pool. An error marks the whole run
	// failed; no partial state may be persisted.
	Profiles(ctx context.Context) ([]model.Profile, error)
}

// StaticSource is an in-memory Source backed by a fixed slice. Used by
// tests and the pool generator; production deployments plug in a real
// profile-store adapter.
type StaticSource struct {
	profiles []model.Profile
	err      error
}

// NewStaticSource copies the given profiles into a StaticSource.
func NewStaticSource(profiles []model.Profile) *StaticSource {
	cp := make([]model.Profile, len(profiles))
	copy(cp, profiles)
	return &StaticSource{profiles: cp}
}

// NewFailingSource returns a Source whose Profiles call always fails.
func NewFailingSource(err error) *StaticSource {
	return &StaticSource{err: err}
}

// Profiles implements Source.
func (s *StaticSource) Profiles(ctx context.Context) ([]model.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]model.Profile, len(s.profiles))
	copy(out, s.profiles)
	return out, nil
}
