// Package eligibility reduces a raw profile snapshot to the members who
// qualify for a matching run.
package eligibility

import (
	"sort"

	"github.com/perchsocial/cohort-engine/internal/domain/model"
)

// ActiveSet reports whether a member currently belongs to a non-expired
// group. The caller owns the underlying data; nil means no active groups.
type ActiveSet map[string]bool

// Filter applies the eligibility rules to a profile snapshot. Members
// failing any rule are dropped silently; this is a pure function.
//
// Rules, all of which must hold: verified, subscribed, onboarding complete,
// and not currently in an active group.
func Filter(profiles []model.Profile, active ActiveSet) []model.EligibleMember {
	out := make([]model.EligibleMember, 0, len(profiles))
	for _, p := range profiles {
		if !p.Verified || !p.Subscribed || !p.OnboardingComplete {
			continue
		}
		if active[p.ID] {
			continue
		}
		out = append(out, model.EligibleMember{Profile: p, City: p.City})
	}
	return out
}

// Buckets partitions eligible members by city. Bucket member order and the
// returned city order are deterministic (sorted) so downstream formation is
// reproducible for identical snapshots.
func Buckets(members []model.EligibleMember) (map[string][]model.EligibleMember, []string) {
	buckets := make(map[string][]model.EligibleMember)
	for _, m := range members {
		buckets[m.City] = append(buckets[m.City], m)
	}
	cities := make([]string, 0, len(buckets))
	for city, bucket := range buckets {
		sort.Slice(bucket, func(i, j int) bool {
			return bucket[i].Profile.ID < bucket[j].Profile.ID
		})
		buckets[city] = bucket
		cities = append(cities, city)
	}
	sort.Strings(cities)
	return buckets, cities
}
