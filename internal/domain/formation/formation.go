// Package formation partitions a locality bucket of eligible members into
// compatibility-maximizing groups under size and history constraints.
package formation

import (
	"sort"

	"github.com/google/uuid"

	"github.com/perchsocial/cohort-engine/internal/domain/history"
	"github.com/perchsocial/cohort-engine/internal/domain/model"
	"github.com/perchsocial/cohort-engine/internal/domain/scoring"
)

// State tracks a bucket through the formation pipeline.
type State string

const (
	StatePending          State = "pending"
	StateScoring          State = "scoring"
	StateForming          State = "forming"
	StateFormed           State = "formed"
	StateInsufficientPool State = "insufficient_pool"
)

// Default formation parameters.
const (
	DefaultMinGroupSize        = 3
	DefaultMaxGroupSize        = 4
	DefaultAcceptanceThreshold = 0.35
)

// groupNamespace seeds deterministic group ids: identical bucket inputs
// yield identical ids, which keeps rerun output byte-identical.
var groupNamespace = uuid.MustParse("8f3c5f44-9f2b-4a31-9c41-6f0d2b1a7e90")

// Params bounds group sizes and sets the minimum mean compatibility a
// member must have with a group to join it. Validated at config load.
type Params struct {
	MinSize   int
	MaxSize   int
	Threshold float64
}

// DefaultParams returns the documented defaults (groups of 3-4, 0.35
// acceptance threshold).
func DefaultParams() Params {
	return Params{
		MinSize:   DefaultMinGroupSize,
		MaxSize:   DefaultMaxGroupSize,
		Threshold: DefaultAcceptanceThreshold,
	}
}

// BucketResult is the outcome of forming one locality bucket.
type BucketResult struct {
	City         string
	State        State
	Groups       []model.Group
	Unplaced     []string
	ScoredPairs  int
	BlockedPairs int
}

// scoredPair is one unblocked pair with its compatibility score.
type scoredPair struct {
	a, b  string
	score float64
}

// Form runs greedy maximal-weight clustering over one locality bucket.
//
// The algorithm is deterministic for identical inputs: pairs are ranked by
// (score desc, pair key asc), members are visited in id order, and
// attachment ties prefer the smaller group and then the group containing
// the lexicographically smaller member id. Blocked pairs are never placed
// together; groups that end below the minimum size are dissolved back into
// the unplaced set.
func Form(city string, bucket []model.EligibleMember, scorer scoring.Scorer, guard *history.Guard, week model.Week, params Params) BucketResult {
	res := BucketResult{City: city, State: StatePending}

	if len(bucket) < params.MinSize {
		res.State = StateInsufficientPool
		res.Unplaced = memberIDs(bucket)
		return res
	}

	res.State = StateScoring
	scores, pairs, blocked := scorePairs(bucket, scorer, guard)
	res.ScoredPairs = len(pairs)
	res.BlockedPairs = blocked

	res.State = StateForming
	groups := cluster(bucket, scores, pairs, params)

	// Dissolve undersized groups rather than forming substandard ones.
	placed := make(map[string]bool)
	for _, g := range groups {
		if len(g) < params.MinSize {
			continue
		}
		for _, id := range g {
			placed[id] = true
		}
		res.Groups = append(res.Groups, buildGroup(city, g, scores, week))
	}
	for _, m := range bucket {
		if !placed[m.Profile.ID] {
			res.Unplaced = append(res.Unplaced, m.Profile.ID)
		}
	}
	model.SortMembers(res.Unplaced)

	res.State = StateFormed
	return res
}

// scorePairs computes every unblocked pairwise score in the bucket. Blocked
// pairs are left out of both the score map and the ranked list, which makes
// them unselectable without any -inf sentinel arithmetic.
func scorePairs(bucket []model.EligibleMember, scorer scoring.Scorer, guard *history.Guard) (map[string]float64, []scoredPair, int) {
	scores := make(map[string]float64)
	var pairs []scoredPair
	blocked := 0
	for i := 0; i < len(bucket); i++ {
		for j := i + 1; j < len(bucket); j++ {
			a, b := bucket[i], bucket[j]
			if guard != nil && guard.Blocked(a.Profile.ID, b.Profile.ID) {
				blocked++
				continue
			}
			ps := scorer.Score(a, b)
			scores[model.PairKey(ps.A, ps.B)] = ps.Score
			pairs = append(pairs, scoredPair{a: ps.A, b: ps.B, score: ps.Score})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score > pairs[j].score
		}
		return model.PairKey(pairs[i].a, pairs[i].b) < model.PairKey(pairs[j].a, pairs[j].b)
	})
	return scores, pairs, blocked
}

// cluster runs the greedy seed-and-attach loop. Each pass visits unplaced
// members in id order; passes repeat until none of them can be placed.
func cluster(bucket []model.EligibleMember, scores map[string]float64, pairs []scoredPair, params Params) [][]string {
	ids := memberIDs(bucket)
	sort.Strings(ids)

	unplaced := make(map[string]bool, len(ids))
	for _, id := range ids {
		unplaced[id] = true
	}

	var groups [][]string

	// Seed the first group from the highest-scoring unblocked pair.
	if g, ok := seed(pairs, unplaced, params); ok {
		groups = append(groups, g)
	} else {
		return nil
	}

	for changed := true; changed; {
		changed = false
		for _, id := range ids {
			if !unplaced[id] {
				continue
			}
			if gi, ok := bestAttachment(id, groups, scores, params); ok {
				groups[gi] = append(groups[gi], id)
				sort.Strings(groups[gi])
				delete(unplaced, id)
				changed = true
				continue
			}
			// No group qualifies: seed a fresh group from the next-highest
			// unblocked pair, provided enough members remain to ever reach
			// the minimum size.
			if len(unplaced)-1 >= params.MinSize-1 {
				if g, ok := seed(pairs, unplaced, params); ok {
					groups = append(groups, g)
					changed = true
				}
			}
		}
	}
	return groups
}

// seed takes the highest-ranked pair whose members are both unplaced and
// forms a 2-member group from it.
func seed(pairs []scoredPair, unplaced map[string]bool, params Params) ([]string, bool) {
	if params.MaxSize < 2 {
		return nil, false
	}
	for _, p := range pairs {
		if unplaced[p.a] && unplaced[p.b] {
			delete(unplaced, p.a)
			delete(unplaced, p.b)
			g := []string{p.a, p.b}
			sort.Strings(g)
			return g, true
		}
	}
	return nil, false
}

// bestAttachment finds the group the member fits best, or none. A group
// qualifies when it has room, no pair involving the member is blocked
// (blocked pairs are absent from the score map), and the mean score meets
// the acceptance threshold. Ties prefer the smaller group, then the group
// whose smallest member id sorts first.
func bestAttachment(id string, groups [][]string, scores map[string]float64, params Params) (int, bool) {
	best := -1
	bestMean := 0.0
	for gi, g := range groups {
		if len(g) >= params.MaxSize {
			continue
		}
		mean, ok := meanScore(id, g, scores)
		if !ok || mean < params.Threshold {
			continue
		}
		if best == -1 || better(mean, g, bestMean, groups[best]) {
			best = gi
			bestMean = mean
		}
	}
	return best, best != -1
}

// better applies the deterministic tie-break between candidate attachments.
func better(mean float64, g []string, bestMean float64, bestGroup []string) bool {
	if mean != bestMean {
		return mean > bestMean
	}
	if len(g) != len(bestGroup) {
		return len(g) < len(bestGroup)
	}
	return g[0] < bestGroup[0]
}

// meanScore is the mean compatibility between the member and every current
// group member. ok is false if any of those pairs is blocked.
func meanScore(id string, group []string, scores map[string]float64) (float64, bool) {
	total := 0.0
	for _, other := range group {
		s, ok := scores[model.PairKey(id, other)]
		if !ok {
			return 0, false
		}
		total += s
	}
	return total / float64(len(group)), true
}

// buildGroup assembles the immutable Group record, including its mean
// pairwise compatibility and a content-derived id.
func buildGroup(city string, members []string, scores map[string]float64, week model.Week) model.Group {
	model.SortMembers(members)
	total, n := 0.0, 0
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			total += scores[model.PairKey(members[i], members[j])]
			n++
		}
	}
	mean := 0.0
	if n > 0 {
		mean = total / float64(n)
	}

	name := city + "/" + week.String()
	for _, id := range members {
		name += "/" + id
	}
	return model.Group{
		ID:        uuid.NewSHA1(groupNamespace, []byte(name)).String(),
		City:      city,
		Members:   members,
		MeanScore: mean,
		Week:      week,
	}
}

func memberIDs(bucket []model.EligibleMember) []string {
	ids := make([]string, 0, len(bucket))
	for _, m := range bucket {
		ids = append(ids, m.Profile.ID)
	}
	return ids
}
