package scoring

import (
	"math"

	"github.com/perchsocial/cohort-engine/internal/domain/model"
)

// defaultMaxAgeGap is the age difference at which the age sub-score decays
// to zero.
const defaultMaxAgeGap = 10

// Scorer computes a PairScore for two eligible members. Implementations
// must be deterministic, symmetric, and safe for concurrent use.
type Scorer interface {
	Score(a, b model.EligibleMember) model.PairScore
}

// Option applies a configuration option to the WeightedScorer.
type Option func(*WeightedScorer)

// WithMaxAgeGap sets the age gap (in years) at which the age proximity
// sub-score reaches zero.
func WithMaxAgeGap(gap int) Option {
	return func(s *WeightedScorer) {
		if gap > 0 {
			s.maxAgeGap = gap
		}
	}
}

// WeightedScorer implements Scorer as a weighted sum of per-dimension
// sub-scores. It holds no mutable state after construction, so a single
// instance is shared across concurrent bucket workers.
type WeightedScorer struct {
	weights   Weights
	maxAgeGap int
}

// New creates a WeightedScorer. The caller is responsible for validating
// the weights first (config load rejects malformed weight sets).
func New(weights Weights, opts ...Option) *WeightedScorer {
	s := &WeightedScorer{
		weights:   weights,
		maxAgeGap: defaultMaxAgeGap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the symmetric compatibility score for a pair. The pair is
// normalized to lexicographic order before scoring, and every sub-score
// formula is order-independent, so Score(a,b) == Score(b,a) by construction.
func (s *WeightedScorer) Score(a, b model.EligibleMember) model.PairScore {
	if b.Profile.ID < a.Profile.ID {
		a, b = b, a
	}
	pa, pb := a.Profile, b.Profile

	breakdown := map[string]float64{
		model.DimSpecialty:    scalarMatch(pa.Specialty, pb.Specialty),
		model.DimInterests:    jaccard(pa.Interests, pb.Interests),
		model.DimSocial:       jaccard(pa.SocialPrefs, pb.SocialPrefs),
		model.DimAvailability: jaccard(pa.AvailabilityPrefs, pb.AvailabilityPrefs),
		model.DimLocality:     scalarMatch(pa.City, pb.City),
		model.DimLifestyle:    s.lifestyle(pa, pb),
	}

	w := s.weights.byDimension()
	total := 0.0
	for _, dim := range model.Dimensions {
		total += w[dim] * breakdown[dim]
	}

	return model.PairScore{
		A:         pa.ID,
		B:         pb.ID,
		Score:     clamp01(total),
		Breakdown: breakdown,
	}
}

// lifestyle blends career-stage match and age proximity. Unset attributes
// degrade to a neutral sub-score rather than failing or penalizing.
func (s *WeightedScorer) lifestyle(a, b model.Profile) float64 {
	stage := scalarMatch(a.CareerStage, b.CareerStage)
	age := s.ageProximity(a.Age, b.Age)
	return (stage + age) / 2
}

// ageProximity decays linearly from 1.0 at equal ages to 0.0 at maxAgeGap.
func (s *WeightedScorer) ageProximity(a, b int) float64 {
	if a == 0 || b == 0 {
		return 1.0 // unknown age is neutral
	}
	gap := math.Abs(float64(a - b))
	return math.Max(0, 1-gap/float64(s.maxAgeGap))
}

// scalarMatch is exact-match scoring for scalar attributes. An unset value
// on either side is treated as neutral.
func scalarMatch(a, b string) float64 {
	if a == "" || b == "" {
		return 1.0
	}
	if a == b {
		return 1.0
	}
	return 0.0
}

// jaccard is |intersection| / |union| over two string sets, defined as 1.0
// when both sets are empty (vacuous overlap is neutral, not penalized).
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	union := make(map[string]bool, len(a)+len(b))
	for v := range set {
		union[v] = true
	}
	inter := 0
	seen := make(map[string]bool, len(b))
	for _, v := range b {
		if seen[v] {
			continue
		}
		seen[v] = true
		if set[v] {
			inter++
		}
		union[v] = true
	}
	return float64(inter) / float64(len(union))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
