// Package poolgen produces synthetic member pools for exercising the
// matching engine end to end and for seeding local development.
package poolgen

import (
	"fmt"
	"math/rand"

	"github.com/perchsocial/cohort-engine/internal/domain/model"
)

// Attribute vocabularies drawn from for generated profiles.
var (
	specialties = []string{
		"cardiology", "oncology", "pediatrics", "psychiatry",
		"radiology", "dermatology", "emergency", "family-medicine",
	}
	careerStages = []string{"student", "resident", "fellow", "attending"}
	interestPool = []string{
		"running", "climbing", "cycling", "coffee", "wine",
		"cooking", "travel", "photography", "reading", "gaming",
	}
	socialPool       = []string{"small-group", "large-group", "one-on-one"}
	availabilityPool = []string{"weeknights", "weekends", "mornings", "flexible"}
)

// Age bounds for generated members.
const (
	minAge   = 24
	ageRange = 40
)

// defaultIneligibleRate is the fraction of generated profiles that fail at
// least one eligibility rule, so filtering always has something to drop.
const defaultIneligibleRate = 0.1

// Options controls pool generation. A fixed Seed yields a reproducible pool.
type Options struct {
	Seed           int64
	Size           int
	Cities         []string
	IneligibleRate float64
}

// Generate builds a synthetic profile pool. Member ids are stable for a
// given seed and size, so repeated runs over the same options exercise the
// engine's determinism guarantees.
func Generate(opts Options) []model.Profile {
	if opts.Size <= 0 {
		return nil
	}
	cities := opts.Cities
	if len(cities) == 0 {
		cities = []string{"Austin", "Boise", "Chicago", "Denver"}
	}
	rate := opts.IneligibleRate
	if rate <= 0 {
		rate = defaultIneligibleRate
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	pool := make([]model.Profile, 0, opts.Size)
	for i := 0; i < opts.Size; i++ {
		p := model.Profile{
			ID:                 fmt.Sprintf("member-%04d", i),
			City:               cities[rng.Intn(len(cities))],
			Specialty:          specialties[rng.Intn(len(specialties))],
			CareerStage:        careerStages[rng.Intn(len(careerStages))],
			Age:                minAge + rng.Intn(ageRange),
			Interests:          pick(rng, interestPool, 2+rng.Intn(3)),
			SocialPrefs:        pick(rng, socialPool, 1+rng.Intn(2)),
			AvailabilityPrefs:  pick(rng, availabilityPool, 1+rng.Intn(2)),
			Verified:           true,
			Subscribed:         true,
			OnboardingComplete: true,
		}
		if rng.Float64() < rate {
			// Knock out one eligibility rule at random.
			switch rng.Intn(3) {
			case 0:
				p.Verified = false
			case 1:
				p.Subscribed = false
			default:
				p.OnboardingComplete = false
			}
		}
		pool = append(pool, p)
	}
	return pool
}

// pick samples n distinct values from vocab.
func pick(rng *rand.Rand, vocab []string, n int) []string {
	if n > len(vocab) {
		n = len(vocab)
	}
	idx := rng.Perm(len(vocab))[:n]
	out := make([]string, 0, n)
	for _, i := range idx {
		out = append(out, vocab[i])
	}
	return out
}
