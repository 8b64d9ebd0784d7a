// Package scoring computes symmetric pairwise compatibility scores from
// member profile attributes.
package scoring

import (
	"fmt"
	"math"

	"github.com/perchsocial/cohort-engine/internal/domain/model"
)

// weightSumTolerance bounds how far the weight sum may drift from 1.0
// before the configuration is rejected.
const weightSumTolerance = 1e-6

// Weights assigns a relative weight to each scoring dimension. The weights
// must be non-negative and sum to 1.0; validation happens at config load
// time, never per scoring call.
type Weights struct {
	Specialty    float64 `koanf:"specialty"`
	Interests    float64 `koanf:"interests"`
	Social       float64 `koanf:"social"`
	Availability float64 `koanf:"availability"`
	Locality     float64 `koanf:"locality"`
	Lifestyle    float64 `koanf:"lifestyle"`
}

// DefaultWeights returns the documented default dimension weights.
func DefaultWeights() Weights {
	return Weights{
		Specialty:    0.30,
		Interests:    0.25,
		Social:       0.15,
		Availability: 0.10,
		Locality:     0.15,
		Lifestyle:    0.05,
	}
}

// Validate checks that every weight is non-negative and the sum is 1.0
// within tolerance.
func (w Weights) Validate() error {
	for dim, v := range w.byDimension() {
		if v < 0 {
			return fmt.Errorf("%w: dimension %q has negative weight %v", ErrInvalidWeights, dim, v)
		}
	}
	if sum := w.sum(); math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: weights sum to %v, want 1.0", ErrInvalidWeights, sum)
	}
	return nil
}

func (w Weights) sum() float64 {
	return w.Specialty + w.Interests + w.Social + w.Availability + w.Locality + w.Lifestyle
}

func (w Weights) byDimension() map[string]float64 {
	return map[string]float64{
		model.DimSpecialty:    w.Specialty,
		model.DimInterests:    w.Interests,
		model.DimSocial:       w.Social,
		model.DimAvailability: w.Availability,
		model.DimLocality:     w.Locality,
		model.DimLifestyle:    w.Lifestyle,
	}
}
