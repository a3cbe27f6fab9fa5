// Package workload generates the synthetic user population that drives the client.
package workload

import (
	"math"
	"math/rand"
	"sort"

	"github.com/pkg/errors"
)

// Distribution names accepted by NewUserSampler.
const (
	DistributionUniform     = "uniform"
	DistributionLinear      = "linear"
	DistributionExponential = "exponential"
)

// ErrInvalidPopulation is returned when no user sampler can be built.
var ErrInvalidPopulation = errors.New("invalid user population")

// exponentialBase is the per-index decay of the exponential user distribution.
const exponentialBase = 0.8

// validDistributions maps accepted distribution names.
var validDistributions = map[string]bool{
	DistributionUniform:     true,
	DistributionLinear:      true,
	DistributionExponential: true,
}

// IsValidDistribution returns true if name is a recognized user distribution.
func IsValidDistribution(name string) bool {
	return validDistributions[name]
}

// UserWeights returns the unnormalized arrival weight of every user in [0, numUsers).
func UserWeights(distribution string, numUsers int) ([]float64, error) {
	if numUsers <= 0 {
		return nil, errors.Wrapf(ErrInvalidPopulation, "num_users must be positive, got %d", numUsers)
	}
	weights := make([]float64, numUsers)
	for i := range weights {
		switch distribution {
		case DistributionUniform:
			weights[i] = 1
		case DistributionLinear:
			weights[i] = float64(i + 1)
		case DistributionExponential:
			weights[i] = math.Pow(exponentialBase, float64(i))
		default:
			return nil, errors.Wrapf(ErrInvalidPopulation, "unsupported user_distribution: %q", distribution)
		}
	}
	return weights, nil
}

// UserSampler draws user IDs with probability proportional to their weight,
// using inverse CDF via binary search.
type UserSampler struct {
	cdf []float64 // cumulative normalized weights, one per user
}

// NewUserSampler creates a sampler over [0, numUsers) for the named distribution.
func NewUserSampler(distribution string, numUsers int) (*UserSampler, error) {
	weights, err := UserWeights(distribution, numUsers)
	if err != nil {
		return nil, err
	}
	return NewWeightedSampler(weights)
}

// NewWeightedSampler creates a sampler from arbitrary non-negative weights.
func NewWeightedSampler(weights []float64) (*UserSampler, error) {
	total := 0.0
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, errors.Wrapf(ErrInvalidPopulation, "weight %d is invalid: %v", i, w)
		}
		total += w
	}
	if total <= 0 {
		return nil, errors.Wrap(ErrInvalidPopulation, "weights must have a positive sum")
	}

	cdf := make([]float64, len(weights))
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w / total
		cdf[i] = cumulative
	}
	// Ensure last CDF entry is exactly 1.0
	cdf[len(cdf)-1] = 1.0

	return &UserSampler{cdf: cdf}, nil
}

// NumUsers returns the size of the population.
func (s *UserSampler) NumUsers() int {
	return len(s.cdf)
}

// Sample returns a user ID.
func (s *UserSampler) Sample(rng *rand.Rand) int {
	if len(s.cdf) == 1 {
		return 0
	}
	u := rng.Float64()
	// First index whose cumulative weight exceeds u; zero-weight users are never picked.
	idx := sort.Search(len(s.cdf), func(i int) bool { return s.cdf[i] > u })
	if idx >= len(s.cdf) {
		idx = len(s.cdf) - 1
	}
	return idx
}
