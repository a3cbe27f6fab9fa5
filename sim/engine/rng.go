package engine

import (
	"hash/fnv"
	"math"
	"math/rand"
)

// Epsilon is the floor applied to sampled latencies so that no delay is non-positive.
const Epsilon = 1e-10

// PartitionedRNG hands every actor its own random stream, seeded with
// seed XOR fnv1a64(actor name). Draws in one actor never shift another's samples,
// so adding a worker leaves the client's arrivals unchanged.
// Not safe for concurrent use.
type PartitionedRNG struct {
	seed    int64
	streams map[string]*rand.Rand
}

func NewPartitionedRNG(seed int64) *PartitionedRNG {
	return &PartitionedRNG{seed: seed, streams: make(map[string]*rand.Rand)}
}

// Stream returns the stream of the named actor, creating it on first use.
func (p *PartitionedRNG) Stream(name string) *rand.Rand {
	if rng, ok := p.streams[name]; ok {
		return rng
	}
	h := fnv.New64a()
	h.Write([]byte(name))
	rng := rand.New(rand.NewSource(p.seed ^ int64(h.Sum64())))
	p.streams[name] = rng
	return rng
}

// Seed returns the run seed the streams derive from.
func (p *PartitionedRNG) Seed() int64 {
	return p.seed
}

// GaussianDelay samples a latency with mean mu and standard deviation mu/10,
// floored at Epsilon.
func GaussianDelay(rng *rand.Rand, mu float64) float64 {
	sigma := mu / 10
	return math.Max(rng.NormFloat64()*sigma+mu, Epsilon)
}

// ExponentialDelay samples a rollover interval with the given mean.
func ExponentialDelay(rng *rand.Rand, mean float64) float64 {
	return rng.ExpFloat64() * mean
}
