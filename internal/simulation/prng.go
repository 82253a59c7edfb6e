package simulation

import (
	"math/rand/v2"
)

// pcgStream is the fixed PCG stream selector. Changing it changes every seeded run.
const pcgStream = 0x9e3779b97f4a7c15

// Stream is a seeded, reproducible source of uniforms in [0,1).
// A Stream is owned by exactly one trial and is not safe for concurrent use.
type Stream struct {
	rng *rand.Rand
}

// NewStream creates a stream whose sequence is fully determined by seed.
func NewStream(seed int64) *Stream {
	return &Stream{rng: rand.New(rand.NewPCG(uint64(seed), pcgStream))}
}

// TrialSeed derives the per-trial seed (seed + trialIndex).
func TrialSeed(seed int64, trial int) int64 {
	return seed + int64(trial)
}

// Float64 returns the next uniform in [0,1).
func (s *Stream) Float64() float64 {
	return s.rng.Float64()
}

// Bernoulli reports whether an event with probability p fires.
func (s *Stream) Bernoulli(p float64) bool {
	if p <= 0 {
		// Still consume a draw so the stream position does not depend on p.
		s.rng.Float64()
		return false
	}
	return s.rng.Float64() < p
}
