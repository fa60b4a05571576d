package driver

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/unitroot/adfz/internal/adf"
)

// SeedSequence fixes one reproducible seed per replication for the whole
// run. Every seed is generated up front from the master seed at a position
// determined by (trend index, length index, replication index), so any
// replication can be rerun in isolation under the same configuration.
type SeedSequence struct {
	numLengths int
	reps       int
	seeds      []uint64
}

// NewSeedSequence pre-generates seeds for a numTrends by numLengths by reps
// grid from the master seed.
func NewSeedSequence(master uint64, numTrends, numLengths, reps int) (*SeedSequence, error) {
	if numTrends <= 0 || numLengths <= 0 || reps <= 0 {
		return nil, fmt.Errorf("%w: empty seed grid %dx%dx%d", adf.ErrInvalidArgument, numTrends, numLengths, reps)
	}
	rng := rand.New(rand.NewSource(master))
	seeds := make([]uint64, numTrends*numLengths*reps)
	for i := range seeds {
		seeds[i] = rng.Uint64()
	}
	return &SeedSequence{
		numLengths: numLengths,
		reps:       reps,
		seeds:      seeds,
	}, nil
}

// At returns the seed for one replication position.
func (s *SeedSequence) At(trendIdx, lengthIdx, repIdx int) uint64 {
	return s.seeds[(trendIdx*s.numLengths+lengthIdx)*s.reps+repIdx]
}

// Retry derives the seed for the attempt-th rerun of a replication. Attempt
// zero is the original position seed; later attempts walk a private stream
// keyed by it, so retries are reproducible yet never reuse a failed seed.
func (s *SeedSequence) Retry(trendIdx, lengthIdx, repIdx, attempt int) uint64 {
	seed := s.At(trendIdx, lengthIdx, repIdx)
	if attempt <= 0 {
		return seed
	}
	rng := rand.New(rand.NewSource(seed))
	var out uint64
	for i := 0; i < attempt; i++ {
		out = rng.Uint64()
	}
	return out
}
