package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unitroot/adfz/internal/adf"
)

// TestSeedSequenceIsDeterministic tests that one master seed always yields
// the same grid and another master seed a different one
func TestSeedSequenceIsDeterministic(t *testing.T) {
	a, err := NewSeedSequence(0, 2, 3, 4)
	require.NoError(t, err)
	b, err := NewSeedSequence(0, 2, 3, 4)
	require.NoError(t, err)
	c, err := NewSeedSequence(1, 2, 3, 4)
	require.NoError(t, err)

	assert.Equal(t, a.seeds, b.seeds)
	assert.NotEqual(t, a.seeds, c.seeds)
}

func TestSeedSequencePositionsAreDistinct(t *testing.T) {
	s, err := NewSeedSequence(0, 2, 3, 4)
	require.NoError(t, err)

	seen := make(map[uint64]bool)
	for ti := 0; ti < 2; ti++ {
		for mi := 0; mi < 3; mi++ {
			for r := 0; r < 4; r++ {
				seed := s.At(ti, mi, r)
				assert.False(t, seen[seed], "seed reused at (%d,%d,%d)", ti, mi, r)
				seen[seed] = true
			}
		}
	}
}

// TestSeedSequenceRetryDerivation tests that retry seeds are reproducible,
// distinct per attempt and never reuse the failed seed
func TestSeedSequenceRetryDerivation(t *testing.T) {
	s, err := NewSeedSequence(7, 1, 2, 2)
	require.NoError(t, err)

	original := s.At(0, 1, 1)
	assert.Equal(t, original, s.Retry(0, 1, 1, 0))

	first := s.Retry(0, 1, 1, 1)
	second := s.Retry(0, 1, 1, 2)
	assert.Equal(t, first, s.Retry(0, 1, 1, 1))
	assert.NotEqual(t, original, first)
	assert.NotEqual(t, first, second)

	assert.NotEqual(t, first, s.Retry(0, 0, 1, 1), "attempts are keyed by position")
}

func TestNewSeedSequenceValidation(t *testing.T) {
	_, err := NewSeedSequence(0, 0, 3, 4)
	assert.ErrorIs(t, err, adf.ErrInvalidArgument)
	_, err = NewSeedSequence(0, 2, 0, 4)
	assert.ErrorIs(t, err, adf.ErrInvalidArgument)
	_, err = NewSeedSequence(0, 2, 3, 0)
	assert.ErrorIs(t, err, adf.ErrInvalidArgument)
}
