package adf

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// TestSimulateReproducible tests that one seed always yields the same draws
func TestSimulateReproducible(t *testing.T) {
	for _, trend := range Trends() {
		t.Run(string(trend), func(t *testing.T) {
			first, err := Simulate(25, trend, 8, rand.NewSource(42))
			require.NoError(t, err)
			second, err := Simulate(25, trend, 8, rand.NewSource(42))
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestSimulateStatisticsAreFinite(t *testing.T) {
	stats, err := Simulate(20, TrendConst, 16, rand.NewSource(1))
	require.NoError(t, err)
	require.Len(t, stats, 16)
	for j, s := range stats {
		assert.False(t, math.IsNaN(s) || math.IsInf(s, 0), "draw %d is %v", j, s)
	}
}

// TestSimulateSplitMatchesSingleBatch tests that a shared source split over
// two calls produces exactly the draws of one larger call
func TestSimulateSplitMatchesSingleBatch(t *testing.T) {
	const n, seed = 30, 7

	whole, err := Simulate(n, TrendNone, 5, rand.NewSource(seed))
	require.NoError(t, err)

	src := rand.NewSource(seed)
	head, err := Simulate(n, TrendNone, 2, src)
	require.NoError(t, err)
	tail, err := Simulate(n, TrendNone, 3, src)
	require.NoError(t, err)
	assert.Equal(t, whole, append(append([]float64{}, head...), tail...))

	// The detrended variants go through a shared factorization; splitting
	// must still agree to numerical precision.
	whole, err = Simulate(n, TrendConstLin, 5, rand.NewSource(seed))
	require.NoError(t, err)
	src = rand.NewSource(seed)
	head, err = Simulate(n, TrendConstLin, 2, src)
	require.NoError(t, err)
	tail, err = Simulate(n, TrendConstLin, 3, src)
	require.NoError(t, err)
	assert.InDeltaSlice(t, whole, append(append([]float64{}, head...), tail...), 1e-9)
}

// TestSimulateNoTrendMatchesDirectComputation tests the statistic against an
// independent scalar evaluation of the same random walk
func TestSimulateNoTrendMatchesDirectComputation(t *testing.T) {
	const n, seed = 30, 99

	got, err := Simulate(n, TrendNone, 1, rand.NewSource(seed))
	require.NoError(t, err)
	require.Len(t, got, 1)

	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(seed)}
	levels := make([]float64, 0, n)
	var level float64
	for i := 0; i < n+burnIn; i++ {
		level += normal.Rand()
		if i >= burnIn {
			levels = append(levels, level)
		}
	}
	require.Len(t, levels, n)

	var xpy, xpx float64
	for i := 0; i+1 < n; i++ {
		xpy += levels[i] * levels[i+1]
		xpx += levels[i] * levels[i]
	}
	want := float64(n-1) * (xpy/xpx - 1)
	assert.InDelta(t, want, got[0], 1e-12)
}

// TestSimulateDetrendedMedianIsNegative tests that demeaning shifts the
// statistic's distribution well below zero, the defining feature of the
// tabulated distribution
func TestSimulateDetrendedMedianIsNegative(t *testing.T) {
	stats, err := Simulate(100, TrendConst, 500, rand.NewSource(5))
	require.NoError(t, err)
	sort.Float64s(stats)
	assert.Less(t, stats[len(stats)/2], 0.0)
}

func TestSimulateArgumentValidation(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		trend Trend
		b     int
		src   rand.Source
	}{
		{"unknown trend", 50, "abc", 1, rand.NewSource(1)},
		{"too short for quadratic trend", 4, TrendConstQuad, 1, rand.NewSource(1)},
		{"too short for constant", 2, TrendConst, 1, rand.NewSource(1)},
		{"negative batch", 50, TrendConst, -1, rand.NewSource(1)},
		{"nil source", 50, TrendConst, 1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Simulate(tt.n, tt.trend, tt.b, tt.src)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestSimulateZeroBatch(t *testing.T) {
	stats, err := Simulate(50, TrendConst, 0, rand.NewSource(1))
	require.NoError(t, err)
	assert.Nil(t, stats)
}
