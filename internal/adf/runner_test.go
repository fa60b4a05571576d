package adf

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBatchRunnerBlockSize tests the memory-derived block arithmetic
func TestBatchRunnerBlockSize(t *testing.T) {
	tests := []struct {
		name   string
		budget int
		n      int
		want   int
	}{
		{"default budget", 0, 2000, 6553},
		{"small series", 100, 20, 655360},
		{"tight budget clamps to one trial", 1, 200000, 1},
		{"negative budget uses default", -5, 2000, 6553},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := BatchRunner{MaxMemoryMiB: tt.budget}
			assert.Equal(t, tt.want, r.blockSize(tt.n))
		})
	}
}

// TestBatchRunnerBudgetInvariance tests that the memory budget changes block
// boundaries but never the draws
func TestBatchRunnerBudgetInvariance(t *testing.T) {
	const (
		n     = 200
		total = 1000
		seed  = 3
	)
	ctx := context.Background()

	tight := BatchRunner{MaxMemoryMiB: 1}
	roomy := BatchRunner{MaxMemoryMiB: 100}

	a, err := tight.Run(ctx, n, TrendNone, total, seed)
	require.NoError(t, err)
	b, err := roomy.Run(ctx, n, TrendNone, total, seed)
	require.NoError(t, err)
	require.Len(t, a, total)
	assert.Equal(t, a, b)

	a, err = tight.Run(ctx, n, TrendConstLin, total, seed)
	require.NoError(t, err)
	b, err = roomy.Run(ctx, n, TrendConstLin, total, seed)
	require.NoError(t, err)
	assert.InDeltaSlice(t, a, b, 1e-9)
}

func TestBatchRunnerSmallRunIsFinite(t *testing.T) {
	r := BatchRunner{MaxMemoryMiB: 100}
	stats, err := r.Run(context.Background(), 20, TrendConst, 4, 0)
	require.NoError(t, err)
	require.Len(t, stats, 4)
	for j, s := range stats {
		assert.False(t, math.IsNaN(s) || math.IsInf(s, 0), "draw %d is %v", j, s)
	}
}

func TestBatchRunnerDrawCount(t *testing.T) {
	r := BatchRunner{MaxMemoryMiB: 1}
	stats, err := r.Run(context.Background(), 5000, TrendConst, 100, 11)
	require.NoError(t, err)
	assert.Len(t, stats, 100)
}

func TestBatchRunnerZeroTotal(t *testing.T) {
	stats, err := BatchRunner{}.Run(context.Background(), 100, TrendConst, 0, 1)
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestBatchRunnerValidation(t *testing.T) {
	ctx := context.Background()

	_, err := BatchRunner{}.Run(ctx, 0, TrendConst, 10, 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = BatchRunner{}.Run(ctx, 100, TrendConst, -1, 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = BatchRunner{}.Run(ctx, 100, "bogus", 10, 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestBatchRunnerHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := BatchRunner{}.Run(ctx, 100, TrendConst, 10, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
