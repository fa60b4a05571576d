package adf

import (
	"context"
	"fmt"

	"golang.org/x/exp/rand"
)

// DefaultMaxMemoryMiB approximately bounds the per-block random-walk state
// held by a BatchRunner when no explicit budget is configured.
const DefaultMaxMemoryMiB = 100

// BatchRunner produces an arbitrary number of statistic draws while keeping
// the transient simulation state within a memory budget. It simulates in
// blocks sized so that one block's walk matrix of 8-byte floats fits the
// budget, feeding every block from a single private random stream.
type BatchRunner struct {
	// MaxMemoryMiB caps the approximate per-block simulation state in MiB.
	// Zero or negative selects DefaultMaxMemoryMiB.
	MaxMemoryMiB int
}

// blockSize returns how many trials of length n fit the memory budget.
func (r BatchRunner) blockSize(n int) int {
	budget := r.MaxMemoryMiB
	if budget <= 0 {
		budget = DefaultMaxMemoryMiB
	}
	bs := (1 << 20) * budget / (8 * n)
	if bs < 1 {
		bs = 1
	}
	return bs
}

// Run produces total draws for (n, trend) from one stream seeded with seed.
// The returned draws are independent of MaxMemoryMiB: the budget changes how
// many trials are simulated per block, never the values, because the stream
// advances continuously across blocks and trials consume it in order.
func (r BatchRunner) Run(ctx context.Context, n int, trend Trend, total int, seed uint64) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: non-positive sample length %d", ErrInvalidArgument, n)
	}
	if total < 0 {
		return nil, fmt.Errorf("%w: negative draw count %d", ErrInvalidArgument, total)
	}

	src := rand.NewSource(seed)
	res := make([]float64, 0, total)
	bs := r.blockSize(n)
	for remaining := total; remaining > 0; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		count := bs
		if count > remaining {
			count = remaining
		}
		draws, err := Simulate(n, trend, count, src)
		if err != nil {
			return nil, err
		}
		res = append(res, draws...)
		remaining -= count
	}
	return res, nil
}
