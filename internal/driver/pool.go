package driver

import (
	"context"

	"github.com/unitroot/adfz/pkg/workpool"
)

// Unit is one schedulable replication, producing its raw statistic draws.
type Unit func(ctx context.Context) ([]float64, error)

// UnitResult pairs a unit's index within its batch with its outcome.
type UnitResult struct {
	Index int
	Draws []float64
	Err   error
}

// Pool is the worker engine the driver fans replications out to. Any batch
// engine with submit/poll/collect/purge semantics can stand in.
type Pool interface {
	// Submit schedules every unit without blocking and returns a batch
	// token to poll.
	Submit(ctx context.Context, units []Unit) (Batch, error)
	// Purge discards all retained results for completed batches. It must
	// fail when any unit is still in flight.
	Purge() error
}

// Batch is one submitted batch of units.
type Batch interface {
	// Ready reports whether every unit has finished.
	Ready() (bool, error)
	// Results returns per-unit outcomes ordered by submission index. It is
	// only valid once Ready reports true.
	Results() ([]UnitResult, error)
}

// AdaptPool exposes an in-process workpool as a driver Pool.
func AdaptPool(p *workpool.Pool[[]float64]) Pool {
	return poolAdapter{p}
}

type poolAdapter struct {
	p *workpool.Pool[[]float64]
}

func (a poolAdapter) Submit(ctx context.Context, units []Unit) (Batch, error) {
	wu := make([]workpool.Unit[[]float64], len(units))
	for i, u := range units {
		wu[i] = workpool.Unit[[]float64](u)
	}
	h, err := a.p.SubmitBatch(ctx, wu)
	if err != nil {
		return nil, err
	}
	return batchAdapter{p: a.p, h: h}, nil
}

func (a poolAdapter) Purge() error {
	return a.p.Purge()
}

type batchAdapter struct {
	p *workpool.Pool[[]float64]
	h workpool.Handle
}

func (b batchAdapter) Ready() (bool, error) {
	return b.p.Ready(b.h)
}

func (b batchAdapter) Results() ([]UnitResult, error) {
	rs, err := b.p.Results(b.h)
	if err != nil {
		return nil, err
	}
	out := make([]UnitResult, len(rs))
	for i, r := range rs {
		out[i] = UnitResult{Index: r.Index, Draws: r.Value, Err: r.Err}
	}
	return out, nil
}
