package workpool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrClosed reports a submission to a pool that has been closed.
	ErrClosed = errors.New("workpool: pool closed")
	// ErrNotReady reports a result collection before every unit finished.
	ErrNotReady = errors.New("workpool: batch not ready")
	// ErrUnknownBatch reports a handle the pool is not caching.
	ErrUnknownBatch = errors.New("workpool: unknown batch")
	// ErrOutstanding reports a purge attempted while units are in flight.
	ErrOutstanding = errors.New("workpool: results outstanding")
	// ErrPanic wraps a panic recovered from a unit.
	ErrPanic = errors.New("workpool: unit panicked")
)

// Unit is one independently runnable piece of work.
type Unit[R any] func(ctx context.Context) (R, error)

// Result pairs a unit's position in its batch with its outcome.
type Result[R any] struct {
	Index int
	Value R
	Err   error
}

// Handle identifies a submitted batch.
type Handle uint64

type batch[R any] struct {
	results []Result[R]
	done    chan struct{}
}

func (b *batch[R]) ready() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// Pool runs batches of units on a bounded set of workers and caches their
// results for later collection. The zero value is not usable; construct
// with New.
type Pool[R any] struct {
	workers int

	mu       sync.Mutex
	wg       sync.WaitGroup
	next     Handle
	batches  map[Handle]*batch[R]
	inflight int
	closed   bool
}

type options struct {
	workers int
}

// Option configures a Pool.
type Option func(*options)

// WithWorkers bounds how many units run at once. Values below one select
// runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// New builds an idle pool.
func New[R any](opts ...Option) *Pool[R] {
	o := options{workers: runtime.NumCPU()}
	for _, fn := range opts {
		fn(&o)
	}
	if o.workers < 1 {
		o.workers = runtime.NumCPU()
	}
	return &Pool[R]{
		workers: o.workers,
		batches: make(map[Handle]*batch[R]),
	}
}

// SubmitBatch schedules every unit and returns without waiting for any of
// them. Units start in submission order and run concurrently, at most the
// configured number at a time. The batch becomes ready once every unit has
// returned; a unit that fails or panics reports through its own Result
// without affecting the rest of the batch.
func (p *Pool[R]) SubmitBatch(ctx context.Context, units []Unit[R]) (Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrClosed
	}
	p.next++
	h := p.next
	b := &batch[R]{
		results: make([]Result[R], len(units)),
		done:    make(chan struct{}),
	}
	p.batches[h] = b
	if len(units) == 0 {
		close(b.done)
		return h, nil
	}
	p.inflight += len(units)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		var g errgroup.Group
		g.SetLimit(p.workers)
		for i, u := range units {
			i, u := i, u
			g.Go(func() error {
				b.results[i] = p.runUnit(ctx, i, u)
				p.mu.Lock()
				p.inflight--
				p.mu.Unlock()
				return nil
			})
		}
		// Unit failures land in their Result; the group only bounds
		// concurrency.
		_ = g.Wait()
		close(b.done)
	}()
	return h, nil
}

func (p *Pool[R]) runUnit(ctx context.Context, i int, u Unit[R]) (res Result[R]) {
	res.Index = i
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	res.Value, res.Err = u(ctx)
	return res
}

// Ready reports whether every unit in the batch has finished.
func (p *Pool[R]) Ready(h Handle) (bool, error) {
	p.mu.Lock()
	b, ok := p.batches[h]
	p.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrUnknownBatch, h)
	}
	return b.ready(), nil
}

// Results returns the batch's results ordered by unit index. The batch stays
// cached until Purge, so results may be collected more than once.
func (p *Pool[R]) Results(h Handle) ([]Result[R], error) {
	p.mu.Lock()
	b, ok := p.batches[h]
	p.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBatch, h)
	}
	if !b.ready() {
		return nil, ErrNotReady
	}
	return b.results, nil
}

// Outstanding counts units submitted but not yet finished.
func (p *Pool[R]) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inflight
}

// Purge forgets every cached batch, invalidating their handles. It refuses
// while any unit is still running so results cannot be dropped mid-batch.
func (p *Pool[R]) Purge() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inflight > 0 {
		return fmt.Errorf("%w: %d units in flight", ErrOutstanding, p.inflight)
	}
	p.batches = make(map[Handle]*batch[R])
	return nil
}

// Close rejects further submissions, waits for in-flight units to finish and
// drops all cached batches. Closing an already closed pool is a no-op.
func (p *Pool[R]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()

	p.mu.Lock()
	p.batches = make(map[Handle]*batch[R])
	p.mu.Unlock()
	return nil
}
