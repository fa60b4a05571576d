// Package workpool provides a small, generic worker pool for batch task
// processing with deferred result collection.
//
// The primary type is Pool[R], a bounded pool that runs batches of units
// concurrently and caches each batch's results under a Handle until the
// caller collects them. Submission never blocks: a dispatcher feeds the
// units to the workers in the background while the caller polls for
// completion.
//
// # Basic Usage
//
//	pool := workpool.New[float64](workpool.WithWorkers(8))
//	h, err := pool.SubmitBatch(ctx, units)
//	if err != nil {
//	    return err
//	}
//	for {
//	    ready, err := pool.Ready(h)
//	    if err != nil {
//	        return err
//	    }
//	    if ready {
//	        break
//	    }
//	    time.Sleep(time.Second)
//	}
//	results, err := pool.Results(h)
//
// # Error Handling
//
// Unit failures are never fatal to the batch: each unit reports through its
// own Result, and panics are recovered into errors wrapping ErrPanic. The
// pool's own methods return sentinel errors (ErrNotReady, ErrUnknownBatch,
// ErrOutstanding, ErrClosed) that callers can test with errors.Is.
//
// Collected batches stay cached until Purge, which refuses to run while any
// unit is still in flight so results cannot be dropped mid-batch.
package workpool
