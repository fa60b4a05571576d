// Package driver orchestrates the simulation grid. For every trend
// specification and sample length it fans replications out to a worker
// pool, awaits completion with a polling backoff, reduces the collected
// draws to percentiles and checkpoints the growing table after each sample
// length, so a multi-day run survives restarts at sample-length
// granularity.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"time"

	"github.com/unitroot/adfz/internal/adf"
	"github.com/unitroot/adfz/internal/config"
	"github.com/unitroot/adfz/internal/table"
)

// ErrCellAbandoned reports a cell whose replications kept failing after the
// configured retries. The cell's table column stays unpopulated; other
// cells are unaffected.
var ErrCellAbandoned = errors.New("driver: cell abandoned")

// heartbeatPolls is how many empty polls pass between liveness log lines
// while awaiting a batch.
const heartbeatPolls = 10

// Driver owns the results tables and the seed sequence for one run. All
// numerical work happens inside the pool's units; the driver only submits,
// collects, reduces and persists.
type Driver struct {
	cfg    *config.Run
	pool   Pool
	log    Logger
	seeds  *SeedSequence
	runner adf.BatchRunner
}

// New wires a driver for the given configuration. A nil logger selects
// NopLogger.
func New(cfg *config.Run, pool Pool, log Logger) (*Driver, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil configuration", adf.ErrInvalidArgument)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", adf.ErrInvalidArgument, err)
	}
	if pool == nil {
		return nil, fmt.Errorf("%w: nil pool", adf.ErrInvalidArgument)
	}
	if log == nil {
		log = NopLogger{}
	}
	seeds, err := NewSeedSequence(cfg.MasterSeed, len(cfg.Trends), len(cfg.SampleSizes), cfg.Replications)
	if err != nil {
		return nil, err
	}
	return &Driver{
		cfg:    cfg,
		pool:   pool,
		log:    log,
		seeds:  seeds,
		runner: adf.BatchRunner{MaxMemoryMiB: cfg.MaxMemoryMiB},
	}, nil
}

// Run processes every configured trend specification in order. Cells that
// fail after retries are abandoned and reported joined at the end;
// persistence failures and pool contract violations abort the run
// immediately. Already-checkpointed artifacts stay valid regardless of how
// the run ends.
func (d *Driver) Run(ctx context.Context) error {
	var cellErrs []error
	for ti, trend := range d.cfg.Trends {
		if err := d.runTrend(ctx, ti, trend, &cellErrs); err != nil {
			return err
		}
	}
	return errors.Join(cellErrs...)
}

func (d *Driver) runTrend(ctx context.Context, ti int, trend adf.Trend, cellErrs *[]error) error {
	path := filepath.Join(d.cfg.OutputDir, table.Filename(trend))
	tbl, err := d.openTable(trend, path)
	if err != nil {
		return err
	}

	start := time.Now()
	for mi, n := range d.cfg.SampleSizes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if tbl.ColumnComplete(mi) {
			d.log.Infof("trend %s n=%d already complete, skipping", trend, n)
			continue
		}

		cellStart := time.Now()
		err := d.runCell(ctx, ti, mi, n, trend, tbl)
		switch {
		case err == nil:
			if err := table.Save(path, tbl); err != nil {
				return fmt.Errorf("driver: checkpoint trend %s: %w", trend, err)
			}
			d.log.Infof("trend %s n=%d complete in %s (trend elapsed %s)",
				trend, n, time.Since(cellStart).Round(time.Second), time.Since(start).Round(time.Second))
		case errors.Is(err, ErrCellAbandoned):
			d.log.Errorf("%v", err)
			*cellErrs = append(*cellErrs, err)
		default:
			return err
		}
	}
	return nil
}

// openTable starts a trend's table, adopting a previous checkpoint when
// resuming and it matches the configured grid.
func (d *Driver) openTable(trend adf.Trend, path string) (*table.Table, error) {
	if d.cfg.Resume {
		tbl, err := table.Load(path)
		switch {
		case err == nil:
			if d.gridMatches(tbl, trend) {
				d.log.Infof("trend %s: resuming from %s", trend, path)
				return tbl, nil
			}
			d.log.Warnf("trend %s: %s does not match the configured grid, starting fresh", trend, path)
		case errors.Is(err, fs.ErrNotExist):
			// nothing to resume from
		case errors.Is(err, table.ErrCorrupt):
			d.log.Warnf("trend %s: %v, starting fresh", trend, err)
		default:
			return nil, err
		}
	}
	return table.New(trend, d.cfg.Percentiles, d.cfg.SampleSizes, d.cfg.Replications)
}

func (d *Driver) gridMatches(tbl *table.Table, trend adf.Trend) bool {
	return tbl.Trend == trend &&
		tbl.Reps == d.cfg.Replications &&
		slices.Equal(tbl.Percentiles, d.cfg.Percentiles) &&
		slices.Equal(tbl.Lengths, d.cfg.SampleSizes)
}

// runCell runs every replication for one (trend, sample length) cell,
// retrying failed replications with freshly derived seeds, and writes the
// reduced percentiles into the table column. On abandonment the column is
// left untouched so a later resume reruns the whole cell.
func (d *Driver) runCell(ctx context.Context, ti, mi, n int, trend adf.Trend, tbl *table.Table) error {
	reps := d.cfg.Replications
	draws := make([][]float64, reps)

	pending := make([]int, reps)
	for r := range pending {
		pending[r] = r
	}

	for round := 0; len(pending) > 0 && round <= d.cfg.Retries; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if round == 0 {
			d.log.Infof("trend %s n=%d: submitting %d replications", trend, n, len(pending))
		} else {
			d.log.Warnf("trend %s n=%d: retrying %d failed replications (attempt %d)", trend, n, len(pending), round)
		}

		units := make([]Unit, len(pending))
		for i, rep := range pending {
			seed := d.seeds.Retry(ti, mi, rep, round)
			units[i] = func(ctx context.Context) ([]float64, error) {
				return d.runner.Run(ctx, n, trend, d.cfg.DrawsPerReplication, seed)
			}
		}

		batch, err := d.pool.Submit(ctx, units)
		if err != nil {
			return fmt.Errorf("driver: submit trend %s n=%d: %w", trend, n, err)
		}
		if err := d.await(ctx, batch, trend, n); err != nil {
			return err
		}
		results, err := batch.Results()
		if err != nil {
			return fmt.Errorf("driver: collect trend %s n=%d: %w", trend, n, err)
		}
		if err := d.pool.Purge(); err != nil {
			return fmt.Errorf("driver: purge after trend %s n=%d: %w", trend, n, err)
		}

		var failed []int
		for _, res := range results {
			rep := pending[res.Index]
			if res.Err != nil {
				d.log.Errorf("trend %s n=%d: replication %d failed (attempt %d): %v", trend, n, rep, round, res.Err)
				failed = append(failed, rep)
				continue
			}
			draws[rep] = res.Draws
		}
		pending = failed
	}

	if len(pending) > 0 {
		return fmt.Errorf("%w: trend %s n=%d: %d of %d replications failed after %d retries",
			ErrCellAbandoned, trend, n, len(pending), reps, d.cfg.Retries)
	}

	for rep, dr := range draws {
		qs, err := adf.Quantiles(d.cfg.Percentiles, dr)
		if err != nil {
			return fmt.Errorf("driver: reduce trend %s n=%d replication %d: %w", trend, n, rep, err)
		}
		if err := tbl.SetReplication(mi, rep, qs); err != nil {
			return fmt.Errorf("driver: store trend %s n=%d replication %d: %w", trend, n, rep, err)
		}
	}
	return nil
}

// await polls the batch until it completes, sleeping the configured
// interval between polls and logging a liveness heartbeat while the pool
// works.
func (d *Driver) await(ctx context.Context, b Batch, trend adf.Trend, n int) error {
	interval := d.cfg.PollInterval()
	submitted := time.Now()
	for polls := 0; ; polls++ {
		ready, err := b.Ready()
		if err != nil {
			return fmt.Errorf("driver: poll trend %s n=%d: %w", trend, n, err)
		}
		if ready {
			return nil
		}
		if polls > 0 && polls%heartbeatPolls == 0 {
			d.log.Infof("trend %s n=%d: still running after %s", trend, n, time.Since(submitted).Round(time.Second))
		}
		if err := sleepCtx(ctx, interval); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
