// Package table accumulates simulated critical values for one trend
// specification and persists them as a NumPy-compatible artifact.
package table

import (
	"fmt"
	"math"

	"github.com/unitroot/adfz/internal/adf"
)

// Table is the dense result grid for one trend specification, indexed by
// [percentile level, sample length, replication]. Cells start at NaN and are
// filled one replication at a time as results arrive, so an incomplete
// column is detectable after a crash or an abandoned cell.
type Table struct {
	Trend       adf.Trend
	Percentiles []float64
	Lengths     []int
	Reps        int

	// data holds the grid in C order: percentile varies slowest,
	// replication fastest.
	data []float64
}

// New allocates a NaN-filled table for the given grid.
func New(trend adf.Trend, percentiles []float64, lengths []int, reps int) (*Table, error) {
	if !trend.Valid() {
		return nil, fmt.Errorf("%w: unknown trend %q", adf.ErrInvalidArgument, trend)
	}
	if len(percentiles) == 0 {
		return nil, fmt.Errorf("%w: empty percentile grid", adf.ErrInvalidArgument)
	}
	if len(lengths) == 0 {
		return nil, fmt.Errorf("%w: empty sample-length sequence", adf.ErrInvalidArgument)
	}
	if reps <= 0 {
		return nil, fmt.Errorf("%w: non-positive replication count %d", adf.ErrInvalidArgument, reps)
	}

	data := make([]float64, len(percentiles)*len(lengths)*reps)
	for i := range data {
		data[i] = math.NaN()
	}
	return &Table{
		Trend:       trend,
		Percentiles: percentiles,
		Lengths:     lengths,
		Reps:        reps,
		data:        data,
	}, nil
}

func (t *Table) index(p, m, r int) int {
	return (p*len(t.Lengths)+m)*t.Reps + r
}

// At returns the stored value for percentile index p, length index m and
// replication r. Unfilled cells are NaN.
func (t *Table) At(p, m, r int) float64 {
	return t.data[t.index(p, m, r)]
}

// SetReplication stores one replication's reduced percentile vector in the
// column for length index m.
func (t *Table) SetReplication(m, r int, qs []float64) error {
	if m < 0 || m >= len(t.Lengths) {
		return fmt.Errorf("%w: length index %d out of range", adf.ErrInvalidArgument, m)
	}
	if r < 0 || r >= t.Reps {
		return fmt.Errorf("%w: replication index %d out of range", adf.ErrInvalidArgument, r)
	}
	if len(qs) != len(t.Percentiles) {
		return fmt.Errorf("%w: got %d quantiles for a %d-level grid", adf.ErrInvalidArgument, len(qs), len(t.Percentiles))
	}
	for p, q := range qs {
		t.data[t.index(p, m, r)] = q
	}
	return nil
}

// ColumnComplete reports whether every cell for length index m has been
// filled. Out-of-range indices are never complete.
func (t *Table) ColumnComplete(m int) bool {
	if m < 0 || m >= len(t.Lengths) {
		return false
	}
	for p := range t.Percentiles {
		for r := 0; r < t.Reps; r++ {
			if math.IsNaN(t.At(p, m, r)) {
				return false
			}
		}
	}
	return true
}

// Data exposes the backing grid in C order. Callers must treat it as
// read-only.
func (t *Table) Data() []float64 {
	return t.data
}
