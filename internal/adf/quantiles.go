package adf

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DefaultPercentiles returns the standard critical-value grid: every half
// percent from 0.5 through 99.5.
func DefaultPercentiles() []float64 {
	levels := make([]float64, 0, 199)
	for i := 1; i < 200; i++ {
		levels = append(levels, float64(i)/2)
	}
	return levels
}

// Quantiles reduces draws to empirical quantiles at the given percentile
// levels. Levels are percentages strictly between 0 and 100; draws is sorted
// in place. For non-decreasing levels the output is non-decreasing.
func Quantiles(levels, draws []float64) ([]float64, error) {
	if len(draws) == 0 {
		return nil, fmt.Errorf("%w: no draws to reduce", ErrInvalidArgument)
	}
	for _, p := range levels {
		if p <= 0 || p >= 100 {
			return nil, fmt.Errorf("%w: percentile level %v outside (0, 100)", ErrInvalidArgument, p)
		}
	}
	sort.Float64s(draws)
	out := make([]float64, len(levels))
	for i, p := range levels {
		out[i] = stat.Quantile(p/100, stat.LinInterp, draws, nil)
	}
	return out, nil
}
