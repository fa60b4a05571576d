// Package adf simulates the empirical distribution of the Augmented
// Dickey-Fuller z-test statistic: the sample size times the deviation of the
// OLS autoregressive slope from one, computed on a simulated random walk
// after removing deterministic trend regressors.
package adf

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// burnIn is the number of leading random-walk steps discarded so the
// statistic does not depend on the walk's arbitrary starting value.
const burnIn = 50

// Simulate draws b independent ADF z statistics for series of length n under
// the given trend specification. Every call must supply its own seeded
// source; there is no global-entropy fallback.
//
// The source is consumed trial by trial: each trial draws its full n+burnIn
// innovations before the next trial starts. Splitting a batch across several
// calls that share one source therefore returns exactly the draws a single
// larger call would have returned.
func Simulate(n int, trend Trend, b int, src rand.Source) ([]float64, error) {
	if !trend.Valid() {
		return nil, fmt.Errorf("%w: unknown trend %q", ErrInvalidArgument, trend)
	}
	k := trend.NumRegressors()
	if n < k+2 {
		return nil, fmt.Errorf("%w: sample length %d too short for trend %q", ErrInvalidArgument, n, trend)
	}
	if b < 0 {
		return nil, fmt.Errorf("%w: negative batch size %d", ErrInvalidArgument, b)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: nil random source (explicit seeding is required)", ErrInvalidArgument)
	}
	if b == 0 {
		return nil, nil
	}

	nobs := n - 1
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	// Walk each trial forward through its burn-in, keeping the last n levels.
	// lead holds levels 1..n-1 of the retained walk, lag the same levels one
	// step earlier.
	lead := mat.NewDense(nobs, b, nil)
	lag := mat.NewDense(nobs, b, nil)
	for j := 0; j < b; j++ {
		var level float64
		for t := 0; t < n+burnIn; t++ {
			level += normal.Rand()
			i := t - burnIn
			if i >= 1 {
				lead.Set(i-1, j, level)
			}
			if i >= 0 && i < nobs {
				lag.Set(i, j, level)
			}
		}
	}

	if k > 0 {
		z := trend.Regressors(nobs)
		var qr mat.QR
		qr.Factorize(z)
		if err := residualize(&qr, z, lead); err != nil {
			return nil, err
		}
		if err := residualize(&qr, z, lag); err != nil {
			return nil, err
		}
	}

	// stat_j = nobs * (sum(lag*lead) / sum(lag^2) - 1), accumulated row-wise
	// over the time axis for all b columns at once.
	xpy := make([]float64, b)
	xpx := make([]float64, b)
	for i := 0; i < nobs; i++ {
		lr := lag.RawRowView(i)
		dr := lead.RawRowView(i)
		for j, v := range lr {
			xpy[j] += v * dr[j]
			xpx[j] += v * v
		}
	}
	stats := make([]float64, b)
	for j := range stats {
		stats[j] = float64(nobs) * (xpy[j]/xpx[j] - 1)
	}
	return stats, nil
}

// residualize replaces each column of y with its OLS residual against z,
// reusing one factorization for all columns.
func residualize(qr *mat.QR, z mat.Matrix, y *mat.Dense) error {
	var beta, fitted mat.Dense
	if err := qr.SolveTo(&beta, false, y); err != nil {
		return fmt.Errorf("adf: detrend solve: %w", err)
	}
	fitted.Mul(z, &beta)
	y.Sub(y, &fitted)
	return nil
}
