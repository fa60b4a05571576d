package adf

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidArgument reports a caller contract violation: an unknown trend
// specification, an unusable sample length, a negative draw count or a
// missing random source. It is never retried.
var ErrInvalidArgument = errors.New("adf: invalid argument")

// Trend identifies the deterministic regressors removed from a simulated
// series before the unit-root statistic is computed.
type Trend string

// Supported trend specifications, tagged as in the unit-root literature.
const (
	TrendNone      Trend = "nc"  // no deterministic terms
	TrendConst     Trend = "c"   // constant
	TrendConstLin  Trend = "ct"  // constant and linear trend
	TrendConstQuad Trend = "ctt" // constant, linear and quadratic trend
)

// Trends lists every supported specification in conventional order.
func Trends() []Trend {
	return []Trend{TrendNone, TrendConst, TrendConstLin, TrendConstQuad}
}

// Valid reports whether t is a supported specification.
func (t Trend) Valid() bool {
	switch t {
	case TrendNone, TrendConst, TrendConstLin, TrendConstQuad:
		return true
	}
	return false
}

// NumRegressors returns the number of deterministic regressor columns
// implied by t.
func (t Trend) NumRegressors() int {
	switch t {
	case TrendConst:
		return 1
	case TrendConstLin:
		return 2
	case TrendConstQuad:
		return 3
	}
	return 0
}

// Regressors builds the nobs-by-k deterministic design matrix for t. The
// columns are a constant, the time index 1..nobs and its square, as far as
// t requires them. TrendNone has no regressors and yields nil.
func (t Trend) Regressors(nobs int) *mat.Dense {
	k := t.NumRegressors()
	if k == 0 {
		return nil
	}
	z := mat.NewDense(nobs, k, nil)
	for i := 0; i < nobs; i++ {
		z.Set(i, 0, 1)
		if k > 1 {
			tau := float64(i + 1)
			z.Set(i, 1, tau)
			if k > 2 {
				z.Set(i, 2, tau*tau)
			}
		}
	}
	return z
}
