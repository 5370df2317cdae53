package optics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// Interpolator maps a motor position to a focus parameter by piecewise-linear
// interpolation over an ascending position column. Positions outside the
// column's range are rejected instead of extrapolated.
//
// When the column repeats a position, the left-most row wins.
type Interpolator struct {
	xs []float64
	ys []float64
	pl *interp.PiecewiseLinear
}

// NewInterpolator builds an Interpolator over xs (positions) and ys
// (parameters). xs must be ascending.
func NewInterpolator(xs, ys []float64) (*Interpolator, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("position and parameter columns differ in length: %d != %d", len(xs), len(ys))
	}
	if len(xs) == 0 {
		return nil, fmt.Errorf("empty calibration column")
	}

	in := &Interpolator{
		xs: make([]float64, 0, len(xs)),
		ys: make([]float64, 0, len(ys)),
	}
	for i, x := range xs {
		if math.IsNaN(x) || math.IsNaN(ys[i]) {
			return nil, fmt.Errorf("NaN in calibration row %d", i+1)
		}
		if n := len(in.xs); n > 0 {
			last := in.xs[n-1]
			if x < last {
				return nil, fmt.Errorf("position column is not ascending at row %d (%g < %g)", i+1, x, last)
			}
			if x == last {
				continue
			}
		}
		in.xs = append(in.xs, x)
		in.ys = append(in.ys, ys[i])
	}

	if len(in.xs) > 1 {
		in.pl = &interp.PiecewiseLinear{}
		if err := in.pl.Fit(in.xs, in.ys); err != nil {
			return nil, err
		}
	}

	return in, nil
}

// Domain returns the smallest and largest calibrated positions.
func (in *Interpolator) Domain() (lo, hi float64) {
	return in.xs[0], in.xs[len(in.xs)-1]
}

// At returns the interpolated parameter at x, and false when x is outside
// the calibrated domain.
func (in *Interpolator) At(x float64) (float64, bool) {
	lo, hi := in.Domain()
	if math.IsNaN(x) || x < lo || x > hi {
		return 0, false
	}

	// Exact hits return the tabulated value untouched.
	if i := sort.SearchFloat64s(in.xs, x); i < len(in.xs) && in.xs[i] == x {
		return in.ys[i], true
	}

	return in.pl.Predict(x), true
}
