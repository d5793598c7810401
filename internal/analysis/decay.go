package analysis

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrInsufficientData is returned when fewer than two usable samples remain.
var ErrInsufficientData = errors.New("analysis: insufficient data")

// DecayFit describes n(t) = N0 exp(-Rate t).
type DecayFit struct {
	Rate float64 // 1/s
	Tau  float64 // s, +Inf when Rate <= 0
	N0   float64
	R2   float64
}

// FitDecay fits an exponential to (t, n) by least squares on log n.
// Non-positive or non-finite samples are skipped.
func FitDecay(t, n []float64) (DecayFit, error) {
	if len(t) != len(n) {
		return DecayFit{}, fmt.Errorf("analysis: %d times for %d samples", len(t), len(n))
	}
	xs := make([]float64, 0, len(t))
	ys := make([]float64, 0, len(n))
	for i, v := range n {
		if !(v > 0) || math.IsInf(v, 0) || math.IsNaN(t[i]) {
			continue
		}
		xs = append(xs, t[i])
		ys = append(ys, math.Log(v))
	}
	if len(xs) < 2 {
		return DecayFit{}, fmt.Errorf("%w: %d positive samples", ErrInsufficientData, len(xs))
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	fit := DecayFit{
		Rate: -beta,
		N0:   math.Exp(alpha),
		R2:   stat.RSquared(xs, ys, nil, alpha, beta),
		Tau:  math.Inf(1),
	}
	if fit.Rate > 0 {
		fit.Tau = 1 / fit.Rate
	}
	return fit, nil
}

// DiffusionTime is the e-folding time Lambda^2/D of the fundamental mode
// of a slab of the given width with zero density at both walls, where
// Lambda = width/pi.
func DiffusionTime(width, d float64) float64 {
	if !(d > 0) {
		return math.Inf(1)
	}
	l := width / math.Pi
	return l * l / d
}
