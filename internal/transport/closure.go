// Package transport computes transport coefficients and particle fluxes
// from a plasma state.
//
// Three closures implement [Closure]:
//
//   - [DiffusionOnly]: Fick's law per species, no coupling
//   - [Ambipolar]: a single ambipolar coefficient Da, with fluxe == fluxi
//   - [DriftDiffusion]: not supported, every call returns [ErrUnsupportedClosure]
//
// Coefficients come from a [CoefficientModel]: either the constant
// [Baseline] or [Collisional], which derives D and Mu from caller-supplied
// collision frequencies. Boundary nodes of every coefficient array are set
// by extension and then clamped to [Limits].
//
// Closures read the state and return freshly allocated arrays. They never
// write into the state they are given.
package transport

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/plasma1d/internal/plasma"
)

var (
	// ErrDomain indicates inputs for which a closure formula has no finite
	// value, such as Ti <= 0 in the Te/Ti ratio.
	ErrDomain = errors.New("transport: domain error")

	// ErrUnsupportedClosure is returned by closures that are declared but not
	// implemented, and for unknown closure names.
	ErrUnsupportedClosure = errors.New("transport: unsupported closure")
)

type Closure interface {
	Name() string
	ComputeCoefficients(st *plasma.State) (*Coefficients, error)
	ComputeFlux(st *plasma.State) (fluxe, fluxi []float64, err error)
}

// QuasiNeutral closures dictate the electron density from the ion density.
type QuasiNeutral interface {
	ElectronDensity(st *plasma.State) []float64
}

// DiffusivityBounder reports the largest effective diffusion coefficient a
// closure will apply, for time step advisories.
type DiffusivityBounder interface {
	MaxDiffusivity(st *plasma.State) (float64, error)
}

// MaxDiffusivity returns the largest diffusion coefficient c applies to st.
// Closures that do not implement DiffusivityBounder fall back to the
// largest De or Di.
func MaxDiffusivity(c Closure, st *plasma.State) (float64, error) {
	if b, ok := c.(DiffusivityBounder); ok {
		return b.MaxDiffusivity(st)
	}
	co, err := c.ComputeCoefficients(st)
	if err != nil {
		return 0, err
	}
	if co == nil {
		return 0, fmt.Errorf("%w: %s returned no coefficients", ErrDomain, c.Name())
	}
	return max(floats.Max(co.De), floats.Max(co.Di)), nil
}

// Options configure the coefficient handling shared by all closures.
type Options struct {
	// Model defaults to DefaultBaseline.
	Model CoefficientModel
	// Limits defaults to DefaultLimits when left zero.
	Limits Limits
	// Static computes coefficients once and reuses them for every call.
	Static bool
}

func DefaultOptions() Options {
	return Options{Model: DefaultBaseline(), Limits: DefaultLimits()}
}

// coefficientSet is embedded by every closure.
type coefficientSet struct {
	model  CoefficientModel
	limits Limits
	static bool
	cached *Coefficients
}

func newCoefficientSet(opts Options) coefficientSet {
	if opts.Model == nil {
		opts.Model = DefaultBaseline()
	}
	if opts.Limits == (Limits{}) {
		opts.Limits = DefaultLimits()
	}
	return coefficientSet{model: opts.Model, limits: opts.Limits, static: opts.Static}
}

func (s *coefficientSet) coefficients(st *plasma.State) (*Coefficients, error) {
	if s.static && s.cached != nil {
		return s.cached.Clone(), nil
	}
	c, err := s.model.Interior(st)
	if err != nil {
		return nil, err
	}
	c.extend()
	c.clamp(s.limits)
	if s.static {
		s.cached = c.Clone()
	}
	return c, nil
}

func clone(v []float64) []float64 {
	c := make([]float64, len(v))
	copy(c, v)
	return c
}
