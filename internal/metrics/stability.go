package metrics

import (
	"github.com/san-kum/plasma1d/internal/plasma"
)

// Stability is the fraction of steps on which no interior density sat on a
// limit. Clamped densities are the usual sign of a time step above the
// explicit diffusion limit.
type Stability struct {
	name       string
	violations int
	samples    int
}

func NewStability() *Stability {
	return &Stability{name: "stability"}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(st *plasma.State, t float64) {
	s.samples++
	l := st.Config().Limits
	for _, f := range [][]float64{st.Ne, st.Ni} {
		for _, v := range f[1 : len(f)-1] {
			if v <= l.NMin || v >= l.NMax {
				s.violations++
				return
			}
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
