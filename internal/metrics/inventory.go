package metrics

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/plasma1d/internal/plasma"
)

// ParticleLoss reports the fraction of the electron inventory lost since
// Begin, or since the first observation when Begin was not called.
type ParticleLoss struct {
	name    string
	initial float64
	current float64
	samples int
}

func NewParticleLoss() *ParticleLoss {
	return &ParticleLoss{name: "particle_loss"}
}

func (p *ParticleLoss) Name() string { return p.name }

func (p *ParticleLoss) Begin(st *plasma.State) {
	e, _ := st.Inventory()
	p.initial, p.current, p.samples = e, e, 1
}

func (p *ParticleLoss) Observe(st *plasma.State, t float64) {
	e, _ := st.Inventory()
	if p.samples == 0 {
		p.initial = e
	}
	p.current = e
	p.samples++
}

func (p *ParticleLoss) Value() float64 {
	if p.samples == 0 || p.initial == 0 {
		return 0
	}
	return 1 - p.current/p.initial
}

func (p *ParticleLoss) Reset() {
	p.initial = 0
	p.current = 0
	p.samples = 0
}

// PeakDensity is the largest electron density seen at any node.
type PeakDensity struct {
	name string
	peak float64
}

func NewPeakDensity() *PeakDensity {
	return &PeakDensity{name: "peak_ne"}
}

func (p *PeakDensity) Name() string { return p.name }

func (p *PeakDensity) Observe(st *plasma.State, t float64) {
	p.peak = max(p.peak, floats.Max(st.Ne))
}

func (p *PeakDensity) Value() float64 { return p.peak }

func (p *PeakDensity) Reset() { p.peak = 0 }
