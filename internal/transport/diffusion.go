package transport

import (
	"github.com/san-kum/plasma1d/internal/plasma"
)

// DiffusionOnly applies Fick's law to each species independently:
// fluxe = -De dne/dx, fluxi = -Di dni/dx.
type DiffusionOnly struct {
	coefficientSet
}

func NewDiffusionOnly(opts Options) *DiffusionOnly {
	return &DiffusionOnly{coefficientSet: newCoefficientSet(opts)}
}

func (d *DiffusionOnly) Name() string { return "diffusion" }

func (d *DiffusionOnly) ComputeCoefficients(st *plasma.State) (*Coefficients, error) {
	return d.coefficients(st)
}

func (d *DiffusionOnly) ComputeFlux(st *plasma.State) ([]float64, []float64, error) {
	c, err := d.coefficients(st)
	if err != nil {
		return nil, nil, err
	}
	dne := st.Mesh.FirstDerivative(st.Ne)
	dni := st.Mesh.FirstDerivative(st.Ni)
	fluxe := make([]float64, st.Len())
	fluxi := make([]float64, st.Len())
	for i := range fluxe {
		fluxe[i] = -c.De[i] * dne[i]
		fluxi[i] = -c.Di[i] * dni[i]
	}
	return fluxe, fluxi, nil
}
