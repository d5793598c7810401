package transport

import (
	"fmt"

	"github.com/san-kum/plasma1d/internal/plasma"
)

// DriftDiffusion is reserved for the drift-diffusion closure
// (flux = -D grad n +/- Mu n E). It has no field solver to supply E, so
// every call fails with ErrUnsupportedClosure.
type DriftDiffusion struct{}

func NewDriftDiffusion() *DriftDiffusion { return &DriftDiffusion{} }

func (DriftDiffusion) Name() string { return "drift-diffusion" }

func (d DriftDiffusion) ComputeCoefficients(*plasma.State) (*Coefficients, error) {
	return nil, d.unsupported()
}

func (d DriftDiffusion) ComputeFlux(*plasma.State) ([]float64, []float64, error) {
	return nil, nil, d.unsupported()
}

func (d DriftDiffusion) unsupported() error {
	return fmt.Errorf("%w: %s requires a self-consistent field", ErrUnsupportedClosure, d.Name())
}
