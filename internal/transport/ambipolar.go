package transport

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/plasma1d/internal/mesh"
	"github.com/san-kum/plasma1d/internal/plasma"
)

// AmbipolarForm selects the expression used for the ambipolar coefficient.
type AmbipolarForm int

const (
	// Simplified uses Da = Di (1 + Te/Ti), valid when Mue >> Mui.
	Simplified AmbipolarForm = iota
	// General uses Da = (De Mui + Di Mue) / (Mue + Mui).
	General
)

func (f AmbipolarForm) String() string {
	switch f {
	case Simplified:
		return "simplified"
	case General:
		return "general"
	}
	return fmt.Sprintf("AmbipolarForm(%d)", int(f))
}

func ParseAmbipolarForm(s string) (AmbipolarForm, error) {
	switch strings.ToLower(s) {
	case "", "simplified":
		return Simplified, nil
	case "general":
		return General, nil
	}
	return 0, fmt.Errorf("%w: unknown ambipolar form %q", ErrUnsupportedClosure, s)
}

// AmbipolarField is the self-consistent field Ea (V/m) and the ambipolar
// diffusion coefficient Da (m^2/s) on every node.
type AmbipolarField struct {
	Ea []float64
	Da []float64
}

// Ambipolar couples both species through a single coefficient Da. Ions and
// electrons carry the same flux and ne is slaved to ni.
type Ambipolar struct {
	coefficientSet
	form AmbipolarForm
}

func NewAmbipolar(opts Options, form AmbipolarForm) *Ambipolar {
	return &Ambipolar{coefficientSet: newCoefficientSet(opts), form: form}
}

func (a *Ambipolar) Name() string        { return "ambipolar" }
func (a *Ambipolar) Form() AmbipolarForm { return a.form }

func (a *Ambipolar) ComputeCoefficients(st *plasma.State) (*Coefficients, error) {
	return a.coefficients(st)
}

// Field computes Ea and Da. Interior nodes with ni == 0 get Ea = 0.
func (a *Ambipolar) Field(st *plasma.State) (*AmbipolarField, error) {
	c, err := a.coefficients(st)
	if err != nil {
		return nil, err
	}
	return a.field(st, c, st.Mesh.FirstDerivative(st.Ni))
}

func (a *Ambipolar) field(st *plasma.State, c *Coefficients, dni []float64) (*AmbipolarField, error) {
	n := st.Len()
	f := &AmbipolarField{Ea: make([]float64, n), Da: make([]float64, n)}
	for i := 1; i < n-1; i++ {
		switch a.form {
		case General:
			f.Da[i] = (c.De[i]*c.Mui[i] + c.Di[i]*c.Mue[i]) / (c.Mue[i] + c.Mui[i])
		default:
			ti := st.Ti[i]
			if !(ti > 0) {
				return nil, fmt.Errorf("%w: Ti = %g at node %d", ErrDomain, ti, i)
			}
			ratio := st.Te[i] / ti
			if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
				return nil, fmt.Errorf("%w: Te/Ti not finite at node %d", ErrDomain, i)
			}
			f.Da[i] = c.Di[i] * (1 + ratio)
		}
		var grad float64
		if st.Ni[i] != 0 {
			grad = dni[i] / st.Ni[i]
		}
		f.Ea[i] = (c.Di[i] - c.De[i]) / (c.Mui[i] + c.Mue[i]) * grad
	}
	mesh.Extend(f.Ea)
	mesh.Extend(f.Da)
	return f, nil
}

// ComputeFlux returns fluxi = -Da dni/dx and an independent copy as fluxe.
func (a *Ambipolar) ComputeFlux(st *plasma.State) ([]float64, []float64, error) {
	c, err := a.coefficients(st)
	if err != nil {
		return nil, nil, err
	}
	dni := st.Mesh.FirstDerivative(st.Ni)
	f, err := a.field(st, c, dni)
	if err != nil {
		return nil, nil, err
	}
	fluxi := make([]float64, st.Len())
	for i := range fluxi {
		fluxi[i] = -f.Da[i] * dni[i]
	}
	return clone(fluxi), fluxi, nil
}

// ElectronDensity returns a copy of Ni.
func (a *Ambipolar) ElectronDensity(st *plasma.State) []float64 {
	return clone(st.Ni)
}

func (a *Ambipolar) MaxDiffusivity(st *plasma.State) (float64, error) {
	f, err := a.Field(st)
	if err != nil {
		return 0, err
	}
	return floats.Max(f.Da), nil
}
