package transport

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/unit/constant"

	"github.com/san-kum/plasma1d/internal/mesh"
	"github.com/san-kum/plasma1d/internal/plasma"
)

// ElectronMass in kg.
const ElectronMass = 9.1093837015e-31

// Coefficients holds per-node diffusion coefficients (m^2/s) and mobilities
// (m^2/(V s)).
type Coefficients struct {
	De, Di   []float64
	Mue, Mui []float64
}

func newCoefficients(n int) *Coefficients {
	return &Coefficients{
		De:  make([]float64, n),
		Di:  make([]float64, n),
		Mue: make([]float64, n),
		Mui: make([]float64, n),
	}
}

func (c *Coefficients) Clone() *Coefficients {
	return &Coefficients{De: clone(c.De), Di: clone(c.Di), Mue: clone(c.Mue), Mui: clone(c.Mui)}
}

func (c *Coefficients) extend() {
	for _, f := range [][]float64{c.De, c.Di, c.Mue, c.Mui} {
		mesh.Extend(f)
	}
}

func (c *Coefficients) clamp(l Limits) {
	clampTo(c.De, l.Electron.D)
	clampTo(c.Mue, l.Electron.Mu)
	clampTo(c.Di, l.Ion.D)
	clampTo(c.Mui, l.Ion.Mu)
}

type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

type SpeciesLimits struct {
	D  Range `yaml:"d" json:"d"`
	Mu Range `yaml:"mu" json:"mu"`
}

// Limits bound the coefficients of each species to keep the explicit
// scheme away from stiffness.
type Limits struct {
	Electron SpeciesLimits `yaml:"electron" json:"electron"`
	Ion      SpeciesLimits `yaml:"ion" json:"ion"`
}

func DefaultLimits() Limits {
	s := SpeciesLimits{D: Range{Min: 1e-6, Max: 1e3}, Mu: Range{Min: 1e-7, Max: 1e3}}
	return Limits{Electron: s, Ion: s}
}

func clampTo(v []float64, r Range) {
	for i, x := range v {
		v[i] = math.Max(r.Min, math.Min(r.Max, x))
	}
}

// CoefficientModel fills the interior nodes of a coefficient set. Boundary
// values it produces are overwritten by extension.
type CoefficientModel interface {
	Name() string
	Interior(st *plasma.State) (*Coefficients, error)
}

// Baseline holds every node at a constant value. Used when no collision
// model is wired in.
type Baseline struct {
	De  float64 `yaml:"de" json:"de"`   // m^2/s
	Di  float64 `yaml:"di" json:"di"`   // m^2/s
	Mue float64 `yaml:"mue" json:"mue"` // m^2/(V s)
	Mui float64 `yaml:"mui" json:"mui"` // m^2/(V s)
}

func DefaultBaseline() Baseline {
	return Baseline{De: 0.5, Di: 5e-3, Mue: 1.0, Mui: 1e-4}
}

func (b Baseline) Name() string { return "baseline" }

func (b Baseline) Interior(st *plasma.State) (*Coefficients, error) {
	c := newCoefficients(st.Len())
	for i := range c.De {
		c.De[i], c.Di[i], c.Mue[i], c.Mui[i] = b.De, b.Di, b.Mue, b.Mui
	}
	return c, nil
}

// Collisional derives coefficients from momentum-transfer collision
// frequencies: D = e*T/(m*nu) with T in eV, Mu = e/(m*nu).
type Collisional struct {
	NuE, NuI     []float64 // 1/s, one per node
	ElectronMass float64   // kg
	IonMass      float64   // kg
}

// NewCollisional uses the electron mass and an ion mass given in atomic
// mass units.
func NewCollisional(nuE, nuI []float64, ionMassAMU float64) Collisional {
	return Collisional{
		NuE:          nuE,
		NuI:          nuI,
		ElectronMass: ElectronMass,
		IonMass:      ionMassAMU * float64(constant.AtomicMass),
	}
}

func (c Collisional) Name() string { return "collisional" }

func (c Collisional) Interior(st *plasma.State) (*Coefficients, error) {
	n := st.Len()
	if len(c.NuE) != n || len(c.NuI) != n {
		return nil, fmt.Errorf("%w: collision frequencies need %d nodes, got %d/%d", ErrDomain, n, len(c.NuE), len(c.NuI))
	}
	if !(c.ElectronMass > 0) || !(c.IonMass > 0) {
		return nil, fmt.Errorf("%w: species masses must be positive", ErrDomain)
	}
	q := float64(constant.ElementaryCharge)
	co := newCoefficients(n)
	for i := 1; i < n-1; i++ {
		nuE, nuI := c.NuE[i], c.NuI[i]
		if !(nuE > 0) || !(nuI > 0) || math.IsInf(nuE, 0) || math.IsInf(nuI, 0) {
			return nil, fmt.Errorf("%w: collision frequency at node %d is %g/%g", ErrDomain, i, nuE, nuI)
		}
		co.Mue[i] = q / (c.ElectronMass * nuE)
		co.Mui[i] = q / (c.IonMass * nuI)
		co.De[i] = st.Te[i] * co.Mue[i]
		co.Di[i] = st.Ti[i] * co.Mui[i]
	}
	return co, nil
}
