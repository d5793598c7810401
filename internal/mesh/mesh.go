// Package mesh provides the 1D grid and its finite-difference operators.
//
// A [Mesh] is immutable once built. Every field sampled on it has exactly
// [Mesh.Len] values, one per node, and the derivative operators return new
// slices rather than writing into their input:
//
//	m, _ := mesh.New(0.1, 11)
//	dndx := m.FirstDerivative(ne)
//
// Boundary derivatives are not one-sided differences. Nodes 0 and nx-1 copy
// the value of their nearest interior neighbour.
package mesh

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// MinNodes is the smallest node count for which a central difference exists.
const MinNodes = 3

// ErrInvalidMesh is returned for meshes with fewer than MinNodes nodes, a
// non-positive width or non-monotonic positions.
var ErrInvalidMesh = errors.New("mesh: invalid mesh")

type Mesh struct {
	width float64
	x     []float64
}

// New builds nx nodes linearly spaced on [0, width].
func New(width float64, nx int) (*Mesh, error) {
	if nx < MinNodes {
		return nil, fmt.Errorf("%w: nx must be >= %d, got %d", ErrInvalidMesh, MinNodes, nx)
	}
	if !(width > 0) || math.IsInf(width, 0) {
		return nil, fmt.Errorf("%w: width must be positive and finite, got %g", ErrInvalidMesh, width)
	}
	x := floats.Span(make([]float64, nx), 0, width)
	// Span accumulates rounding; pin the end points exactly.
	x[0], x[nx-1] = 0, width
	return &Mesh{width: width, x: x}, nil
}

// FromPoints builds a possibly non-uniform mesh from node positions. The
// first position must be 0 and positions must be strictly increasing.
func FromPoints(x []float64) (*Mesh, error) {
	if len(x) < MinNodes {
		return nil, fmt.Errorf("%w: need at least %d points, got %d", ErrInvalidMesh, MinNodes, len(x))
	}
	if x[0] != 0 {
		return nil, fmt.Errorf("%w: first point must be 0, got %g", ErrInvalidMesh, x[0])
	}
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: point %d is not finite", ErrInvalidMesh, i)
		}
		if i > 0 && v <= x[i-1] {
			return nil, fmt.Errorf("%w: points not strictly increasing at %d", ErrInvalidMesh, i)
		}
	}
	c := make([]float64, len(x))
	copy(c, x)
	return &Mesh{width: c[len(c)-1], x: c}, nil
}

func (m *Mesh) Len() int         { return len(m.x) }
func (m *Mesh) Width() float64   { return m.width }
func (m *Mesh) At(i int) float64 { return m.x[i] }

// X returns a copy of the node positions.
func (m *Mesh) X() []float64 {
	c := make([]float64, len(m.x))
	copy(c, m.x)
	return c
}

// MinSpacing returns the smallest distance between neighbouring nodes.
func (m *Mesh) MinSpacing() float64 {
	minDx := math.Inf(1)
	for i := 1; i < len(m.x); i++ {
		minDx = math.Min(minDx, m.x[i]-m.x[i-1])
	}
	return minDx
}

// CellWidths returns the control-volume width owned by each node: half the
// distance to each neighbour, so the widths sum to Width.
func (m *Mesh) CellWidths() []float64 {
	n := len(m.x)
	w := make([]float64, n)
	w[0] = 0.5 * (m.x[1] - m.x[0])
	w[n-1] = 0.5 * (m.x[n-1] - m.x[n-2])
	for i := 1; i < n-1; i++ {
		w[i] = 0.5 * (m.x[i+1] - m.x[i-1])
	}
	return w
}

// Integrate returns the trapezoidal sum of y*dx over the mesh.
func (m *Mesh) Integrate(y []float64) float64 {
	m.mustMatch(y)
	return floats.Dot(y, m.CellWidths())
}

// FirstDerivative returns dy/dx by central differences on interior nodes.
// Neighbour distances are used directly so the operator is valid on
// non-uniform meshes. It panics if len(y) != Len().
func (m *Mesh) FirstDerivative(y []float64) []float64 {
	m.mustMatch(y)
	n := len(m.x)
	dy := make([]float64, n)
	for i := 1; i < n-1; i++ {
		dy[i] = (y[i+1] - y[i-1]) / (m.x[i+1] - m.x[i-1])
	}
	extend(dy)
	return dy
}

// SecondDerivative returns d²y/dx² with the three-point formula, exact for
// quadratics on any spacing. It panics if len(y) != Len().
func (m *Mesh) SecondDerivative(y []float64) []float64 {
	m.mustMatch(y)
	n := len(m.x)
	d2y := make([]float64, n)
	for i := 1; i < n-1; i++ {
		hm := m.x[i] - m.x[i-1]
		hp := m.x[i+1] - m.x[i]
		d2y[i] = 2 * ((y[i+1]-y[i])/hp - (y[i]-y[i-1])/hm) / (hp + hm)
	}
	extend(d2y)
	return d2y
}

// Extend overwrites the two boundary values of y with their nearest
// interior neighbours.
func Extend(y []float64) {
	if len(y) < MinNodes {
		return
	}
	extend(y)
}

func extend(y []float64) {
	n := len(y)
	y[0] = y[1]
	y[n-1] = y[n-2]
}

func (m *Mesh) mustMatch(y []float64) {
	if len(y) != len(m.x) {
		panic(fmt.Sprintf("mesh: field length %d does not match %d nodes", len(y), len(m.x)))
	}
}

func (m *Mesh) String() string {
	return fmt.Sprintf("Mesh{width=%g m, nx=%d, dx_min=%g m}", m.width, len(m.x), m.MinSpacing())
}
