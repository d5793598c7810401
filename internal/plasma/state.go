// Package plasma holds the per-node plasma fields sampled on a mesh and the
// wall and clamping policy applied to them after every update.
package plasma

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/plasma1d/internal/mesh"
)

// ErrInvalidState indicates seed values or limits that cannot describe a plasma.
var ErrInvalidState = errors.New("plasma: invalid state")

// Wall selects what happens at nodes 0 and nx-1 after each update.
type Wall int

const (
	// Absorbing pins densities, temperatures and sources to 0 at both walls.
	// Wall nodes are exempt from Limits.
	Absorbing Wall = iota
	// Extension copies the nearest interior node into each wall node.
	Extension
)

func (w Wall) String() string {
	switch w {
	case Absorbing:
		return "absorbing"
	case Extension:
		return "extension"
	}
	return fmt.Sprintf("Wall(%d)", int(w))
}

func ParseWall(s string) (Wall, error) {
	switch strings.ToLower(s) {
	case "", "absorbing":
		return Absorbing, nil
	case "extension":
		return Extension, nil
	}
	return 0, fmt.Errorf("%w: unknown wall model %q", ErrInvalidState, s)
}

// Limits bound densities (m^-3) and temperatures (eV).
type Limits struct {
	NMin float64 `yaml:"n_min" json:"n_min"`
	NMax float64 `yaml:"n_max" json:"n_max"`
	TMin float64 `yaml:"t_min" json:"t_min"`
	TMax float64 `yaml:"t_max" json:"t_max"`
}

func DefaultLimits() Limits {
	return Limits{NMin: 1e11, NMax: 1e22, TMin: 0.001, TMax: 100}
}

func (l Limits) validate() error {
	if !(l.NMin >= 0 && l.NMin < l.NMax) {
		return fmt.Errorf("%w: density limits [%g, %g]", ErrInvalidState, l.NMin, l.NMax)
	}
	if !(l.TMin >= 0 && l.TMin < l.TMax) {
		return fmt.Errorf("%w: temperature limits [%g, %g]", ErrInvalidState, l.TMin, l.TMax)
	}
	return nil
}

type Config struct {
	Limits Limits
	Wall   Wall
}

func DefaultConfig() Config {
	return Config{Limits: DefaultLimits(), Wall: Absorbing}
}

// Uniform seeds every node with the same values. Ni starts equal to Ne and
// Si equal to Se.
type Uniform struct {
	Ne float64 // m^-3
	Nn float64 // m^-3
	Te float64 // eV
	Ti float64 // eV
	Se float64 // m^-3 s^-1
}

// DefaultUniform is a 1e17 m^-3 argon afterglow at 10 mTorr with no source.
func DefaultUniform() Uniform {
	return Uniform{Ne: 1e17, Nn: 3.3e20, Te: 1, Ti: 0.1, Se: 0}
}

// Profiles seeds each field from a caller-supplied array of length nx. Nil
// arrays default to zero before the wall and limit pass.
type Profiles struct {
	Ne, Ni, Nn []float64
	Te, Ti     []float64
	Se, Si     []float64
}

// State is owned by a single integrator. Closures read it and never write it.
type State struct {
	Mesh *mesh.Mesh

	Ne, Ni, Nn   []float64 // densities, m^-3
	Fluxe, Fluxi []float64 // particle flux, m^-2 s^-1
	Te, Ti       []float64 // temperatures, eV
	Se, Si       []float64 // sources, m^-3 s^-1

	cfg Config
}

// New seeds a state with uniform values, then applies the wall model and
// limits.
func New(m *mesh.Mesh, cfg Config, u Uniform) (*State, error) {
	for name, v := range map[string]float64{"ne": u.Ne, "nn": u.Nn, "te": u.Te, "ti": u.Ti, "se": u.Se} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s seed is not finite", ErrInvalidState, name)
		}
	}
	n := m.Len()
	return build(m, cfg, Profiles{
		Ne: fill(n, u.Ne),
		Ni: fill(n, u.Ne),
		Nn: fill(n, u.Nn),
		Te: fill(n, u.Te),
		Ti: fill(n, u.Ti),
		Se: fill(n, u.Se),
		Si: fill(n, u.Se),
	})
}

// FromProfiles seeds a state from per-node arrays. The arrays are copied.
func FromProfiles(m *mesh.Mesh, cfg Config, p Profiles) (*State, error) {
	n := m.Len()
	seeds := []struct {
		name string
		v    *[]float64
	}{
		{"ne", &p.Ne}, {"ni", &p.Ni}, {"nn", &p.Nn},
		{"te", &p.Te}, {"ti", &p.Ti}, {"se", &p.Se}, {"si", &p.Si},
	}
	for _, s := range seeds {
		if *s.v == nil {
			*s.v = make([]float64, n)
			continue
		}
		if len(*s.v) != n {
			return nil, fmt.Errorf("%w: %s has %d values, mesh has %d nodes", ErrInvalidState, s.name, len(*s.v), n)
		}
		if i, ok := firstNonFinite(*s.v); ok {
			return nil, fmt.Errorf("%w: %s[%d] is not finite", ErrInvalidState, s.name, i)
		}
		*s.v = clone(*s.v)
	}
	return build(m, cfg, p)
}

func build(m *mesh.Mesh, cfg Config, p Profiles) (*State, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil mesh", ErrInvalidState)
	}
	if err := cfg.Limits.validate(); err != nil {
		return nil, err
	}
	n := m.Len()
	s := &State{
		Mesh:  m,
		Ne:    p.Ne,
		Ni:    p.Ni,
		Nn:    p.Nn,
		Fluxe: make([]float64, n),
		Fluxi: make([]float64, n),
		Te:    p.Te,
		Ti:    p.Ti,
		Se:    p.Se,
		Si:    p.Si,
		cfg:   cfg,
	}
	s.ApplyBoundary()
	s.ApplyLimits()
	return s, nil
}

func (s *State) Len() int       { return s.Mesh.Len() }
func (s *State) Config() Config { return s.cfg }

// ApplyBoundary imposes the wall model on the boundary nodes.
func (s *State) ApplyBoundary() {
	n := s.Len()
	for _, f := range s.walled() {
		switch s.cfg.Wall {
		case Extension:
			f[0], f[n-1] = f[1], f[n-2]
		default:
			f[0], f[n-1] = 0, 0
		}
	}
}

// ApplyLimits clamps densities and temperatures. Absorbing wall nodes keep
// their pinned value.
func (s *State) ApplyLimits() {
	lo, hi := 0, s.Len()
	if s.cfg.Wall == Absorbing {
		lo, hi = 1, s.Len()-1
	}
	l := s.cfg.Limits
	for _, f := range [][]float64{s.Ne, s.Ni, s.Nn} {
		clamp(f[lo:hi], l.NMin, l.NMax)
	}
	for _, f := range [][]float64{s.Te, s.Ti} {
		clamp(f[lo:hi], l.TMin, l.TMax)
	}
}

func (s *State) walled() [][]float64 {
	return [][]float64{s.Ne, s.Ni, s.Nn, s.Te, s.Ti, s.Se, s.Si}
}

// Field is a named view of one state array.
type Field struct {
	Name   string
	Values []float64
}

// Fields lists every array in a fixed order.
func (s *State) Fields() []Field {
	return []Field{
		{"ne", s.Ne}, {"ni", s.Ni}, {"nn", s.Nn},
		{"fluxe", s.Fluxe}, {"fluxi", s.Fluxi},
		{"te", s.Te}, {"ti", s.Ti},
		{"se", s.Se}, {"si", s.Si},
	}
}

// NonFinite reports the first NaN or Inf value in any field.
func (s *State) NonFinite() (field string, index int, found bool) {
	for _, f := range s.Fields() {
		if i, ok := firstNonFinite(f.Values); ok {
			return f.Name, i, true
		}
	}
	return "", 0, false
}

// Clone returns a deep copy sharing only the immutable mesh.
func (s *State) Clone() *State {
	return &State{
		Mesh:  s.Mesh,
		Ne:    clone(s.Ne),
		Ni:    clone(s.Ni),
		Nn:    clone(s.Nn),
		Fluxe: clone(s.Fluxe),
		Fluxi: clone(s.Fluxi),
		Te:    clone(s.Te),
		Ti:    clone(s.Ti),
		Se:    clone(s.Se),
		Si:    clone(s.Si),
		cfg:   s.cfg,
	}
}

// InteriorMean averages f over nodes 1..nx-2.
func (s *State) InteriorMean(f []float64) float64 {
	return stat.Mean(f[1:len(f)-1], nil)
}

// Inventory returns the electron and ion line densities (m^-2).
func (s *State) Inventory() (electrons, ions float64) {
	return s.Mesh.Integrate(s.Ne), s.Mesh.Integrate(s.Ni)
}

func clamp(v []float64, lo, hi float64) {
	for i, x := range v {
		if x < lo {
			v[i] = lo
		} else if x > hi {
			v[i] = hi
		}
	}
}

func fill(n int, v float64) []float64 {
	f := make([]float64, n)
	for i := range f {
		f[i] = v
	}
	return f
}

func clone(v []float64) []float64 {
	c := make([]float64, len(v))
	copy(c, v)
	return c
}

func firstNonFinite(v []float64) (int, bool) {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return i, true
		}
	}
	return 0, false
}
