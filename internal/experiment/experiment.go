// Package experiment assembles a mesh, state, closure and integrator from a
// run configuration.
package experiment

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/plasma1d/internal/config"
	"github.com/san-kum/plasma1d/internal/integrator"
	"github.com/san-kum/plasma1d/internal/mesh"
	"github.com/san-kum/plasma1d/internal/plasma"
	"github.com/san-kum/plasma1d/internal/transport"
)

var errNotSetup = errors.New("experiment: not set up")

type Experiment struct {
	cfg *config.Config

	Mesh       *mesh.Mesh
	State      *plasma.State
	Closure    transport.Closure
	Integrator *integrator.Integrator
}

// New keeps a copy of cfg.
func New(cfg *config.Config) *Experiment {
	return &Experiment{cfg: cfg.Clone()}
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// Setup builds every component and attaches the registry's default metrics.
func (e *Experiment) Setup(r *Registry) error {
	cfg := e.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}

	m, err := mesh.New(cfg.Mesh.Width, cfg.Mesh.Nx)
	if err != nil {
		return err
	}
	st, err := NewState(m, cfg)
	if err != nil {
		return err
	}
	opts, err := TransportOptions(cfg, m.Len())
	if err != nil {
		return err
	}
	form, err := transport.ParseAmbipolarForm(cfg.Transport.Form)
	if err != nil {
		return err
	}
	c, err := r.GetClosure(cfg.Closure, opts, form)
	if err != nil {
		return err
	}

	in := integrator.New()
	for _, mt := range r.DefaultMetrics() {
		in.AddMetric(mt)
	}

	e.Mesh, e.State, e.Closure, e.Integrator = m, st, c, in
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*integrator.Result, error) {
	if e.Integrator == nil {
		return nil, errNotSetup
	}
	return e.Integrator.Run(ctx, e.State, e.Closure, e.cfg.Run.Dt, e.cfg.Run.Steps)
}

// Job wraps the experiment for integrator.Ensemble.
func (e *Experiment) Job(name string) (integrator.Job, error) {
	if e.Integrator == nil {
		return integrator.Job{}, errNotSetup
	}
	return integrator.Job{
		Name:       name,
		State:      e.State,
		Closure:    e.Closure,
		Dt:         e.cfg.Run.Dt,
		Steps:      e.cfg.Run.Steps,
		Integrator: e.Integrator,
	}, nil
}

// NewState seeds a uniform state on m from the plasma section.
func NewState(m *mesh.Mesh, cfg *config.Config) (*plasma.State, error) {
	wall, err := plasma.ParseWall(cfg.Plasma.Wall)
	if err != nil {
		return nil, err
	}
	p := cfg.Plasma
	return plasma.New(m, plasma.Config{Limits: p.Limits, Wall: wall}, plasma.Uniform{
		Ne: p.Ne, Nn: p.Nn, Te: p.Te, Ti: p.Ti, Se: p.Se,
	})
}

// TransportOptions builds closure options for nx nodes from the transport
// section.
func TransportOptions(cfg *config.Config, nx int) (transport.Options, error) {
	t := cfg.Transport
	opts := transport.Options{Model: t.Baseline, Limits: t.Limits, Static: t.Static}
	if col := t.Collisional; col != nil {
		if !(col.IonMassAMU > 0) {
			return transport.Options{}, fmt.Errorf("%w: ion mass must be positive, got %g amu", config.ErrInvalid, col.IonMassAMU)
		}
		nuE := make([]float64, nx)
		nuI := make([]float64, nx)
		for i := range nuE {
			nuE[i], nuI[i] = col.NuE, col.NuI
		}
		opts.Model = transport.NewCollisional(nuE, nuI, col.IonMassAMU)
	}
	return opts, nil
}
