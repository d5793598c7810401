// Package integrator advances a plasma state in time with an explicit Euler
// discretisation of the continuity equation
//
//	dn/dt = -d(flux)/dx + S
//
// using fluxes supplied by a transport closure. After every update the wall
// model and the density and temperature limits of the state are reapplied;
// the limits are what keep the conditionally stable scheme bounded.
//
// The time step is chosen by the caller. Run logs a warning when it exceeds
// the diffusive stability limit dx_min^2/(2 D_max) but never rejects it.
package integrator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/plasma1d/internal/plasma"
	"github.com/san-kum/plasma1d/internal/transport"
)

// Integrator owns the state it advances for the duration of a run. It is
// not safe for concurrent use; run independent integrators instead.
type Integrator struct {
	Log logrus.FieldLogger

	metrics   []Metric
	observers []Observer

	status Status
	step   int
	time   float64
	err    error
}

func New() *Integrator {
	return &Integrator{Log: logrus.StandardLogger()}
}

func (in *Integrator) AddMetric(m Metric)     { in.metrics = append(in.metrics, m) }
func (in *Integrator) AddObserver(o Observer) { in.observers = append(in.observers, o) }

func (in *Integrator) Status() Status { return in.status }
func (in *Integrator) Steps() int     { return in.step }
func (in *Integrator) Time() float64  { return in.time }

// Err returns the error that moved the integrator to Failed.
func (in *Integrator) Err() error { return in.err }

// Reset returns the integrator to Initialized with step and time at zero.
func (in *Integrator) Reset() {
	in.status, in.step, in.time, in.err = Initialized, 0, 0, nil
}

// Step advances st by one explicit Euler step of size dt.
func (in *Integrator) Step(st *plasma.State, c transport.Closure, dt float64) error {
	if err := in.check(st, c, dt); err != nil {
		return err
	}
	in.status = Stepping
	return in.advance(st, c, dt)
}

// Run takes nSteps steps, recording a Diagnostic after each one. Cancelling
// ctx stops the run between steps and returns the partial result with the
// context error. A failed step returns the partial result and a *StepError.
func (in *Integrator) Run(ctx context.Context, st *plasma.State, c transport.Closure, dt float64, nSteps int) (*Result, error) {
	if err := in.check(st, c, dt); err != nil {
		return nil, err
	}
	if nSteps <= 0 {
		return nil, fmt.Errorf("%w: steps must be positive, got %d", ErrInvalidConfig, nSteps)
	}

	log := in.logger().WithField("closure", c.Name())
	in.CheckCFL(st, c, dt)

	for _, m := range in.metrics {
		m.Reset()
		if s, ok := m.(Starter); ok {
			s.Begin(st)
		}
	}

	res := &Result{
		Closure:     c.Name(),
		Dt:          dt,
		Diagnostics: make([]Diagnostic, 0, nSteps),
		Metrics:     make(map[string]float64),
		Final:       st,
	}
	start := time.Now()
	finish := func() *Result {
		res.Steps = len(res.Diagnostics)
		res.Time = in.time
		res.Status = in.status
		res.Elapsed = time.Since(start)
		for _, m := range in.metrics {
			res.Metrics[m.Name()] = m.Value()
		}
		return res
	}

	in.status = Stepping
	for i := 0; i < nSteps; i++ {
		select {
		case <-ctx.Done():
			log.WithField("step", in.step).Debug("run cancelled")
			return finish(), ctx.Err()
		default:
		}

		if err := in.advance(st, c, dt); err != nil {
			log.WithError(err).WithField("step", in.step).Error("step failed")
			return finish(), err
		}

		d := Diagnostic{
			Step:    in.step,
			Time:    in.time,
			MeanNe:  st.InteriorMean(st.Ne),
			MeanNi:  st.InteriorMean(st.Ni),
			Elapsed: time.Since(start),
		}
		res.Diagnostics = append(res.Diagnostics, d)
		for _, m := range in.metrics {
			m.Observe(st, in.time)
		}
		for _, o := range in.observers {
			o.OnStep(d, st)
		}
	}

	in.status = Completed
	log.WithFields(logrus.Fields{"steps": nSteps, "dt": dt, "t": in.time}).Debug("run completed")
	return finish(), nil
}

func (in *Integrator) check(st *plasma.State, c transport.Closure, dt float64) error {
	if in.status == Failed {
		return fmt.Errorf("%w: %v", ErrFailed, in.err)
	}
	if st == nil || c == nil {
		return fmt.Errorf("%w: state and closure are required", ErrInvalidConfig)
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: dt must be positive and finite, got %g", ErrInvalidConfig, dt)
	}
	return nil
}

func (in *Integrator) advance(st *plasma.State, c transport.Closure, dt float64) error {
	fluxe, fluxi, err := c.ComputeFlux(st)
	if err != nil {
		return in.fail(st, err)
	}
	copy(st.Fluxe, fluxe)
	copy(st.Fluxi, fluxi)

	m := st.Mesh
	dfe := m.FirstDerivative(st.Fluxe)
	dfi := m.FirstDerivative(st.Fluxi)
	for i := range st.Ne {
		st.Ne[i] -= dt*dfe[i] - dt*st.Se[i]
		st.Ni[i] -= dt*dfi[i] - dt*st.Si[i]
	}
	if q, ok := c.(transport.QuasiNeutral); ok {
		copy(st.Ne, q.ElectronDensity(st))
	}

	st.ApplyBoundary()
	st.ApplyLimits()

	if field, idx, found := st.NonFinite(); found {
		return in.fail(st, fmt.Errorf("%w: %s[%d]", ErrNonFinite, field, idx))
	}

	in.step++
	in.time += dt
	return nil
}

func (in *Integrator) fail(st *plasma.State, err error) error {
	serr := &StepError{Step: in.step, Time: in.time, Snapshot: st.Clone(), Err: err}
	in.status = Failed
	in.err = serr
	return serr
}

func (in *Integrator) logger() logrus.FieldLogger {
	if in.Log == nil {
		return logrus.StandardLogger()
	}
	return in.Log
}
