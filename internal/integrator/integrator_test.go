package integrator

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/plasma1d/internal/mesh"
	"github.com/san-kum/plasma1d/internal/plasma"
	"github.com/san-kum/plasma1d/internal/transport"
)

func newState(t *testing.T, nx int, wall plasma.Wall, u plasma.Uniform) *plasma.State {
	t.Helper()
	m, err := mesh.New(0.1, nx)
	require.NoError(t, err)
	cfg := plasma.DefaultConfig()
	cfg.Wall = wall
	st, err := plasma.New(m, cfg, u)
	require.NoError(t, err)
	return st
}

func quiet() *Integrator {
	in := New()
	logger, _ := test.NewNullLogger()
	in.Log = logger
	return in
}

// nanClosure reports ordinary diffusion coefficients but NaN fluxes.
type nanClosure struct {
	*transport.DiffusionOnly
}

func newNaNClosure() nanClosure {
	return nanClosure{transport.NewDiffusionOnly(transport.DefaultOptions())}
}

func (nanClosure) Name() string { return "nan" }
func (nanClosure) ComputeFlux(st *plasma.State) ([]float64, []float64, error) {
	f := make([]float64, st.Len())
	for i := range f {
		f[i] = math.NaN()
	}
	return f, f, nil
}

// emptyClosure returns neither coefficients nor an error.
type emptyClosure struct {
	*transport.DiffusionOnly
}

func (emptyClosure) ComputeCoefficients(*plasma.State) (*transport.Coefficients, error) {
	return nil, nil
}

type stepCounter struct{ n int }

func (c *stepCounter) Name() string                  { return "count" }
func (c *stepCounter) Observe(*plasma.State, float64) { c.n++ }
func (c *stepCounter) Value() float64                 { return float64(c.n) }
func (c *stepCounter) Reset()                         { c.n = 0 }

// startCounter records the electron inventory handed to Begin.
type startCounter struct {
	stepCounter
	begins int
	start  float64
}

func (c *startCounter) Begin(st *plasma.State) {
	c.begins++
	c.start, _ = st.Inventory()
}

func TestStepStoresFluxes(t *testing.T) {
	st := newState(t, 11, plasma.Absorbing, plasma.DefaultUniform())
	c := transport.NewAmbipolar(transport.DefaultOptions(), transport.Simplified)

	_, want, err := c.ComputeFlux(st)
	require.NoError(t, err)

	in := quiet()
	require.NoError(t, in.Step(st, c, 1e-6))
	assert.Equal(t, want, st.Fluxi)
	assert.Equal(t, want, st.Fluxe)
	assert.Equal(t, Stepping, in.Status())
	assert.Equal(t, 1, in.Steps())
	assert.InDelta(t, 1e-6, in.Time(), 1e-18)
}

func TestSourceTerm(t *testing.T) {
	u := plasma.DefaultUniform()
	u.Se = 1e20
	st := newState(t, 7, plasma.Extension, u)

	in := quiet()
	require.NoError(t, in.Step(st, transport.NewDiffusionOnly(transport.DefaultOptions()), 1e-6))
	for i := range st.Ne {
		assert.InEpsilon(t, 1e17+1e14, st.Ne[i], 1e-12, "node %d", i)
		assert.InEpsilon(t, 1e17+1e14, st.Ni[i], 1e-12, "node %d", i)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	st := newState(t, 5, plasma.Absorbing, plasma.DefaultUniform())
	c := transport.NewDiffusionOnly(transport.DefaultOptions())

	tests := []struct {
		name  string
		st    *plasma.State
		c     transport.Closure
		dt    float64
		steps int
	}{
		{"zero dt", st, c, 0, 10},
		{"negative dt", st, c, -1e-6, 10},
		{"nan dt", st, c, math.NaN(), 10},
		{"inf dt", st, c, math.Inf(1), 10},
		{"zero steps", st, c, 1e-6, 0},
		{"nil state", nil, c, 1e-6, 10},
		{"nil closure", st, nil, 1e-6, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := quiet()
			res, err := in.Run(context.Background(), tt.st, tt.c, tt.dt, tt.steps)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Nil(t, res)
			assert.Equal(t, Initialized, in.Status())
		})
	}
}

func TestRunDiagnostics(t *testing.T) {
	st := newState(t, 11, plasma.Absorbing, plasma.DefaultUniform())
	in := quiet()
	counter := &stepCounter{}
	in.AddMetric(counter)
	var seen []int
	in.AddObserver(ObserverFunc(func(d Diagnostic, _ *plasma.State) { seen = append(seen, d.Step) }))

	res, err := in.Run(context.Background(), st, transport.NewDiffusionOnly(transport.DefaultOptions()), 1e-6, 20)
	require.NoError(t, err)

	assert.Equal(t, Completed, res.Status)
	assert.Equal(t, Completed, in.Status())
	assert.Equal(t, 20, res.Steps)
	assert.Len(t, res.Diagnostics, 20)
	assert.Equal(t, 20.0, res.Metrics["count"])
	assert.Equal(t, "diffusion", res.Closure)
	assert.Same(t, st, res.Final)
	assert.InDelta(t, 20e-6, res.Time, 1e-15)

	for i, d := range res.Diagnostics {
		assert.Equal(t, i+1, d.Step)
		assert.InDelta(t, float64(i+1)*1e-6, d.Time, 1e-15)
		if i > 0 {
			assert.GreaterOrEqual(t, d.Elapsed, res.Diagnostics[i-1].Elapsed)
		}
	}
	assert.InEpsilon(t, st.InteriorMean(st.Ne), res.Diagnostics[19].MeanNe, 1e-12)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}, seen)
	assert.Len(t, res.MeanNe(), 20)
	assert.Len(t, res.Times(), 20)
}

func TestRunCancelled(t *testing.T) {
	st := newState(t, 11, plasma.Absorbing, plasma.DefaultUniform())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := quiet()
	in.AddObserver(ObserverFunc(func(d Diagnostic, _ *plasma.State) {
		if d.Step == 5 {
			cancel()
		}
	}))
	res, err := in.Run(ctx, st, transport.NewDiffusionOnly(transport.DefaultOptions()), 1e-6, 100)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, 5, res.Steps)
	assert.Equal(t, Stepping, res.Status)
}

func TestNonFiniteFails(t *testing.T) {
	st := newState(t, 5, plasma.Absorbing, plasma.DefaultUniform())
	in := quiet()
	require.NoError(t, in.Step(st, transport.NewDiffusionOnly(transport.DefaultOptions()), 1e-6))

	res, err := in.Run(context.Background(), st, newNaNClosure(), 1e-6, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNonFinite)

	var serr *StepError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, 1, serr.Step)
	assert.InDelta(t, 1e-6, serr.Time, 1e-18)
	require.NotNil(t, serr.Snapshot)
	field, _, found := serr.Snapshot.NonFinite()
	assert.True(t, found)
	assert.Equal(t, "ne", field)
	assert.NotSame(t, st, serr.Snapshot)

	assert.Equal(t, Failed, res.Status)
	assert.Equal(t, 0, res.Steps)
	assert.Equal(t, Failed, in.Status())
	assert.Same(t, serr, in.Err())

	err = in.Step(st, transport.NewDiffusionOnly(transport.DefaultOptions()), 1e-6)
	assert.ErrorIs(t, err, ErrFailed)

	in.Reset()
	assert.Equal(t, Initialized, in.Status())
	assert.Equal(t, 0, in.Steps())
}

func TestClosureErrorSnapshotIsPreStep(t *testing.T) {
	st := newState(t, 5, plasma.Absorbing, plasma.DefaultUniform())
	before := st.Clone()

	err := quiet().Step(st, transport.NewDriftDiffusion(), 1e-6)
	assert.ErrorIs(t, err, transport.ErrUnsupportedClosure)

	var serr *StepError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 0, serr.Step)
	assert.Equal(t, before.Fields(), serr.Snapshot.Fields())
	assert.Contains(t, serr.Error(), "step 0")
}

func TestStableTimeStep(t *testing.T) {
	m, err := mesh.New(0.1, 11)
	require.NoError(t, err)
	assert.InEpsilon(t, 1e-4, StableTimeStep(m, 0.5), 1e-9)
	assert.True(t, math.IsInf(StableTimeStep(m, 0), 1))
}

func TestCheckCFLWarns(t *testing.T) {
	st := newState(t, 11, plasma.Absorbing, plasma.DefaultUniform())
	c := transport.NewDiffusionOnly(transport.DefaultOptions())

	logger, hook := test.NewNullLogger()
	in := New()
	in.Log = logger

	limit, ok := in.CheckCFL(st, c, 1e-6)
	assert.True(t, ok)
	assert.InEpsilon(t, 1e-4, limit, 1e-9)
	assert.Empty(t, hook.AllEntries())

	_, ok = in.CheckCFL(st, c, 1e-3)
	assert.False(t, ok)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, 1e-3, hook.LastEntry().Data["dt"])

	// the advisory never fails a run
	hook.Reset()
	res, err := in.Run(context.Background(), st, c, 1e-3, 3)
	require.NoError(t, err)
	assert.Equal(t, Completed, res.Status)
	assert.NotEmpty(t, hook.AllEntries())
}

func TestWithinCFL(t *testing.T) {
	st := newState(t, 11, plasma.Absorbing, plasma.DefaultUniform())
	c := transport.NewDiffusionOnly(transport.DefaultOptions())

	limit, dmax, err := CFLLimit(st, c)
	require.NoError(t, err)
	assert.InEpsilon(t, 1e-4, limit, 1e-9)
	assert.Equal(t, transport.DefaultBaseline().De, dmax)

	assert.True(t, WithinCFL(st, c, 1e-6))
	assert.False(t, WithinCFL(st, c, 1e-3))
	assert.True(t, WithinCFL(st, transport.NewDriftDiffusion(), 1))
}

func TestCheckCFLSkipsUnsupported(t *testing.T) {
	st := newState(t, 5, plasma.Absorbing, plasma.DefaultUniform())
	limit, ok := quiet().CheckCFL(st, transport.NewDriftDiffusion(), 1)
	assert.True(t, ok)
	assert.True(t, math.IsInf(limit, 1))
}

func TestRunBeginsMetricsBeforeFirstStep(t *testing.T) {
	st := newState(t, 11, plasma.Absorbing, plasma.DefaultUniform())
	want, _ := st.Inventory()
	c := &startCounter{}
	in := quiet()
	in.AddMetric(c)

	_, err := in.Run(context.Background(), st, transport.NewDiffusionOnly(transport.DefaultOptions()), 1e-6, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, c.begins)
	assert.Equal(t, want, c.start)
	assert.Equal(t, 3, c.n)
}

func TestCheckCFLMissingCoefficients(t *testing.T) {
	st := newState(t, 5, plasma.Absorbing, plasma.DefaultUniform())
	c := emptyClosure{transport.NewDiffusionOnly(transport.DefaultOptions())}
	limit, ok := quiet().CheckCFL(st, c, 1)
	assert.True(t, ok)
	assert.True(t, math.IsInf(limit, 1))
}

func TestEnsemble(t *testing.T) {
	mk := func(c transport.Closure, name string) Job {
		return Job{
			Name:    name,
			State:   newState(t, 11, plasma.Absorbing, plasma.DefaultUniform()),
			Closure: c,
			Dt:      1e-6,
			Steps:   10,
		}
	}
	jobs := []Job{
		mk(transport.NewDiffusionOnly(transport.DefaultOptions()), "diffusion"),
		mk(transport.NewDriftDiffusion(), "drift"),
		mk(transport.NewAmbipolar(transport.DefaultOptions(), transport.Simplified), "ambipolar"),
	}
	logger, _ := test.NewNullLogger()
	e := NewEnsemble(2)
	e.Log = logger

	results, err := e.Run(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "diffusion", results[0].Name)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 10, results[0].Result.Steps)

	assert.ErrorIs(t, results[1].Err, transport.ErrUnsupportedClosure)
	assert.Equal(t, Failed, results[1].Result.Status)

	assert.NoError(t, results[2].Err)
	assert.Equal(t, Completed, results[2].Result.Status)
	// ambipolar transport is slower than free electron diffusion
	assert.Greater(t, results[2].Result.Final.InteriorMean(results[2].Result.Final.Ni),
		results[0].Result.Final.InteriorMean(results[0].Result.Final.Ne))
}

func TestEnsembleRejectsIncompleteJob(t *testing.T) {
	_, err := NewEnsemble(0).Run(context.Background(), []Job{{Name: "empty"}})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
