package analysis

import (
	"context"
	"math"

	"github.com/san-kum/plasma1d/internal/integrator"
	"github.com/san-kum/plasma1d/internal/metrics"
	"github.com/san-kum/plasma1d/internal/plasma"
	"github.com/san-kum/plasma1d/internal/transport"
)

// ScanPoint is the outcome of one run in a time step scan.
type ScanPoint struct {
	Dt        float64
	Steps     int
	CFL       bool // dt within the explicit diffusion limit
	Stability float64
	Fit       DecayFit
	Err       error
}

// Setup builds a fresh state and closure for every run of a scan.
type Setup func() (*plasma.State, transport.Closure, error)

// ScanTimeStep repeats a run of the given simulated duration for each dt,
// in parallel, and fits the decay of the mean electron density.
func ScanTimeStep(ctx context.Context, setup Setup, dts []float64, duration float64) ([]ScanPoint, error) {
	points := make([]ScanPoint, len(dts))
	jobs := make([]integrator.Job, 0, len(dts))
	slots := make([]int, 0, len(dts))
	stab := make([]*metrics.Stability, 0, len(dts))

	for i, dt := range dts {
		points[i].Dt = dt
		st, c, err := setup()
		if err != nil {
			points[i].Err = err
			continue
		}
		steps := int(math.Round(duration / dt))
		if steps < 1 {
			steps = 1
		}
		points[i].Steps = steps

		// Run logs the CFL warning itself.
		points[i].CFL = integrator.WithinCFL(st, c, dt)
		in := integrator.New()
		s := metrics.NewStability()
		in.AddMetric(s)

		jobs = append(jobs, integrator.Job{State: st, Closure: c, Dt: dt, Steps: steps, Integrator: in})
		slots = append(slots, i)
		stab = append(stab, s)
	}

	results, err := integrator.NewEnsemble(0).Run(ctx, jobs)
	if err != nil {
		return nil, err
	}
	for k, r := range results {
		p := &points[slots[k]]
		p.Stability = stab[k].Value()
		if r.Err != nil {
			p.Err = r.Err
			continue
		}
		p.Fit, p.Err = FitDecay(r.Result.Times(), r.Result.MeanNe())
	}
	return points, nil
}
