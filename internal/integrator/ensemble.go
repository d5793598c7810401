package integrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/plasma1d/internal/plasma"
	"github.com/san-kum/plasma1d/internal/transport"
)

// Job is one independent run. Jobs must not share states, closures or
// integrators.
type Job struct {
	Name    string
	State   *plasma.State
	Closure transport.Closure
	Dt      float64
	Steps   int
	// Integrator defaults to New().
	Integrator *Integrator
}

type JobResult struct {
	Name   string
	Result *Result
	Err    error
}

// Ensemble runs jobs in parallel, at most Workers at a time (unbounded when
// Workers <= 0).
type Ensemble struct {
	Workers int
	Log     logrus.FieldLogger
}

func NewEnsemble(workers int) *Ensemble {
	return &Ensemble{Workers: workers, Log: logrus.StandardLogger()}
}

// Run returns one JobResult per job, in job order. Failed jobs do not stop
// the others.
func (e *Ensemble) Run(ctx context.Context, jobs []Job) ([]JobResult, error) {
	for i, j := range jobs {
		if j.State == nil || j.Closure == nil {
			return nil, fmt.Errorf("%w: job %d (%s) needs a state and closure", ErrInvalidConfig, i, j.Name)
		}
	}

	log := e.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	results := make([]JobResult, len(jobs))
	var sem chan struct{}
	if e.Workers > 0 {
		sem = make(chan struct{}, e.Workers)
	}

	var wg sync.WaitGroup
	for i := range jobs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					results[idx] = JobResult{Name: jobs[idx].Name, Err: ctx.Err()}
					return
				}
			}

			j := jobs[idx]
			in := j.Integrator
			if in == nil {
				in = New()
				in.Log = log.WithField("job", j.Name)
			}
			res, err := in.Run(ctx, j.State, j.Closure, j.Dt, j.Steps)
			results[idx] = JobResult{Name: j.Name, Result: res, Err: err}
		}(i)
	}
	wg.Wait()

	return results, ctx.Err()
}
