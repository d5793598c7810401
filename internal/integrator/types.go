package integrator

import (
	"fmt"
	"time"

	"github.com/san-kum/plasma1d/internal/plasma"
)

type Status int

const (
	Initialized Status = iota
	Stepping
	Completed
	Failed
)

func (s Status) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Stepping:
		return "stepping"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Diagnostic is recorded after every completed step. Means are taken over
// interior nodes.
type Diagnostic struct {
	Step    int           `json:"step"`
	Time    float64       `json:"time"`
	MeanNe  float64       `json:"mean_ne"`
	MeanNi  float64       `json:"mean_ni"`
	Elapsed time.Duration `json:"elapsed"`
}

// Metric accumulates a scalar over a run.
type Metric interface {
	Name() string
	Observe(st *plasma.State, t float64)
	Value() float64
	Reset()
}

// Starter is implemented by metrics that need the state before the first
// step of a run.
type Starter interface {
	Begin(st *plasma.State)
}

// Observer is notified after every completed step.
type Observer interface {
	OnStep(d Diagnostic, st *plasma.State)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(d Diagnostic, st *plasma.State)

func (f ObserverFunc) OnStep(d Diagnostic, st *plasma.State) { f(d, st) }

type Result struct {
	Closure     string
	Dt          float64
	Steps       int
	Time        float64
	Status      Status
	Diagnostics []Diagnostic
	Metrics     map[string]float64
	// Final is the state the run advanced in place.
	Final   *plasma.State
	Elapsed time.Duration
}

// MeanNe returns the interior mean electron density history.
func (r *Result) MeanNe() []float64 {
	v := make([]float64, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		v[i] = d.MeanNe
	}
	return v
}

// Times returns the simulated time of each diagnostic.
func (r *Result) Times() []float64 {
	v := make([]float64, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		v[i] = d.Time
	}
	return v
}
