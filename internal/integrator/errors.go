package integrator

import (
	"errors"
	"fmt"

	"github.com/san-kum/plasma1d/internal/plasma"
)

var (
	// ErrNonFinite indicates a NaN or Inf surfaced in the state after an update.
	ErrNonFinite = errors.New("integrator: non-finite value in state")

	// ErrInvalidConfig indicates a bad time step, step count or missing input.
	ErrInvalidConfig = errors.New("integrator: invalid configuration")

	// ErrFailed is returned when stepping an integrator that already failed.
	ErrFailed = errors.New("integrator: integrator has failed")
)

// StepError aborts a run. Snapshot is a copy of the state at the point of
// failure: before the update for closure errors, after it for non-finite
// values.
type StepError struct {
	Step     int
	Time     float64
	Snapshot *plasma.State
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%g s): %v", e.Step, e.Time, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
