package integrator

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/plasma1d/internal/mesh"
	"github.com/san-kum/plasma1d/internal/plasma"
	"github.com/san-kum/plasma1d/internal/transport"
)

// StableTimeStep returns dx_min^2/(2 dmax), the explicit diffusion limit.
// It is +Inf when dmax is not positive.
func StableTimeStep(m *mesh.Mesh, dmax float64) float64 {
	if !(dmax > 0) {
		return math.Inf(1)
	}
	dx := m.MinSpacing()
	return dx * dx / (2 * dmax)
}

// CFLLimit returns the explicit diffusion limit of c on st together with
// the largest diffusivity it was derived from.
func CFLLimit(st *plasma.State, c transport.Closure) (limit, dmax float64, err error) {
	dmax, err = transport.MaxDiffusivity(c, st)
	if err != nil {
		return math.Inf(1), 0, err
	}
	return StableTimeStep(st.Mesh, dmax), dmax, nil
}

// WithinCFL reports whether dt is within the explicit diffusion limit
// without logging. Closures that cannot report a diffusivity pass.
func WithinCFL(st *plasma.State, c transport.Closure, dt float64) bool {
	limit, _, err := CFLLimit(st, c)
	return err != nil || dt <= limit
}

// CheckCFL logs a warning when dt exceeds the stability limit of c on st and
// reports whether dt is within it. Closures that cannot report a
// diffusivity are skipped and reported as within the limit.
func (in *Integrator) CheckCFL(st *plasma.State, c transport.Closure, dt float64) (limit float64, ok bool) {
	log := in.logger().WithField("closure", c.Name())
	limit, dmax, err := CFLLimit(st, c)
	if err != nil {
		log.WithError(err).Debug("skipping CFL check")
		return limit, true
	}
	if dt > limit {
		log.WithFields(logrus.Fields{
			"dt":    dt,
			"limit": limit,
			"d_max": dmax,
		}).Warn("time step exceeds explicit diffusion limit; limits will mask the instability")
		return limit, false
	}
	return limit, true
}
