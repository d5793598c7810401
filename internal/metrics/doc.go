// Package metrics provides scalar run metrics for the integrator.
//
//	in := integrator.New()
//	for _, m := range metrics.Default() {
//		in.AddMetric(m)
//	}
package metrics

import "github.com/san-kum/plasma1d/internal/integrator"

// Default returns a fresh instance of every metric.
func Default() []integrator.Metric {
	return []integrator.Metric{
		NewParticleLoss(),
		NewPeakDensity(),
		NewWallFlux(),
		NewStability(),
	}
}
