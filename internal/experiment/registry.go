package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/plasma1d/internal/integrator"
	"github.com/san-kum/plasma1d/internal/metrics"
	"github.com/san-kum/plasma1d/internal/transport"
)

type ClosureFactory func(opts transport.Options, form transport.AmbipolarForm) transport.Closure

type Registry struct {
	closures map[string]ClosureFactory
}

func NewRegistry() *Registry {
	r := &Registry{closures: make(map[string]ClosureFactory)}

	r.closures["diffusion"] = func(opts transport.Options, _ transport.AmbipolarForm) transport.Closure {
		return transport.NewDiffusionOnly(opts)
	}
	r.closures["ambipolar"] = func(opts transport.Options, form transport.AmbipolarForm) transport.Closure {
		return transport.NewAmbipolar(opts, form)
	}
	r.closures["drift-diffusion"] = func(transport.Options, transport.AmbipolarForm) transport.Closure {
		return transport.NewDriftDiffusion()
	}

	return r
}

// Register adds or replaces a closure factory.
func (r *Registry) Register(name string, f ClosureFactory) {
	r.closures[name] = f
}

func (r *Registry) GetClosure(name string, opts transport.Options, form transport.AmbipolarForm) (transport.Closure, error) {
	fn, ok := r.closures[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown closure %q", transport.ErrUnsupportedClosure, name)
	}
	return fn(opts, form), nil
}

func (r *Registry) ListClosures() []string {
	names := make([]string, 0, len(r.closures))
	for name := range r.closures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics() []integrator.Metric {
	return metrics.Default()
}
