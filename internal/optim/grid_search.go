// Package optim searches run configurations for the one that minimises (or
// maximises) a run metric.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/plasma1d/internal/config"
	"github.com/san-kum/plasma1d/internal/experiment"
	"github.com/san-kum/plasma1d/internal/integrator"
)

var (
	ErrUnknownParam  = errors.New("optim: unknown parameter")
	ErrUnknownMetric = errors.New("optim: unknown metric")
	ErrNoResult      = errors.New("optim: no grid point completed")
)

var setters = map[string]func(*config.Config, float64){
	"ne":    func(c *config.Config, v float64) { c.Plasma.Ne = v },
	"nn":    func(c *config.Config, v float64) { c.Plasma.Nn = v },
	"te":    func(c *config.Config, v float64) { c.Plasma.Te = v },
	"ti":    func(c *config.Config, v float64) { c.Plasma.Ti = v },
	"se":    func(c *config.Config, v float64) { c.Plasma.Se = v },
	"width": func(c *config.Config, v float64) { c.Mesh.Width = v },
	"nx":    func(c *config.Config, v float64) { c.Mesh.Nx = int(math.Round(v)) },
	"dt":    func(c *config.Config, v float64) { c.Run.Dt = v },
}

// Params lists the names a grid may vary.
func Params() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseParam reads "name=v1,v2,...".
func ParseParam(s string) (string, []float64, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok || name == "" || list == "" {
		return "", nil, fmt.Errorf("optim: expected name=v1,v2,... got %q", s)
	}
	fields := strings.Split(list, ",")
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("optim: %s: %w", name, err)
		}
		values[i] = v
	}
	return name, values, nil
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	Maximize   bool
	Workers    int
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d parameters for %d ranges", len(params), len(ranges))
	}
	for i, name := range params {
		if _, ok := setters[name]; !ok {
			return nil, fmt.Errorf("%w %q (known: %v)", ErrUnknownParam, name, Params())
		}
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("optim: empty range for %s", name)
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Point is one evaluated grid point.
type Point struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// Points enumerates the grid, first parameter varying slowest.
func (g *GridSearch) Points() []map[string]float64 {
	var out []map[string]float64
	g.searchRecursive(0, map[string]float64{}, &out)
	return out
}

func (g *GridSearch) searchRecursive(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		*out = append(*out, current)
		return
	}
	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[name] = val
		g.searchRecursive(depth+1, next, out)
	}
}

// Search runs base once per grid point in parallel and returns the best
// point by metricName along with every point in grid order. Points whose
// config is invalid or whose run fails carry the error and never win.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metricName string) (Point, []Point, error) {
	grid := g.Points()
	points := make([]Point, len(grid))
	jobs := make([]integrator.Job, 0, len(grid))
	slots := make([]int, 0, len(grid))

	reg := experiment.NewRegistry()
	for i, params := range grid {
		points[i].Params = params
		cfg := base.Clone()
		for name, v := range params {
			setters[name](cfg, v)
		}
		e := experiment.New(cfg)
		if err := e.Setup(reg); err != nil {
			points[i].Err = err
			continue
		}
		job, err := e.Job(fmt.Sprint(params))
		if err != nil {
			points[i].Err = err
			continue
		}
		jobs = append(jobs, job)
		slots = append(slots, i)
	}

	results, err := integrator.NewEnsemble(g.Workers).Run(ctx, jobs)
	if err != nil {
		return Point{}, points, err
	}

	best := -1
	for k, r := range results {
		p := &points[slots[k]]
		if r.Err != nil {
			p.Err = r.Err
			continue
		}
		v, ok := r.Result.Metrics[metricName]
		if !ok {
			return Point{}, points, fmt.Errorf("%w %q", ErrUnknownMetric, metricName)
		}
		p.Value = v
		if math.IsNaN(v) {
			continue
		}
		if best < 0 || g.better(v, points[best].Value) {
			best = slots[k]
		}
	}
	if best < 0 {
		return Point{}, points, ErrNoResult
	}
	return points[best], points, nil
}

func (g *GridSearch) better(v, than float64) bool {
	if g.Maximize {
		return v > than
	}
	return v < than
}
