package viz

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/floats"
)

// ChartSize is the plot area of a chart in terminal cells.
type ChartSize struct {
	Width, Height int
}

var DefaultChartSize = ChartSize{Width: 60, Height: 12}

// scaleOf returns the power of ten that brings the largest magnitude in
// series into [1, 10).
func scaleOf(series ...[]float64) float64 {
	peak := 0.0
	for _, s := range series {
		for _, v := range s {
			peak = math.Max(peak, math.Abs(v))
		}
	}
	if peak == 0 || math.IsInf(peak, 0) || math.IsNaN(peak) {
		return 1
	}
	return math.Pow(10, math.Floor(math.Log10(peak)))
}

func scaled(y []float64, scale float64) []float64 {
	out := make([]float64, len(y))
	copy(out, y)
	floats.Scale(1/scale, out)
	return out
}

func unitCaption(label, unit string, scale float64) string {
	if scale == 1 {
		return fmt.Sprintf("%s [%s]", label, unit)
	}
	return fmt.Sprintf("%s [%.0e %s]", label, scale, unit)
}

// ProfileChart plots one or more density profiles against node index.
// The first profile is drawn on top when they overlap.
func ProfileChart(size ChartSize, caption string, profiles ...[]float64) string {
	if len(profiles) == 0 || len(profiles[0]) == 0 {
		return ""
	}
	scale := scaleOf(profiles...)
	data := make([][]float64, len(profiles))
	for i := range profiles {
		data[len(profiles)-1-i] = scaled(profiles[i], scale)
	}
	return asciigraph.PlotMany(data,
		asciigraph.Height(size.Height),
		asciigraph.Width(size.Width),
		asciigraph.Precision(2),
		asciigraph.Caption(unitCaption(caption, "m^-3", scale)),
	)
}

// HistoryChart plots a scalar series such as the mean density per step.
func HistoryChart(size ChartSize, caption, unit string, values []float64) string {
	if len(values) < 2 {
		return ""
	}
	scale := scaleOf(values)
	return asciigraph.Plot(scaled(values, scale),
		asciigraph.Height(size.Height),
		asciigraph.Width(size.Width),
		asciigraph.Precision(3),
		asciigraph.Caption(unitCaption(caption, unit, scale)),
	)
}
