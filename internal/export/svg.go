// Package export renders stored profiles as standalone SVG line plots.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/plasma1d/internal/storage"
)

var ErrEmpty = errors.New("export: nothing to plot")

// Series is one line of a plot. Y must have the same length as the x axis.
type Series struct {
	Name  string
	Y     []float64
	Color string
}

// ProfileSVG draws every series against x with shared axes.
func ProfileSVG(x []float64, series []Series, width, height int) (string, error) {
	if len(x) < 2 || len(series) == 0 {
		return "", ErrEmpty
	}
	for _, s := range series {
		if len(s.Y) != len(x) {
			return "", fmt.Errorf("export: series %q has %d points for %d positions", s.Name, len(s.Y), len(x))
		}
	}

	minX, maxX := floats.Min(x), floats.Max(x)
	minY, maxY := floats.Min(series[0].Y), floats.Max(series[0].Y)
	for _, s := range series[1:] {
		minY = min(minY, floats.Min(s.Y))
		maxY = max(maxY, floats.Max(s.Y))
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.05
	maxX += rangeX * 0.05
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	for k, s := range series {
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, s.Color)
		for i := range x {
			px := (x[i] - minX) / rangeX * float64(width)
			py := float64(height) - (s.Y[i]-minY)/rangeY*float64(height)
			if i == 0 {
				fmt.Fprintf(&sb, "%.1f,%.1f", px, py)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", px, py)
			}
		}
		sb.WriteString("\"/>\n")
		fmt.Fprintf(&sb, `<text x="8" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>
`, 16*(k+1), s.Color, s.Name)
	}

	fmt.Fprintf(&sb, `<text x="8" y="%d" fill="#888888" font-family="monospace" font-size="10">x: %.3g to %.3g m, y: %.3g to %.3g</text>
`, height-6, floats.Min(x), floats.Max(x), minY+rangeY/12, maxY-rangeY/12)
	sb.WriteString("</svg>\n")
	return sb.String(), nil
}

// WriteProfileSVG plots the electron and ion densities of p.
func WriteProfileSVG(w io.Writer, p *storage.Profile, width, height int) error {
	svg, err := ProfileSVG(p.X, []Series{
		{Name: "ne", Y: p.Ne, Color: "#00ffff"},
		{Name: "ni", Y: p.Ni, Color: "#ff00ff"},
	}, width, height)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, svg)
	return err
}
