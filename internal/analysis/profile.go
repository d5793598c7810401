package analysis

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/plasma1d/internal/mesh"
)

// ProfileShape summarises a density profile.
type ProfileShape struct {
	Peak      float64 // largest value
	PeakX     float64 // m
	Inventory float64 // integral over the mesh
	// EdgeRatio is the value at the first interior node over the peak.
	EdgeRatio float64
	// FWHM is the width over which the profile exceeds half the peak, m.
	FWHM float64
}

// Profile summarises y sampled on m. It panics if len(y) != m.Len().
func Profile(m *mesh.Mesh, y []float64) ProfileShape {
	inv := m.Integrate(y)
	idx := floats.MaxIdx(y)
	s := ProfileShape{
		Peak:      y[idx],
		PeakX:     m.At(idx),
		Inventory: inv,
	}
	if s.Peak <= 0 {
		return s
	}
	s.EdgeRatio = y[1] / s.Peak

	half := s.Peak / 2
	left, right := m.At(0), m.At(m.Len()-1)
	for i := idx; i > 0; i-- {
		if y[i-1] < half {
			left = crossing(m.At(i-1), m.At(i), y[i-1], y[i], half)
			break
		}
	}
	for i := idx; i < m.Len()-1; i++ {
		if y[i+1] < half {
			right = crossing(m.At(i), m.At(i+1), y[i], y[i+1], half)
			break
		}
	}
	s.FWHM = right - left
	return s
}

func crossing(x0, x1, y0, y1, level float64) float64 {
	if y1 == y0 {
		return x0
	}
	return x0 + (level-y0)*(x1-x0)/(y1-y0)
}
