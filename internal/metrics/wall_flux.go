package metrics

import (
	"github.com/san-kum/plasma1d/internal/plasma"
)

// WallFlux averages the ion flux leaving through both walls, m^-2 s^-1.
type WallFlux struct {
	name    string
	sum     float64
	samples int
}

func NewWallFlux() *WallFlux {
	return &WallFlux{name: "wall_flux"}
}

func (w *WallFlux) Name() string {
	return w.name
}

func (w *WallFlux) Observe(st *plasma.State, t float64) {
	n := st.Len()
	// outward is -x at the left wall
	w.sum += st.Fluxi[n-1] - st.Fluxi[0]
	w.samples++
}

func (w *WallFlux) Value() float64 {
	if w.samples == 0 {
		return 0
	}
	return w.sum / float64(w.samples)
}

func (w *WallFlux) Reset() {
	w.sum = 0
	w.samples = 0
}

