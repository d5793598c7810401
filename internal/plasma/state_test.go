package plasma

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/plasma1d/internal/mesh"
)

func newMesh(t *testing.T, nx int) *mesh.Mesh {
	t.Helper()
	m, err := mesh.New(0.1, nx)
	require.NoError(t, err)
	return m
}

func TestNewUniformAbsorbing(t *testing.T) {
	m := newMesh(t, 11)
	st, err := New(m, DefaultConfig(), DefaultUniform())
	require.NoError(t, err)

	n := st.Len()
	for _, f := range [][]float64{st.Ne, st.Ni, st.Nn, st.Te, st.Ti, st.Se, st.Si} {
		assert.Equal(t, 0.0, f[0])
		assert.Equal(t, 0.0, f[n-1])
	}
	for i := 1; i < n-1; i++ {
		assert.Equal(t, 1e17, st.Ne[i])
		assert.Equal(t, st.Ne[i], st.Ni[i])
		assert.Equal(t, 3.3e20, st.Nn[i])
		assert.Equal(t, 1.0, st.Te[i])
		assert.Equal(t, 0.1, st.Ti[i])
	}
	assert.Equal(t, make([]float64, n), st.Fluxe)
	assert.Equal(t, make([]float64, n), st.Fluxi)
}

func TestNewUniformExtension(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Wall = Extension
	st, err := New(newMesh(t, 5), cfg, Uniform{Ne: 1e16, Nn: 1e20, Te: 2, Ti: 0.05, Se: 1e19})
	require.NoError(t, err)

	for _, f := range [][]float64{st.Ne, st.Ni, st.Te, st.Ti, st.Se} {
		assert.Equal(t, f[1], f[0])
		assert.Equal(t, f[3], f[4])
	}
}

func TestNewRejectsNonFiniteSeed(t *testing.T) {
	u := DefaultUniform()
	u.Te = math.NaN()
	_, err := New(newMesh(t, 5), DefaultConfig(), u)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestNewRejectsBadLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Limits.NMin, cfg.Limits.NMax = 1e20, 1e10
	_, err := New(newMesh(t, 5), cfg, DefaultUniform())
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestLimitsClampInterior(t *testing.T) {
	m := newMesh(t, 5)
	st, err := FromProfiles(m, DefaultConfig(), Profiles{
		Ne: []float64{5, -1, 1e30, 1e15, 5},
		Ni: []float64{5, 1e15, 1e15, 1e15, 5},
		Te: []float64{1, 0, 1000, 1, 1},
		Ti: []float64{1, 0.1, 0.1, -2, 1},
	})
	require.NoError(t, err)

	l := DefaultLimits()
	assert.Equal(t, []float64{0, l.NMin, l.NMax, 1e15, 0}, st.Ne)
	assert.Equal(t, []float64{0, l.TMin, l.TMax, 1, 0}, st.Te)
	assert.Equal(t, []float64{0, 0.1, 0.1, l.TMin, 0}, st.Ti)
	// nil profiles start at zero and are lifted to the floor
	assert.Equal(t, []float64{0, l.NMin, l.NMin, l.NMin, 0}, st.Nn)
}

func TestLimitsClampEveryNodeWithExtension(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Wall = Extension
	st, err := FromProfiles(newMesh(t, 4), cfg, Profiles{
		Ne: []float64{0, 0, 0, 0},
	})
	require.NoError(t, err)
	for _, v := range st.Ne {
		assert.Equal(t, cfg.Limits.NMin, v)
	}
}

func TestFromProfilesValidation(t *testing.T) {
	m := newMesh(t, 5)

	_, err := FromProfiles(m, DefaultConfig(), Profiles{Ne: []float64{1, 2}})
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = FromProfiles(m, DefaultConfig(), Profiles{Ti: []float64{1, 1, math.Inf(1), 1, 1}})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestFromProfilesCopiesInput(t *testing.T) {
	ne := []float64{1e16, 1e16, 1e16, 1e16, 1e16}
	st, err := FromProfiles(newMesh(t, 5), DefaultConfig(), Profiles{Ne: ne})
	require.NoError(t, err)

	st.Ne[2] = 3
	assert.Equal(t, 1e16, ne[2])
}

func TestClone(t *testing.T) {
	st, err := New(newMesh(t, 5), DefaultConfig(), DefaultUniform())
	require.NoError(t, err)

	c := st.Clone()
	c.Ne[2] = 1
	c.Fluxi[1] = 7
	assert.Equal(t, 1e17, st.Ne[2])
	assert.Equal(t, 0.0, st.Fluxi[1])
	assert.Same(t, st.Mesh, c.Mesh)
	assert.Equal(t, st.Config(), c.Config())
}

func TestNonFinite(t *testing.T) {
	st, err := New(newMesh(t, 5), DefaultConfig(), DefaultUniform())
	require.NoError(t, err)

	_, _, found := st.NonFinite()
	assert.False(t, found)

	st.Fluxi[3] = math.NaN()
	field, idx, found := st.NonFinite()
	assert.True(t, found)
	assert.Equal(t, "fluxi", field)
	assert.Equal(t, 3, idx)
}

func TestInteriorMeanAndInventory(t *testing.T) {
	st, err := New(newMesh(t, 11), DefaultConfig(), DefaultUniform())
	require.NoError(t, err)

	assert.InEpsilon(t, 1e17, st.InteriorMean(st.Ne), 1e-12)

	e, i := st.Inventory()
	assert.Equal(t, e, i)
	// nine interior nodes of 0.01 m each
	assert.InEpsilon(t, 1e17*0.09, e, 1e-9)
}

func TestParseWall(t *testing.T) {
	w, err := ParseWall("extension")
	require.NoError(t, err)
	assert.Equal(t, Extension, w)

	w, err = ParseWall("")
	require.NoError(t, err)
	assert.Equal(t, Absorbing, w)

	_, err = ParseWall("mirror")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, "absorbing", Absorbing.String())
}
