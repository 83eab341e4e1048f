package ellipse

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_DefaultScenario(t *testing.T) {
	data := NewModel().Render()

	require.Len(t, data.Curve, DefaultResolution)

	c := math.Sqrt(300)
	assert.InDelta(t, -c, data.Foci[0].X, tolerance)
	assert.InDelta(t, 0, data.Foci[0].Y, tolerance)
	assert.InDelta(t, c, data.Foci[1].X, tolerance)
	assert.InDelta(t, 0, data.Foci[1].Y, tolerance)
	assert.InDelta(t, 17.32, data.Foci[1].X, 0.01)

	assert.InDelta(t, 0.866025, data.Eccentricity, 1e-6)
	assert.Equal(t, "0.866025", data.EccentricityText())
}

func TestRender_Circle(t *testing.T) {
	m := NewModel().WithResolution(1000)
	_, err := m.SetSemiMajor(10)
	require.NoError(t, err)
	data, err := m.SetCenter(3, -4)
	require.NoError(t, err)

	assert.Equal(t, 10.0, data.Params.A)
	assert.Equal(t, 10.0, data.Params.B)
	assert.Equal(t, 0.0, data.Params.LinearEccentricity())
	assert.Equal(t, Point{X: 3, Y: -4}, data.Foci[0])
	assert.Equal(t, Point{X: 3, Y: -4}, data.Foci[1])
	assert.Equal(t, 0.0, data.Eccentricity)
	assert.Equal(t, "0.000000", data.EccentricityText())

	for _, p := range data.Curve {
		require.InDelta(t, 10, p.Dist(Point{X: 3, Y: -4}), 1e-9)
	}
}

func TestRender_QuarterTurn(t *testing.T) {
	m := NewModel().WithResolution(1001)
	data, err := m.SetRotationDegrees(90)
	require.NoError(t, err)

	// t=0 starts at (a, 0) and turns counter-clockwise onto the +y axis
	assert.InDelta(t, 0, data.Curve[0].X, tolerance)
	assert.InDelta(t, 20, data.Curve[0].Y, tolerance)

	// Foci now lie on the y axis
	c := math.Sqrt(300)
	assert.InDelta(t, 0, data.Foci[0].X, tolerance)
	assert.InDelta(t, -c, data.Foci[0].Y, tolerance)
	assert.InDelta(t, 0, data.Foci[1].X, tolerance)
	assert.InDelta(t, c, data.Foci[1].Y, tolerance)

	// Same point set as the unrotated curve turned by 90 degrees
	flat := NewModel().WithResolution(1001).Render()
	for i := range flat.Curve {
		want := Point{X: -flat.Curve[i].Y, Y: flat.Curve[i].X}
		require.InDelta(t, want.X, data.Curve[i].X, 1e-9)
		require.InDelta(t, want.Y, data.Curve[i].Y, 1e-9)
	}

	min, max := data.Bounds()
	assert.InDelta(t, -10, min.X, 1e-6)
	assert.InDelta(t, 10, max.X, 1e-6)
	assert.InDelta(t, -20, min.Y, 1e-6)
	assert.InDelta(t, 20, max.Y, 1e-6)
}

func TestRender_Closure(t *testing.T) {
	for _, n := range []int{2, 3, 100, DefaultResolution} {
		m := NewModel().WithResolution(n)
		_, _ = m.SetRotationDegrees(37)
		data, _ := m.SetCenter(-8, 11)

		first, last := data.Curve[0], data.Curve[len(data.Curve)-1]
		assert.InDelta(t, first.X, last.X, 1e-9, "n=%d", n)
		assert.InDelta(t, first.Y, last.Y, 1e-9, "n=%d", n)
	}
}

func TestRender_FocusMidpointIsCenter(t *testing.T) {
	cases := []Params{
		{A: 20, B: 10, Angle: 0, X: 0, Y: 0},
		{A: 30.01, B: 0.1, Angle: Radians(33.3), X: -50, Y: 50},
		{A: 7, B: 7, Angle: Radians(120), X: 12, Y: -3},
		{A: 15, B: 2.5, Angle: Radians(-400), X: 0.5, Y: 49.9},
	}

	for _, p := range cases {
		m, err := NewModel().WithResolution(64).WithParams(p)
		require.NoError(t, err)
		data := m.Render()

		mid := data.Foci[0].Mid(data.Foci[1])
		assert.InDelta(t, p.X, mid.X, 1e-9, p.Label())
		assert.InDelta(t, p.Y, mid.Y, 1e-9, p.Label())
		assert.InDelta(t, 2*p.LinearEccentricity(), data.Foci[0].Dist(data.Foci[1]), 1e-9, p.Label())
	}
}

func TestRender_FocalDistanceSum(t *testing.T) {
	m, err := NewModel().WithResolution(720).WithParams(Params{A: 25, B: 9, Angle: Radians(61), X: 4, Y: -7})
	require.NoError(t, err)
	data := m.Render()

	for i, p := range data.Curve {
		sum := p.Dist(data.Foci[0]) + p.Dist(data.Foci[1])
		require.InDelta(t, 50, sum, 1e-9, "sample %d", i)
	}
}

func TestRender_EccentricityRange(t *testing.T) {
	m := NewModel().WithResolution(2)

	for a := 0.1; a <= 30.01; a += 0.37 {
		for b := 0.1; b <= a; b += 0.29 {
			p := Params{A: a, B: b}
			e := compute(p, 2).Eccentricity
			require.GreaterOrEqual(t, e, 0.0)
			require.Less(t, e, 1.0)
			require.InDelta(t, math.Sqrt(1-(b/a)*(b/a)), e, tolerance)
		}
	}

	_, _ = m.SetSemiMajor(12)
	_, _ = m.SetSemiMinor(12)
	assert.Equal(t, 0.0, m.Render().Eccentricity, "e is zero exactly when a equals b")
}

func TestRender_HugeAxesStayFinite(t *testing.T) {
	m := NewModel().WithResolution(8)

	data, err := m.SetSemiMajor(1e200)
	require.NoError(t, err)

	assert.InDelta(t, 1e200, m.Params().LinearEccentricity(), 1e188)
	for _, f := range data.Foci {
		assert.False(t, math.IsNaN(f.X) || math.IsInf(f.X, 0), "focus x %v", f.X)
		assert.False(t, math.IsNaN(f.Y) || math.IsInf(f.Y, 0), "focus y %v", f.Y)
	}
	assert.InDelta(t, 1, data.Eccentricity, tolerance)
}

func TestRender_FreshCurveEachCall(t *testing.T) {
	m := NewModel().WithResolution(8)
	first := m.Render()
	_, _ = m.SetCenterX(5)
	second := m.Render()

	assert.NotEqual(t, first.Curve[0], second.Curve[0])
	assert.InDelta(t, 20, first.Curve[0].X, tolerance, "earlier frames are never patched")
}

func TestCompute_PanicsOnBrokenInvariant(t *testing.T) {
	assert.Panics(t, func() { compute(Params{A: 1, B: 2}, 8) })
	assert.Panics(t, func() { compute(Params{A: 0, B: 0}, 8) })
}

func TestRenderData_BoundsEmpty(t *testing.T) {
	min, max := RenderData{}.Bounds()
	assert.Equal(t, Point{}, min)
	assert.Equal(t, Point{}, max)
}
