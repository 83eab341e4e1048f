package ellipse

import (
	"fmt"
	"math"
)

// DefaultResolution is the number of samples taken along the boundary.
const DefaultResolution = 100000

// Point is a position in plot units.
type Point struct {
	X, Y float64
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Mid returns the midpoint between p and q.
func (p Point) Mid(q Point) Point {
	return Point{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2}
}

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// RenderData is everything a renderer needs for one frame.
//
// It is recomputed wholesale on every change and never modified afterwards;
// holders may share it freely.
type RenderData struct {
	Params       Params   // parameters the frame was computed from
	Curve        []Point  // boundary samples, t in [0, 2pi], first ~= last
	Foci         [2]Point // (-c, 0) and (+c, 0) after rotation and translation
	Eccentricity float64
}

// EccentricityText formats the eccentricity with six decimals.
func (d RenderData) EccentricityText() string {
	return fmt.Sprintf("%.6f", d.Eccentricity)
}

// Bounds returns the bounding box of the curve. Both points are zero for an
// empty curve.
func (d RenderData) Bounds() (min, max Point) {
	if len(d.Curve) == 0 {
		return Point{}, Point{}
	}
	min, max = d.Curve[0], d.Curve[0]
	for _, p := range d.Curve[1:] {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
	}
	return min, max
}

// rotation is the 2x2 matrix [[c, s], [-s, c]] built from c = cos(-angle),
// s = sin(-angle). Applied to a column vector it turns the ellipse
// counter-clockwise by angle in a y-up plot.
type rotation struct {
	c, s float64
}

func newRotation(angle float64) rotation {
	return rotation{c: math.Cos(-angle), s: math.Sin(-angle)}
}

func (r rotation) apply(x, y float64) (float64, float64) {
	return r.c*x + r.s*y, -r.s*x + r.c*y
}

// compute builds the frame for p with n boundary samples.
// Callers guarantee p.Valid() and n >= 2.
func compute(p Params, n int) RenderData {
	if !(p.A > 0 && p.A >= p.B && p.B > 0) {
		panic(fmt.Sprintf("ellipse: invariant 0 < b <= a violated: %s", p.Label()))
	}

	rot := newRotation(p.Angle)
	center := p.Center()
	step := 2 * math.Pi / float64(n-1)

	curve := make([]Point, n)
	for i := range curve {
		t := float64(i) * step
		x, y := rot.apply(p.A*math.Cos(t), p.B*math.Sin(t))
		curve[i] = Point{X: x, Y: y}.Add(center)
	}

	c := p.LinearEccentricity()
	var foci [2]Point
	for i, fx := range [2]float64{-c, c} {
		x, y := rot.apply(fx, 0)
		foci[i] = Point{X: x, Y: y}.Add(center)
	}

	return RenderData{
		Params:       p,
		Curve:        curve,
		Foci:         foci,
		Eccentricity: p.Eccentricity(),
	}
}
