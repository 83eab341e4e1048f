// Package ellipse computes everything needed to draw a rotated, translated
// ellipse together with its foci and eccentricity.
//
// A Model holds the five parameters a user adjusts (semi-major axis,
// semi-minor axis, rotation, center x, center y) and keeps the semi-major
// axis at least as long as the semi-minor one. Every change produces a fresh
// RenderData snapshot that a presentation layer can draw without ever seeing a
// half-updated parameter set.
//
// Basic usage:
//
//	m := ellipse.NewModel()
//	if _, err := m.SetSemiMajor(25); err != nil {
//		return err
//	}
//	data, _ := m.SetRotationDegrees(30)
//	fmt.Println(data.Foci, data.EccentricityText())
package ellipse

import (
	"fmt"
	"math"
)

// Default parameter values of a fresh model.
const (
	DefaultSemiMajor = 20.0
	DefaultSemiMinor = 10.0
	DefaultRotation  = 0.0
	DefaultCenterX   = 0.0
	DefaultCenterY   = 0.0
)

// Params is the state of one ellipse.
//
// Angle is stored in radians; the Model API speaks degrees.
type Params struct {
	A     float64 // semi-major axis, > 0
	B     float64 // semi-minor axis, > 0 and <= A
	Angle float64 // rotation in radians
	X     float64 // center x
	Y     float64 // center y
}

// DefaultParams returns a=20, b=10, no rotation, centered at the origin.
func DefaultParams() Params {
	return Params{
		A:     DefaultSemiMajor,
		B:     DefaultSemiMinor,
		Angle: Radians(DefaultRotation),
		X:     DefaultCenterX,
		Y:     DefaultCenterY,
	}
}

// Degrees returns the rotation in degrees.
func (p Params) Degrees() float64 {
	return Degrees(p.Angle)
}

// Center returns the center point.
func (p Params) Center() Point {
	return Point{X: p.X, Y: p.Y}
}

// LinearEccentricity is the distance from the center to each focus,
// sqrt(a^2 - b^2). It is computed from the ratio b/a so that axes whose
// squares overflow still give a finite distance.
func (p Params) LinearEccentricity() float64 {
	r := p.B / p.A
	return p.A * math.Sqrt((1-r)*(1+r))
}

// Eccentricity is sqrt(1 - (b/a)^2), in [0, 1) for a valid ellipse.
func (p Params) Eccentricity() float64 {
	r := p.B / p.A
	return math.Sqrt(1 - r*r)
}

// Valid reports whether p satisfies 0 < B <= A with finite values everywhere.
func (p Params) Valid() bool {
	for _, v := range []float64{p.A, p.B, p.Angle, p.X, p.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return p.B > 0 && p.A >= p.B
}

// Label is the one-line caption shown under the plot.
func (p Params) Label() string {
	return fmt.Sprintf("a=%.3f b=%.3f r=%.1f x=%.1f y=%.1f", p.A, p.B, p.Degrees(), p.X, p.Y)
}

func (p Params) String() string {
	return p.Label()
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
