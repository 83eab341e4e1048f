package ellipse

import (
	"fmt"
	"math"

	"github.com/teranos/ellipse/trip"
)

// Model owns the parameters of one ellipse.
//
// Setters never return an invalid ellipse. Values that would break a >= b are
// snapped to the boundary (a down to b, b up to a) rather than refused, so a
// slider that produced the value can be reset to match. Values no slider can
// produce (zero, negative, NaN, infinite) are refused with a precondition
// trip and leave the model untouched.
//
// A Model is not safe for concurrent use; it belongs to whichever goroutine
// handles user input.
type Model struct {
	params     Params
	resolution int
	clamped    bool
}

// NewModel returns a model with DefaultParams and DefaultResolution.
func NewModel() *Model {
	return &Model{
		params:     DefaultParams(),
		resolution: DefaultResolution,
	}
}

// WithResolution sets the number of boundary samples. Values below 2 are
// ignored since a closed curve needs both endpoints.
func (m *Model) WithResolution(n int) *Model {
	if n >= 2 {
		m.resolution = n
	}
	return m
}

// WithParams replaces the parameters after checking them.
func (m *Model) WithParams(p Params) (*Model, error) {
	if !p.Valid() {
		return m, trip.NewFall(trip.Precondition, "parameters must satisfy 0 < b <= a with finite values", trip.Context{
			"params": p.Label(),
		})
	}
	m.params = p
	m.clamped = false
	return m, nil
}

// Resolution returns the number of boundary samples per render.
func (m *Model) Resolution() int {
	return m.resolution
}

// Params returns a copy of the current parameters.
func (m *Model) Params() Params {
	return m.params
}

// RotationDegrees returns the stored rotation converted back to degrees.
func (m *Model) RotationDegrees() float64 {
	return m.params.Degrees()
}

// Clamped reports whether the most recent setter snapped its input. Only the
// axis setters snap; every other accepted change clears it.
func (m *Model) Clamped() bool {
	return m.clamped
}

// SetSemiMajor sets a. If a is not greater than the current b, a becomes b.
func (m *Model) SetSemiMajor(a float64) (RenderData, error) {
	if err := checkAxis("a", a); err != nil {
		return m.Render(), err
	}
	if a > m.params.B {
		m.params.A = a
		m.clamped = false
	} else {
		m.params.A = m.params.B
		m.clamped = true
	}
	return m.Render(), nil
}

// SetSemiMinor sets b. If b is not less than the current a, b becomes a.
func (m *Model) SetSemiMinor(b float64) (RenderData, error) {
	if err := checkAxis("b", b); err != nil {
		return m.Render(), err
	}
	if b < m.params.A {
		m.params.B = b
		m.clamped = false
	} else {
		m.params.B = m.params.A
		m.clamped = true
	}
	return m.Render(), nil
}

// SetRotationDegrees stores deg as radians. Any finite angle is accepted.
func (m *Model) SetRotationDegrees(deg float64) (RenderData, error) {
	if err := checkFinite("rotation", deg); err != nil {
		return m.Render(), err
	}
	m.params.Angle = Radians(deg)
	m.clamped = false
	return m.Render(), nil
}

// SetCenterX moves the center horizontally.
func (m *Model) SetCenterX(x float64) (RenderData, error) {
	return m.SetCenter(x, m.params.Y)
}

// SetCenterY moves the center vertically.
func (m *Model) SetCenterY(y float64) (RenderData, error) {
	return m.SetCenter(m.params.X, y)
}

// SetCenter moves the center to (x, y).
func (m *Model) SetCenter(x, y float64) (RenderData, error) {
	if err := checkFinite("x", x); err != nil {
		return m.Render(), err
	}
	if err := checkFinite("y", y); err != nil {
		return m.Render(), err
	}
	m.params.X, m.params.Y = x, y
	m.clamped = false
	return m.Render(), nil
}

// Reset restores DefaultParams.
func (m *Model) Reset() RenderData {
	m.params = DefaultParams()
	m.clamped = false
	return m.Render()
}

// Render computes the frame for the current parameters.
//
// It panics if the a >= b > 0 invariant does not hold, which the setters make
// unreachable.
func (m *Model) Render() RenderData {
	return compute(m.params, m.resolution)
}

func checkAxis(name string, v float64) error {
	if err := checkFinite(name, v); err != nil {
		return err
	}
	if v <= 0 {
		return trip.NewFall(trip.Precondition, fmt.Sprintf("%s must be positive", name), trip.Context{
			name: v,
		})
	}
	return nil
}

func checkFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return trip.NewFall(trip.Precondition, fmt.Sprintf("%s must be a finite number", name), trip.Context{
			name: v,
		})
	}
	return nil
}
