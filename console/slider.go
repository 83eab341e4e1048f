package console

import (
	"fmt"
	"math"
	"strings"

	"github.com/teranos/ellipse/config"
)

// Slider is a bounded numeric control with a fixed step grid.
type Slider struct {
	Label string
	Range config.Range
	Value float64
}

// NewSlider creates a slider at value, clamped into r.
func NewSlider(label string, r config.Range, value float64) Slider {
	s := Slider{Label: label, Range: r}
	s.Sync(value)
	return s
}

// Set moves the slider to v, snapped to the step grid and clamped to the
// range, and returns the resulting value.
func (s *Slider) Set(v float64) float64 {
	r := s.Range
	if r.Step > 0 {
		steps := math.Round((v - r.Min) / r.Step)
		v = r.Min + steps*r.Step
		v = roundTo(v, decimals(r.Step))
	}
	s.Sync(v)
	return s.Value
}

// Sync moves the slider to v without snapping, only clamping. It is used when
// the model decided the value, e.g. after a snap to keep a >= b.
func (s *Slider) Sync(v float64) {
	s.Value = math.Max(s.Range.Min, math.Min(s.Range.Max, v))
}

// Nudge moves the slider by n steps.
func (s *Slider) Nudge(n int) float64 {
	return s.Set(s.Value + float64(n)*s.Range.Step)
}

// Readout formats the value with the slider's format.
func (s Slider) Readout() string {
	format := s.Range.Format
	if format == "" {
		format = "%g"
	}
	return fmt.Sprintf(format, s.Value)
}

// Fraction is the slider position in [0, 1].
func (s Slider) Fraction() float64 {
	span := s.Range.Max - s.Range.Min
	if span <= 0 {
		return 0
	}
	return (s.Value - s.Range.Min) / span
}

// Bar draws the slider track width cells wide.
func (s Slider) Bar(width int) string {
	filled := int(math.Round(s.Fraction() * float64(width)))
	filled = max(0, min(width, filled))
	return strings.Repeat("━", filled) + strings.Repeat("─", width-filled)
}

// decimals returns how many decimal places a step like 0.001 needs.
func decimals(step float64) int {
	d := 0
	for d < 12 && math.Abs(step-math.Round(step)) > 1e-12 {
		step *= 10
		d++
	}
	return d
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
