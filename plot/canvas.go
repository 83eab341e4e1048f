// Package plot draws ellipse render data for people: as braille characters in
// a terminal and as PNG snapshots on disk.
//
// Both surfaces honor the same display contract: a square window of
// [-Limit, Limit] in x and y with equal aspect ratio, so one unit along x is
// as long as one unit along y and the ellipse never looks squashed.
package plot

import (
	"math"
	"strings"

	"github.com/teranos/ellipse"
)

// DefaultLimit is the half-width of the visible window in plot units.
const DefaultLimit = 50.0

// Layer says what occupies a terminal cell.
type Layer int

const (
	LayerEmpty Layer = iota
	LayerAxis
	LayerCurve
	LayerFocus
)

const brailleBase = 0x2800

// brailleBits maps a dot at (col, row) inside a 2x4 braille cell to its bit.
var brailleBits = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// Canvas is a terminal drawing surface made of braille cells.
//
// Each cell holds 2x4 dots. Terminal cells are about twice as tall as they
// are wide, so braille dots come out roughly square and a single scale for
// both axes keeps the aspect ratio equal.
type Canvas struct {
	cols, rows int
	limit      float64
	scale      float64 // dots per plot unit
	dots       [][]rune
	overlay    [][]rune
	layers     [][]Layer
}

// NewCanvas creates a canvas of cols x rows terminal cells showing
// [-limit, limit] on both axes. Sizes below one cell are raised to one.
func NewCanvas(cols, rows int, limit float64) *Canvas {
	cols = max(cols, 1)
	rows = max(rows, 1)
	if limit <= 0 {
		limit = DefaultLimit
	}

	c := &Canvas{
		cols:    cols,
		rows:    rows,
		limit:   limit,
		scale:   float64(min(cols*2, rows*4)-1) / (2 * limit),
		dots:    make([][]rune, rows),
		overlay: make([][]rune, rows),
		layers:  make([][]Layer, rows),
	}
	for i := range c.dots {
		c.dots[i] = make([]rune, cols)
		c.overlay[i] = make([]rune, cols)
		c.layers[i] = make([]Layer, cols)
	}
	return c
}

// Size returns the canvas size in terminal cells.
func (c *Canvas) Size() (cols, rows int) {
	return c.cols, c.rows
}

// Clear empties every cell.
func (c *Canvas) Clear() {
	for r := range c.dots {
		for col := range c.dots[r] {
			c.dots[r][col] = 0
			c.overlay[r][col] = 0
			c.layers[r][col] = LayerEmpty
		}
	}
}

// toDot maps a plot position to dot coordinates. Row zero is at the top.
func (c *Canvas) toDot(p ellipse.Point) (x, y int) {
	cx := float64(c.cols*2-1) / 2
	cy := float64(c.rows*4-1) / 2
	return int(math.Round(cx + p.X*c.scale)), int(math.Round(cy - p.Y*c.scale))
}

// Set turns on the dot under p. Points outside the canvas are dropped.
func (c *Canvas) Set(p ellipse.Point) bool {
	x, y := c.toDot(p)
	if x < 0 || y < 0 || x >= c.cols*2 || y >= c.rows*4 {
		return false
	}
	col, row := x/2, y/4
	c.dots[row][col] |= brailleBits[y%4][x%2]
	if c.layers[row][col] < LayerCurve {
		c.layers[row][col] = LayerCurve
	}
	return true
}

// Mark places r in the cell under p, above any dots.
func (c *Canvas) Mark(p ellipse.Point, r rune, layer Layer) bool {
	x, y := c.toDot(p)
	if x < 0 || y < 0 || x >= c.cols*2 || y >= c.rows*4 {
		return false
	}
	col, row := x/2, y/4
	if c.layers[row][col] > layer {
		return false
	}
	c.overlay[row][col] = r
	c.layers[row][col] = layer
	return true
}

// DrawAxes draws the x and y axes through the origin underneath everything.
func (c *Canvas) DrawAxes() {
	ox, oy := c.toDot(ellipse.Point{})
	axisRow, axisCol := oy/4, ox/2

	for col := 0; col < c.cols; col++ {
		c.axisCell(axisRow, col, '─')
	}
	for row := 0; row < c.rows; row++ {
		c.axisCell(row, axisCol, '│')
	}
	c.axisCell(axisRow, axisCol, '┼')
}

func (c *Canvas) axisCell(row, col int, r rune) {
	if row < 0 || col < 0 || row >= c.rows || col >= c.cols {
		return
	}
	if c.layers[row][col] <= LayerAxis {
		c.overlay[row][col] = r
		c.layers[row][col] = LayerAxis
	}
}

// Plot draws the curve and marks both foci with '+'.
func (c *Canvas) Plot(data ellipse.RenderData) {
	for _, p := range data.Curve {
		c.Set(p)
	}
	for _, f := range data.Foci {
		c.Mark(f, '+', LayerFocus)
	}
}

// cell returns the rune shown at (row, col) and its layer.
func (c *Canvas) cell(row, col int) (rune, Layer) {
	layer := c.layers[row][col]
	switch layer {
	case LayerFocus:
		return c.overlay[row][col], layer
	case LayerCurve:
		return brailleBase + c.dots[row][col], layer
	case LayerAxis:
		return c.overlay[row][col], layer
	}
	return ' ', LayerEmpty
}

// Render returns the canvas rows joined by newlines, passing each run of
// same-layer cells through paint. A nil paint leaves text unstyled.
func (c *Canvas) Render(paint func(Layer, string) string) string {
	if paint == nil {
		paint = func(_ Layer, s string) string { return s }
	}

	var b strings.Builder
	for row := 0; row < c.rows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		var run strings.Builder
		current := LayerEmpty
		for col := 0; col < c.cols; col++ {
			r, layer := c.cell(row, col)
			if layer != current && run.Len() > 0 {
				b.WriteString(paint(current, run.String()))
				run.Reset()
			}
			current = layer
			run.WriteRune(r)
		}
		b.WriteString(paint(current, run.String()))
	}
	return b.String()
}

func (c *Canvas) String() string {
	return c.Render(nil)
}
