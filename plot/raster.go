package plot

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/teranos/ellipse"
	"github.com/teranos/ellipse/trip"
)

// Frame is one picture of the ellipse: the render data plus the text that
// goes around it.
type Frame struct {
	Data    ellipse.RenderData
	Title   string // drawn above the plot, e.g. a timestamp
	Caption string // drawn below the plot, e.g. the parameter label
}

// NewFrame builds a frame captioned with the parameter label and eccentricity.
func NewFrame(data ellipse.RenderData, title string) Frame {
	return Frame{
		Data:    data,
		Title:   title,
		Caption: fmt.Sprintf("%s e=%s", data.Params.Label(), data.EccentricityText()),
	}
}

// Config defines the look of PNG snapshots.
type Config struct {
	Width      int        // Image width in pixels
	Height     int        // Image height in pixels
	Limit      float64    // Half-width of the visible window in plot units
	GridStep   float64    // Plot units between grid lines, 0 disables the grid
	Background color.RGBA // Background color
	Foreground color.RGBA // Text and axis color
	Grid       color.RGBA // Grid line color
	Curve      color.RGBA // Ellipse outline color
	Focus      color.RGBA // Focus marker color
	OutputDir  string     // Directory snapshots are written to
}

// DefaultConfig draws a dark red outline with blue '+' foci,
// a grid every ten units and a +/-50 window.
func DefaultConfig() Config {
	return Config{
		Width:      500,
		Height:     560,
		Limit:      DefaultLimit,
		GridStep:   10,
		Background: color.RGBA{255, 255, 255, 255},
		Foreground: color.RGBA{0, 0, 0, 255},
		Grid:       color.RGBA{220, 220, 220, 255},
		Curve:      color.RGBA{0xAA, 0x02, 0x02, 255},
		Focus:      color.RGBA{0, 0, 255, 255},
		OutputDir:  "snapshots",
	}
}

const (
	textMargin = 20 // pixels reserved above and below the plot for text
	focusArm   = 4  // half-length of a focus marker arm in pixels
)

// Stage renders frames into an RGBA buffer and saves them as PNG.
type Stage struct {
	config Config
	img    *image.RGBA
	font   font.Face

	// plot square in pixels
	originX, originY float64
	scale            float64
}

// NewStage creates a raster stage. The plot area is the largest square that
// fits between the title and caption bands.
func NewStage(config Config) *Stage {
	if config.Width <= 0 || config.Height <= 0 {
		def := DefaultConfig()
		config.Width, config.Height = def.Width, def.Height
	}
	if config.Limit <= 0 {
		config.Limit = DefaultLimit
	}

	side := min(config.Width, config.Height-2*textMargin)
	side = max(side, 1)

	return &Stage{
		config:  config,
		img:     image.NewRGBA(image.Rect(0, 0, config.Width, config.Height)),
		font:    basicfont.Face7x13,
		originX: float64(config.Width) / 2,
		originY: float64(textMargin) + float64(side)/2,
		scale:   float64(side-1) / (2 * config.Limit),
	}
}

// Config returns the stage configuration.
func (s *Stage) Config() Config {
	return s.config
}

// Image returns the buffer of the last rendered frame.
func (s *Stage) Image() *image.RGBA {
	return s.img
}

// ToPixel maps a plot position to pixel coordinates. y grows downwards in
// the image and upwards in the plot.
func (s *Stage) ToPixel(p ellipse.Point) image.Point {
	return image.Point{
		X: int(math.Round(s.originX + p.X*s.scale)),
		Y: int(math.Round(s.originY - p.Y*s.scale)),
	}
}

// Render draws frame into the buffer, replacing whatever was there.
func (s *Stage) Render(frame Frame) {
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(s.config.Background), image.Point{}, draw.Src)

	s.drawGrid()

	for _, p := range frame.Data.Curve {
		s.setPixel(s.ToPixel(p), s.config.Curve)
	}

	for _, f := range frame.Data.Foci {
		c := s.ToPixel(f)
		for d := -focusArm; d <= focusArm; d++ {
			s.setPixel(image.Point{X: c.X + d, Y: c.Y}, s.config.Focus)
			s.setPixel(image.Point{X: c.X, Y: c.Y + d}, s.config.Focus)
		}
	}

	s.drawText(frame.Title, textMargin-6)
	s.drawText(frame.Caption, s.config.Height-6)
}

// drawGrid draws grid lines every GridStep units and the two axes.
func (s *Stage) drawGrid() {
	limit := s.config.Limit
	lo := s.ToPixel(ellipse.Point{X: -limit, Y: -limit})
	hi := s.ToPixel(ellipse.Point{X: limit, Y: limit})

	if step := s.config.GridStep; step > 0 {
		for v := -math.Floor(limit/step) * step; v <= limit; v += step {
			px := s.ToPixel(ellipse.Point{X: v, Y: v})
			s.hline(lo.X, hi.X, px.Y, s.config.Grid)
			s.vline(hi.Y, lo.Y, px.X, s.config.Grid)
		}
	}

	origin := s.ToPixel(ellipse.Point{})
	s.hline(lo.X, hi.X, origin.Y, s.config.Foreground)
	s.vline(hi.Y, lo.Y, origin.X, s.config.Foreground)
}

func (s *Stage) hline(x0, x1, y int, c color.RGBA) {
	for x := x0; x <= x1; x++ {
		s.setPixel(image.Point{X: x, Y: y}, c)
	}
}

func (s *Stage) vline(y0, y1, x int, c color.RGBA) {
	for y := y0; y <= y1; y++ {
		s.setPixel(image.Point{X: x, Y: y}, c)
	}
}

func (s *Stage) setPixel(p image.Point, c color.RGBA) {
	if p.In(s.img.Bounds()) {
		s.img.SetRGBA(p.X, p.Y, c)
	}
}

// drawText centers text horizontally with its baseline at y.
func (s *Stage) drawText(text string, y int) {
	if text == "" {
		return
	}

	drawer := &font.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(s.config.Foreground),
		Face: s.font,
	}

	width := drawer.MeasureString(text).Ceil()
	x := max((s.config.Width-width)/2, 0)

	drawer.Dot = fixed.Point26_6{
		X: fixed.I(x),
		Y: fixed.I(y),
	}
	drawer.DrawString(text)
}

// CaptureFrame renders frame and writes it as PNG to filename. Relative names
// are placed in the configured output directory.
func (s *Stage) CaptureFrame(frame Frame, filename string) (string, error) {
	s.Render(frame)

	path := filename
	if !filepath.IsAbs(path) && s.config.OutputDir != "" {
		path = filepath.Join(s.config.OutputDir, filename)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", s.renderTrip("failed to create snapshot directory", path, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return "", s.renderTrip("failed to create snapshot file", path, err)
	}
	defer file.Close()

	if err := png.Encode(file, s.img); err != nil {
		return "", s.renderTrip("failed to encode snapshot", path, err)
	}
	return path, nil
}

func (s *Stage) renderTrip(message, path string, err error) error {
	return trip.NewStumble(trip.Render, fmt.Sprintf("%s: %v", message, err), trip.Context{
		"path": path,
	})
}
