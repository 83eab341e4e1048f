// Package console is the terminal front end of the ellipse explorer: five
// sliders on the left of the keyboard, a braille plot of the ellipse with its
// foci, and the eccentricity readout.
package console

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/teranos/ellipse"
	"github.com/teranos/ellipse/config"
	"github.com/teranos/ellipse/plot"
	"github.com/teranos/ellipse/trip"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("124"))
	dim         = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	cyan        = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white       = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	yellow      = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red         = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	curveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	focusStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	axisStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	editorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("86"))
)

// Title is shown above the plot and used as the terminal window title.
const Title = "Interactive Ellipse"

// TimeFormat stamps the title on each redraw.
const TimeFormat = "2006-01-02 15:04:05 MST"

// Slider positions.
const (
	SliderA = iota
	SliderB
	SliderRotation
	SliderX
	SliderY
	sliderCount
)

var sliderNames = [sliderCount]string{"a", "b", "rotation", "x", "y"}

// Instructions is the help text toggled with '?'.
var Instructions = []string{
	"Welcome to Interactive Ellipse.",
	"The ellipse is defined by 5 numbers. Adjust values with the sliders.",
	"Select a slider with up/down (or k/j); left/right (or h/l) make small",
	"changes, shift+left/right (or H/L) ten times larger ones.",
	"Press e or enter to type a value, esc to cancel.",
	"Note that a must always be greater than or equal to b.",
	"The eccentricity is shown each time the ellipse changes.",
	"",
	"r returns the ellipse to its starting shape.",
	"s saves a snapshot of the ellipse as PNG.",
	"q quits.",
}

const (
	reservedRows = 12 // title, caption, sliders, readout, status, help
	minPlotRows  = 6
	barWidth     = 24
	labelWidth   = 21
)

// App is the bubbletea model of the explorer.
//
// App is a value: bubbletea copies it on every update. Everything View and
// the inspection methods read is cached on the value itself; only Update
// touches the shared ellipse model, trip handler and raster stage.
type App struct {
	model   *ellipse.Model
	initial ellipse.Params
	sliders [sliderCount]Slider
	focus   int

	editing  bool
	editBuf  string
	showHelp bool
	quitting bool

	// cached render state
	frame   ellipse.RenderData
	clamped bool
	stamp   string
	plot    string

	status      string
	statusIsBad bool

	trips        *trip.Handler
	raster       *plot.Stage
	snapshots    int
	lastSnapshot string

	limit  float64
	width  int
	height int
	clock  func() time.Time
	logger *slog.Logger
}

// New creates the explorer for cfg. cfg is expected to be validated; an
// initial ellipse the model refuses falls back to the defaults and is
// reported on the status line.
func New(cfg config.Config) App {
	model := ellipse.NewModel().WithResolution(cfg.Resolution)

	raster := plot.DefaultConfig()
	raster.Width = cfg.Snapshot.Width
	raster.Height = cfg.Snapshot.Height
	raster.Limit = cfg.PlotLimit
	raster.OutputDir = cfg.Snapshot.Dir

	a := App{
		model:   model,
		initial: cfg.InitialParams(),
		trips:   trip.NewHandler("console", trip.DefaultPolicy()),
		raster:  plot.NewStage(raster),
		limit:   cfg.PlotLimit,
		width:   80,
		height:  24,
		clock:   time.Now,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	if _, err := model.WithParams(a.initial); err != nil {
		a.fail(err)
		a.initial = ellipse.DefaultParams()
	}

	p := model.Params()
	a.sliders = [sliderCount]Slider{
		NewSlider("a (semi-major axis):", cfg.Sliders.SemiMajor, p.A),
		NewSlider("b (semi-minor axis):", cfg.Sliders.SemiMinor, p.B),
		NewSlider("rotation (degrees):", cfg.Sliders.Rotation, p.Degrees()),
		NewSlider("x center:", cfg.Sliders.CenterX, p.X),
		NewSlider("y center:", cfg.Sliders.CenterY, p.Y),
	}

	a.frame = model.Render()
	a.redraw()
	return a
}

// WithClock replaces the clock used for title stamps and snapshot names.
func (a App) WithClock(clock func() time.Time) App {
	a.clock = clock
	a.redraw()
	return a
}

// WithLogger sets the logger for parameter changes, snaps and snapshots.
func (a App) WithLogger(logger *slog.Logger) App {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Init sets the terminal window title.
func (a App) Init() tea.Cmd {
	return tea.SetWindowTitle(Title)
}

// Update handles keys and terminal resizes.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.redraw()
		return a, nil
	case tea.KeyMsg:
		if a.editing {
			return a.handleEditKey(msg)
		}
		return a.handleKey(msg)
	}
	return a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		a.quitting = true
		return a, tea.Quit
	case "up", "k":
		a.focus = (a.focus + sliderCount - 1) % sliderCount
	case "down", "j":
		a.focus = (a.focus + 1) % sliderCount
	case "left", "h":
		a.nudge(-1)
	case "right", "l":
		a.nudge(1)
	case "shift+left", "H":
		a.nudge(-10)
	case "shift+right", "L":
		a.nudge(10)
	case "e", "enter":
		a.editing = true
		a.editBuf = ""
	case "s":
		a.snapshot()
	case "r":
		a.reset()
	case "?":
		a.showHelp = !a.showHelp
	}
	return a, nil
}

func (a App) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		a.quitting = true
		return a, tea.Quit
	case tea.KeyEsc:
		a.editing = false
		a.editBuf = ""
	case tea.KeyEnter:
		a.commitEdit()
	case tea.KeyBackspace:
		if len(a.editBuf) > 0 {
			a.editBuf = a.editBuf[:len(a.editBuf)-1]
		}
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			if (r >= '0' && r <= '9') || r == '.' || r == '-' {
				a.editBuf += string(r)
			}
		}
	}
	return a, nil
}

func (a *App) commitEdit() {
	text := a.editBuf
	a.editing = false
	a.editBuf = ""

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		a.fail(trip.NewStumble(trip.Interaction, fmt.Sprintf("%q is not a number", text), trip.Context{
			"slider": sliderNames[a.focus],
		}))
		return
	}
	a.apply(a.focus, a.sliders[a.focus].Set(v))
}

func (a *App) nudge(steps int) {
	a.apply(a.focus, a.sliders[a.focus].Nudge(steps))
}

// apply hands a slider value to the model and brings every slider back in
// line with what the model kept.
func (a *App) apply(slider int, v float64) {
	var (
		data ellipse.RenderData
		err  error
	)
	switch slider {
	case SliderA:
		data, err = a.model.SetSemiMajor(v)
	case SliderB:
		data, err = a.model.SetSemiMinor(v)
	case SliderRotation:
		data, err = a.model.SetRotationDegrees(v)
	case SliderX:
		data, err = a.model.SetCenterX(v)
	case SliderY:
		data, err = a.model.SetCenterY(v)
	}
	if err != nil {
		a.fail(err)
		a.syncSliders()
		return
	}

	a.frame = data
	a.clamped = a.model.Clamped()
	a.syncSliders()
	a.setStatus("", false)

	isAxis := slider == SliderA || slider == SliderB
	if isAxis && a.clamped && a.sliders[slider].Value != v {
		a.snapped(slider, v)
	}

	a.logger.Debug("parameter changed",
		"slider", sliderNames[slider],
		"value", v,
		"params", data.Params.Label(),
		"eccentricity", data.EccentricityText())

	a.redraw()
}

// snapped reports an axis value the model moved to keep a >= b.
func (a *App) snapped(slider int, requested float64) {
	rule := "a >= b"
	if slider == SliderB {
		rule = "b <= a"
	}
	held := a.sliders[slider].Readout()

	t := trip.NewStumble(trip.Clamp, fmt.Sprintf("%s snapped to %s to keep %s",
		sliderNames[slider], held, rule), trip.Context{
		"slider":    sliderNames[slider],
		"requested": requested,
		"held":      a.sliders[slider].Value,
	})
	a.trips.Record(t)
	a.setStatus(t.Message, false)
	a.logger.Warn("axis snapped", "slider", sliderNames[slider], "requested", requested, "held", a.sliders[slider].Value)
}

func (a *App) syncSliders() {
	p := a.model.Params()
	a.sliders[SliderA].Sync(p.A)
	a.sliders[SliderB].Sync(p.B)
	a.sliders[SliderRotation].Sync(p.Degrees())
	a.sliders[SliderX].Sync(p.X)
	a.sliders[SliderY].Sync(p.Y)
}

func (a *App) reset() {
	if a.initial == ellipse.DefaultParams() {
		a.frame = a.model.Reset()
	} else {
		if _, err := a.model.WithParams(a.initial); err != nil {
			a.fail(err)
			return
		}
		a.frame = a.model.Render()
	}
	a.clamped = false
	a.syncSliders()
	a.setStatus("reset to "+a.frame.Params.Label(), false)
	a.logger.Info("ellipse reset", "params", a.frame.Params.Label())
	a.redraw()
}

func (a *App) snapshot() {
	a.snapshots++
	name := fmt.Sprintf("ellipse_%s_%03d.png", a.clock().Format("20060102_150405"), a.snapshots)

	path, err := a.raster.CaptureFrame(a.Frame(), name)
	if err != nil {
		a.fail(err)
		return
	}

	a.lastSnapshot = path
	a.setStatus("saved "+path, false)
	a.logger.Info("snapshot saved", "path", path, "params", a.frame.Params.Label())
}

// fail records err and shows it on the status line. A trip is shown as an
// error unless its severity or the handler's policy makes it recoverable.
func (a *App) fail(err error) {
	t, ok := err.(*trip.Trip)
	if !ok {
		t = trip.NewTrip(trip.System, err.Error(), nil)
	}
	a.trips.Record(t)

	recoverable := t.CanRecover() || a.trips.CanRecover(t.Type)
	a.setStatus(t.Message, !recoverable)

	if a.logger == nil {
		return
	}
	attrs := []any{"type", t.Type, "severity", t.Severity.String(), "error", t.Message}
	if slider, ok := t.GetContext("slider"); ok {
		attrs = append(attrs, "slider", slider)
	}
	level := slog.LevelError
	if recoverable {
		level = slog.LevelWarn
	}
	a.logger.Log(context.Background(), level, "operation failed", attrs...)
}

func (a *App) setStatus(text string, bad bool) {
	a.status = text
	a.statusIsBad = bad
}

// redraw restamps the title and rebuilds the braille plot.
func (a *App) redraw() {
	a.stamp = a.clock().Format(TimeFormat)

	rows := max(a.height-reservedRows, minPlotRows)
	cols := max(min(a.width, rows*2), 2)

	canvas := plot.NewCanvas(cols, rows, a.limit)
	canvas.DrawAxes()
	canvas.Plot(a.frame)
	a.plot = canvas.Render(paint)
}

func paint(layer plot.Layer, s string) string {
	switch layer {
	case plot.LayerCurve:
		return curveStyle.Render(s)
	case plot.LayerFocus:
		return focusStyle.Render(s)
	case plot.LayerAxis:
		return axisStyle.Render(s)
	}
	return s
}

// View renders the explorer.
func (a App) View() string {
	if a.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(Title) + "  " + dim.Render(a.stamp) + "\n")

	if a.showHelp {
		for _, line := range Instructions {
			b.WriteString(white.Render(line) + "\n")
		}
	} else {
		b.WriteString(a.plot + "\n")
	}
	b.WriteString(dim.Render(a.frame.Params.Label()) + "\n\n")

	for i, s := range a.sliders {
		cursor := "  "
		label := dim.Render(fmt.Sprintf("%-*s", labelWidth, s.Label))
		if i == a.focus {
			cursor = cyan.Render("▸ ")
			label = white.Render(fmt.Sprintf("%-*s", labelWidth, s.Label))
		}

		readout := s.Readout()
		if a.editing && i == a.focus {
			readout = editorStyle.Render(a.editBuf + "_")
		}
		fmt.Fprintf(&b, "%s%s %s %s\n", cursor, label, cyan.Render(s.Bar(barWidth)), readout)
	}

	b.WriteString(dim.Render("eccentricity: ") + white.Render(a.frame.EccentricityText()) + "\n\n")

	switch {
	case a.status == "":
		b.WriteString("\n")
	case a.statusIsBad:
		b.WriteString(red.Render(a.status) + "\n")
	default:
		b.WriteString(yellow.Render(a.status) + "\n")
	}

	if a.editing {
		b.WriteString(dim.Render("type a value  enter apply  esc cancel"))
	} else {
		b.WriteString(dim.Render("↑/↓ select  ←/→ adjust  H/L ×10  e edit  s snapshot  r reset  ? help  q quit"))
	}

	return b.String()
}

// CurrentMode is "edit" while a value is typed, "help" while the
// instructions are shown and "adjust" otherwise.
func (a App) CurrentMode() string {
	switch {
	case a.editing:
		return "edit"
	case a.showHelp:
		return "help"
	default:
		return "adjust"
	}
}

// CurrentInput returns the value being typed.
func (a App) CurrentInput() string {
	return a.editBuf
}

// CheckCondition answers questions about the explorer state:
// clamped, circle, help_visible, snapshot_saved, quitting, has_status,
// stumbled and focus_<slider>.
func (a App) CheckCondition(condition string) bool {
	switch condition {
	case "clamped":
		return a.clamped
	case "circle":
		return a.frame.Params.A == a.frame.Params.B
	case "help_visible":
		return a.showHelp
	case "snapshot_saved":
		return a.lastSnapshot != ""
	case "quitting":
		return a.quitting
	case "has_status":
		return a.status != ""
	case "stumbled":
		return a.trips.HasStumbles()
	}
	if name, ok := strings.CutPrefix(condition, "focus_"); ok {
		return sliderNames[a.focus] == name
	}
	return false
}

// Frame returns the current plot with its timestamp title.
func (a App) Frame() plot.Frame {
	return plot.NewFrame(a.frame, a.stamp)
}

// Params returns the parameters currently shown.
func (a App) Params() ellipse.Params {
	return a.frame.Params
}

// Slider returns the slider at position i.
func (a App) Slider(i int) Slider {
	return a.sliders[i]
}

// Status returns the status line text.
func (a App) Status() string {
	return a.status
}

// LastSnapshot returns the path of the most recent snapshot.
func (a App) LastSnapshot() string {
	return a.lastSnapshot
}

// Trips returns every clamp and failure recorded during the session.
func (a App) Trips() *trip.Handler {
	return a.trips
}
