package stage

import (
	"fmt"
	"testing"
	"time"

	"github.com/teranos/ellipse/plot"
	"github.com/teranos/ellipse/trip"
)

// Operator is a Director that can also film the scene: every tracking shot
// renders the scene's current frame to a PNG.
type Operator struct {
	*Director
	stage      *plot.Stage
	frameCount int
	filmDir    string
	shots      []Shot
}

// Shot is one tracking shot written by an Operator.
type Shot struct {
	Label     string
	Path      string
	Step      int
	Timestamp time.Time
}

// NewOperator creates a director whose tracking shots land in outputDir.
func NewOperator(t testing.TB, scene Scene, outputDir string) *Operator {
	config := plot.DefaultConfig()
	config.OutputDir = outputDir

	return &Operator{
		Director: NewDirector(t, scene),
		stage:    plot.NewStage(config),
		filmDir:  outputDir,
	}
}

// WithConfig changes the look of the tracking shots.
func (op *Operator) WithConfig(config plot.Config) *Operator {
	if config.OutputDir == "" {
		config.OutputDir = op.filmDir
	}
	op.stage = plot.NewStage(config)
	op.filmDir = config.OutputDir
	return op
}

// WithTimeout wraps Director.WithTimeout.
func (op *Operator) WithTimeout(timeout time.Duration) *Operator {
	op.Director.WithTimeout(timeout)
	return op
}

// Start wraps Director.Start.
func (op *Operator) Start() *Operator {
	op.Director.Start()
	return op
}

// Press wraps Director.Press.
func (op *Operator) Press(key string) *Operator {
	op.Director.Press(key)
	return op
}

// WaitForText wraps Director.WaitForText.
func (op *Operator) WaitForText(text string) *Operator {
	op.Director.WaitForText(text)
	return op
}

// CaptureTrackingShot writes the current frame as
// frame_<timestamp>_<n>_<label>.png.
func (op *Operator) CaptureTrackingShot(label string) *Operator {
	frame := op.currentScene().Frame()

	now := time.Now()
	filename := fmt.Sprintf("frame_%s_%03d_%s.png", now.Format("20060102_150405"), op.frameCount, label)

	path, err := op.stage.CaptureFrame(frame, filename)
	if err != nil {
		if t, ok := err.(*trip.Trip); ok {
			op.recordTrip(t)
		} else {
			op.recordTrip(trip.NewStumble(trip.Render, err.Error(), nil))
		}
		return op
	}

	op.shots = append(op.shots, Shot{Label: label, Path: path, Step: op.frameCount, Timestamp: now})
	op.frameCount++
	op.recordAction("tracking_shot", path)
	return op
}

// PressWithTrackingShot presses key and films the result.
func (op *Operator) PressWithTrackingShot(key, label string) *Operator {
	op.Press(key)
	return op.CaptureTrackingShot(label)
}

// TypeWithTrackingShot types text and films the result.
func (op *Operator) TypeWithTrackingShot(text, label string) *Operator {
	op.Type(text)
	return op.CaptureTrackingShot(label)
}

// WaitForTextWithTrackingShot waits for text and films the result.
func (op *Operator) WaitForTextWithTrackingShot(text, label string) *Operator {
	op.WaitForText(text)
	return op.CaptureTrackingShot(label)
}

// Shots returns every tracking shot written so far.
func (op *Operator) Shots() []Shot {
	return op.shots
}
