// Package stage drives a bubbletea scene headlessly so its behavior can be
// tested key by key.
//
// The director runs the scene in a tea.Program without renderer or input,
// feeds it key presses, and keeps a copy of the latest model so the view, the
// mode and custom conditions can be inspected between steps.
//
// Basic usage:
//
//	result := stage.NewDirector(t, console.New(cfg)).
//		WithTimeout(5 * time.Second).
//		Start().
//		PressRight().
//		WaitForText("a=20.001").
//		AssertCondition("focus_a").
//		Stop()
//
//	assert.True(t, result.Success)
//
// For PNG snapshots of the plot along the way:
//
//	stage.NewOperator(t, scene, t.TempDir()).
//		Start().
//		CaptureTrackingShot("initial").
//		PressWithTrackingShot("L", "wider").
//		Stop()
package stage

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/teranos/ellipse/plot"
	"github.com/teranos/ellipse/trip"
)

// Scene is a bubbletea model that can be inspected while it runs.
//
// Example implementation:
//
//	func (a App) CurrentInput() string { return a.editBuffer }
//	func (a App) CurrentMode() string  { return a.mode }
//	func (a App) CheckCondition(condition string) bool {
//		switch condition {
//		case "clamped": return a.clamped
//		default: return false
//		}
//	}
type Scene interface {
	tea.Model
	// CurrentInput returns text the user is typing, if any
	CurrentInput() string
	// CurrentMode returns the current interaction mode as a string
	CurrentMode() string
	// CheckCondition allows custom wait conditions and assertions
	CheckCondition(condition string) bool
	// Frame returns what the scene currently plots
	Frame() plot.Frame
}

// Closeable is implemented by scenes that hold resources. Close is called
// when the director stops.
type Closeable interface {
	Close() error
}

// modelUpdate is a scene state with its position in the update sequence.
type modelUpdate struct {
	model     Scene
	sequence  int64
	timestamp time.Time
}

// Action records one step taken by the director.
type Action struct {
	Timestamp time.Time
	Type      string      // "keypress", "type", "wait", "assertion", "tracking_shot"
	Details   interface{} // Specific action details
}

// Snapshot captures the state of the scene at a specific moment.
type Snapshot struct {
	Timestamp time.Time
	View      string
	Mode      string
	Input     string
}

// Result contains everything that happened during a session.
//
// Example usage:
//
//	result := director.Stop()
//	if !result.Success {
//		t.Logf("session failed after %v: %s", result.Duration, result.ErrorMessage)
//		for _, snapshot := range result.Snapshots {
//			t.Logf("view at %v:\n%s", snapshot.Timestamp, snapshot.View)
//		}
//	}
type Result struct {
	Actions      []Action
	Snapshots    []Snapshot
	Success      bool          // Whether the session completed without errors
	Duration     time.Duration // Time from Start to Stop
	ErrorMessage string        // Human-readable error description
	Error        error         // Last trip, for programmatic handling
	ErrorDetails string        // Context of the last trip
	TripReport   string        // Report of every trip recorded
}

// Config configures a Director.
type Config struct {
	// Timeout bounds the whole session and every wait
	Timeout time.Duration
	// TypingSpeed is the delay between typed characters (0 = no delay)
	TypingSpeed time.Duration
	// CaptureViews enables a snapshot after every interaction
	CaptureViews bool
}

// DefaultConfig returns a 30 second timeout, no typing delay and view capture
// enabled.
func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		TypingSpeed:  0,
		CaptureViews: true,
	}
}

// Director runs a Scene headlessly and drives it through a fluent API.
//
// Errors are collected as trips and returned in the final Result; falls are
// also reported to the test.
type Director struct {
	t       testing.TB
	scene   Scene
	program *tea.Program
	ctx     context.Context
	cancel  context.CancelFunc

	// Actions, snapshots and trips are also recorded from the program
	// goroutine when the scene panics.
	recordMu    sync.Mutex
	actions     []Action
	snapshots   []Snapshot
	tripHandler *trip.Handler
	lastTrip    *trip.Trip
	failed      bool

	// serializes multi-key input
	inputMu sync.Mutex

	// Model synchronization with atomic sequence tracking
	modelChan        chan modelUpdate
	latestModel      Scene
	modelMu          sync.RWMutex
	updateSeq        int64 // atomic counter for update ordering
	lastProcessedSeq int64 // atomic counter for processed updates
	updatesSent      int64 // atomic counter for delivered updates
	droppedUpdates   int64 // atomic counter for updates lost to a full buffer
	sequenceGaps     int64 // atomic counter for skipped sequence numbers
	duplicateUpdates int64 // atomic counter for stale updates

	config    Config
	started   bool
	startedAt time.Time
	done      chan struct{}
}

// sceneWrapper forwards every update of the scene to the director.
type sceneWrapper struct {
	Scene
	director *Director
}

// NewDirector creates a Director with the default configuration.
func NewDirector(t testing.TB, scene Scene) *Director {
	return NewDirectorWithConfig(t, scene, DefaultConfig())
}

// NewDirectorWithConfig creates a Director with a custom configuration.
//
// Example:
//
//	director := NewDirectorWithConfig(t, scene, Config{
//		Timeout:     5 * time.Second,
//		TypingSpeed: 0,
//	})
func NewDirectorWithConfig(t testing.TB, scene Scene, config Config) *Director {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)

	director := &Director{
		t:           t,
		scene:       scene,
		ctx:         ctx,
		cancel:      cancel,
		actions:     make([]Action, 0),
		snapshots:   make([]Snapshot, 0),
		tripHandler: trip.NewHandler("stage_director", trip.DefaultPolicy()),
		modelChan:   make(chan modelUpdate, 50),
		latestModel: scene,
		config:      config,
		done:        make(chan struct{}),
	}

	go director.syncModelUpdates(ctx)

	return director
}
