package stage

import (
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/teranos/ellipse/trip"
)

// namedKeys maps key names to the messages a terminal would deliver.
var namedKeys = map[string]tea.KeyMsg{
	"enter":       {Type: tea.KeyEnter},
	"esc":         {Type: tea.KeyEsc},
	"tab":         {Type: tea.KeyTab},
	"backspace":   {Type: tea.KeyBackspace},
	"up":          {Type: tea.KeyUp},
	"down":        {Type: tea.KeyDown},
	"left":        {Type: tea.KeyLeft},
	"right":       {Type: tea.KeyRight},
	"shift+left":  {Type: tea.KeyShiftLeft},
	"shift+right": {Type: tea.KeyShiftRight},
	"ctrl+c":      {Type: tea.KeyCtrlC},
	"space":       {Type: tea.KeySpace, Runes: []rune{' '}},
}

// KeyMsg returns the message for a key name such as "left", "shift+right" or
// "q". Anything that is not a named key is sent as runes.
func KeyMsg(key string) tea.KeyMsg {
	if msg, ok := namedKeys[key]; ok {
		return msg
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

// Press sends one key by name.
//
// Example:
//
//	director.Press("down").Press("L").Press("s")
func (d *Director) Press(key string) *Director {
	d.inputMu.Lock()
	defer d.inputMu.Unlock()

	d.sendMessage(KeyMsg(key))
	d.recordAction("keypress", key)
	return d
}

// PressRight sends the right arrow key.
func (d *Director) PressRight() *Director { return d.Press("right") }

// PressLeft sends the left arrow key.
func (d *Director) PressLeft() *Director { return d.Press("left") }

// PressUp sends the up arrow key.
func (d *Director) PressUp() *Director { return d.Press("up") }

// PressDown sends the down arrow key.
func (d *Director) PressDown() *Director { return d.Press("down") }

// PressEnter sends the Enter key.
func (d *Director) PressEnter() *Director { return d.Press("enter") }

// PressEscape sends the Escape key.
func (d *Director) PressEscape() *Director { return d.Press("esc") }

// PressBackspace sends the Backspace key.
func (d *Director) PressBackspace() *Director { return d.Press("backspace") }

// Type sends text one character at a time, TypingSpeed apart.
func (d *Director) Type(text string) *Director {
	d.inputMu.Lock()
	defer d.inputMu.Unlock()

	for _, char := range text {
		d.sendMessage(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{char}})
		d.recordAction("type", string(char))
		if d.config.TypingSpeed > 0 {
			time.Sleep(d.config.TypingSpeed)
		}
	}
	return d
}

// Send delivers an arbitrary message, e.g. a tea.WindowSizeMsg.
func (d *Director) Send(msg tea.Msg) *Director {
	d.inputMu.Lock()
	defer d.inputMu.Unlock()

	d.sendMessage(msg)
	d.recordAction("message", msg)
	return d
}

// Wait pauses for duration.
//
// Prefer WaitForMode, WaitForText or WaitForCondition when waiting on the
// scene itself.
func (d *Director) Wait(duration time.Duration) *Director {
	time.Sleep(duration)
	d.recordAction("wait", duration)
	d.captureSnapshot()
	return d
}

// AssertViewContains checks that the view contains text.
func (d *Director) AssertViewContains(text string) *Director {
	view := d.currentView()
	if !strings.Contains(view, text) {
		d.recordTrip(trip.NewTrip(trip.Assertion, "view does not contain expected text: "+text, trip.Context{
			"expected":    text,
			"actual_view": view,
		}))
		return d
	}
	d.recordAction("assertion", "contains="+text)
	return d
}

// AssertMode checks the scene mode.
func (d *Director) AssertMode(expected string) *Director {
	actual := d.currentMode()
	if actual != expected {
		d.recordTrip(trip.NewTrip(trip.Assertion, "expected mode "+expected+", got "+actual, trip.Context{
			"expected": expected,
			"actual":   actual,
		}))
		return d
	}
	d.recordAction("assertion", "mode="+expected)
	return d
}

// AssertInputEquals checks the text being typed.
func (d *Director) AssertInputEquals(expected string) *Director {
	actual := d.currentInput()
	if actual != expected {
		d.recordTrip(trip.NewTrip(trip.Assertion, "expected input '"+expected+"', got '"+actual+"'", trip.Context{
			"expected": expected,
			"actual":   actual,
		}))
		return d
	}
	d.recordAction("assertion", "input="+expected)
	return d
}

// AssertCondition checks that the scene reports condition as true.
func (d *Director) AssertCondition(condition string) *Director {
	if !d.currentScene().CheckCondition(condition) {
		d.recordTrip(trip.NewTrip(trip.Assertion, "condition not met: "+condition, trip.Context{
			"condition": condition,
			"mode":      d.currentMode(),
		}))
		return d
	}
	d.recordAction("assertion", "condition="+condition)
	return d
}

// sendMessage delivers msg and waits for the scene to process it.
func (d *Director) sendMessage(msg tea.Msg) {
	if d.program == nil {
		return
	}
	select {
	case <-d.done:
		d.t.Logf("[TRACE] sendMessage: program has exited, dropping %T", msg)
		return
	default:
	}

	sequence := atomic.LoadInt64(&d.updateSeq)
	d.program.Send(msg)
	d.waitForUpdate(sequence)
	d.captureSnapshot()
}

func (d *Director) recordAction(actionType string, details interface{}) {
	d.recordMu.Lock()
	defer d.recordMu.Unlock()
	d.actions = append(d.actions, Action{
		Timestamp: time.Now(),
		Type:      actionType,
		Details:   details,
	})
}

func (d *Director) captureSnapshot() {
	if !d.config.CaptureViews {
		return
	}

	scene := d.currentScene()
	snapshot := Snapshot{
		Timestamp: time.Now(),
		View:      scene.View(),
		Mode:      scene.CurrentMode(),
		Input:     scene.CurrentInput(),
	}

	d.recordMu.Lock()
	defer d.recordMu.Unlock()
	d.snapshots = append(d.snapshots, snapshot)
}

// recordTrip keeps t and marks the session failed unless t is recoverable.
// Falls are reported to the test.
func (d *Director) recordTrip(t *trip.Trip) {
	d.recordMu.Lock()
	d.tripHandler.Record(t)
	d.lastTrip = t
	if !t.CanRecover() {
		d.failed = true
	}
	d.recordMu.Unlock()

	d.t.Helper()
	if t.IsFall() {
		d.t.Error(t)
	} else {
		d.t.Log(t.DetailedString())
	}
}

// HasFailed reports whether the session hit an unrecoverable trip.
func (d *Director) HasFailed() bool {
	d.recordMu.Lock()
	defer d.recordMu.Unlock()
	return d.failed || !d.tripHandler.ShouldContinue()
}

// Err returns the last trip, or nil.
func (d *Director) Err() error {
	d.recordMu.Lock()
	defer d.recordMu.Unlock()
	if d.lastTrip != nil {
		return d.lastTrip
	}
	return nil
}

// TripHandler returns the handler holding every recorded trip.
func (d *Director) TripHandler() *trip.Handler {
	return d.tripHandler
}
