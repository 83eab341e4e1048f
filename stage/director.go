package stage

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/teranos/ellipse/trip"
)

// syncModelUpdates applies scene updates in sequence order, skipping stale
// ones.
func (d *Director) syncModelUpdates(ctx context.Context) {
	for {
		select {
		case update := <-d.modelChan:
			currentSeq := atomic.LoadInt64(&d.lastProcessedSeq)

			if update.sequence <= currentSeq {
				atomic.AddInt64(&d.duplicateUpdates, 1)
				continue
			}
			if update.sequence > currentSeq+1 {
				atomic.AddInt64(&d.sequenceGaps, 1)
			}

			d.modelMu.Lock()
			d.latestModel = update.model
			atomic.StoreInt64(&d.lastProcessedSeq, update.sequence)
			d.modelMu.Unlock()

		case <-ctx.Done():
			return
		}
	}
}

// WithTimeout sets the session timeout. It must be called before Start.
func (d *Director) WithTimeout(timeout time.Duration) *Director {
	if d.started {
		d.t.Logf("cannot change timeout after the director has started, ignoring WithTimeout(%v)", timeout)
		return d
	}

	if d.cancel != nil {
		d.cancel()
	}
	d.ctx, d.cancel = context.WithTimeout(context.Background(), timeout)
	d.config.Timeout = timeout
	go d.syncModelUpdates(d.ctx)
	return d
}

// WithViewCapture enables or disables snapshots after every interaction.
func (d *Director) WithViewCapture(enabled bool) *Director {
	if d.started {
		d.t.Logf("cannot change view capture after the director has started, ignoring WithViewCapture(%v)", enabled)
		return d
	}
	d.config.CaptureViews = enabled
	return d
}

// Start runs the scene in a headless program.
func (d *Director) Start() *Director {
	if d.started {
		d.t.Logf("director already started")
		return d
	}

	d.t.Logf("[TRACE] Start: creating headless bubbletea program for %T", d.scene)

	d.program = tea.NewProgram(sceneWrapper{Scene: d.scene, director: d},
		tea.WithoutRenderer(),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutSignalHandler(),
	)

	go func() {
		defer close(d.done)
		defer func() {
			if r := recover(); r != nil {
				d.t.Logf("program goroutine panicked: %v", r)
			}
		}()

		if _, err := d.program.Run(); err != nil {
			d.t.Logf("[TRACE] Start: program.Run() returned error=%v", err)
		}
	}()

	if err := d.waitForProgramReady(); err != nil {
		d.recordTrip(trip.NewFall(trip.System, err.Error(), trip.Context{
			"scene": fmt.Sprintf("%T", d.scene),
		}))
		return d
	}

	d.started = true
	d.startedAt = time.Now()
	d.captureSnapshot()

	d.t.Logf("[TRACE] Start: ready")
	return d
}

// Stop ends the session and returns its results.
func (d *Director) Stop() *Result {
	if d.started {
		d.captureSnapshot()
	}

	if d.program != nil {
		d.program.Quit()
		select {
		case <-d.done:
		case <-time.After(time.Second):
			d.program.Kill()
		}
	}
	if d.cancel != nil {
		d.cancel()
	}

	if closer, ok := d.currentScene().(Closeable); ok {
		if err := closer.Close(); err != nil {
			d.recordTrip(trip.NewStumble(trip.System, "close scene: "+err.Error(), nil))
		}
	}

	var duration time.Duration
	if !d.startedAt.IsZero() {
		duration = time.Since(d.startedAt)
	}

	d.recordMu.Lock()
	defer d.recordMu.Unlock()

	result := &Result{
		Actions:   d.actions,
		Snapshots: d.snapshots,
		Success:   !d.failed && d.lastTrip == nil,
		Duration:  duration,
	}

	if d.lastTrip != nil {
		result.Error = d.lastTrip
		result.ErrorMessage = fmt.Sprintf("[%s] %s", d.lastTrip.Type, d.lastTrip.Message)
		result.ErrorDetails = d.errorDetails()
		result.TripReport = d.tripHandler.DetailedReport()
	}

	return result
}

// errorDetails describes the last trip and any synchronization problems.
func (d *Director) errorDetails() string {
	var details strings.Builder

	fmt.Fprintf(&details, "Trip Type: %s\n", d.lastTrip.Type)
	fmt.Fprintf(&details, "Error: %s\n", d.lastTrip.Message)
	fmt.Fprintf(&details, "Timestamp: %s\n", d.lastTrip.Timestamp.Format(time.RFC3339))

	if len(d.lastTrip.Context) > 0 {
		details.WriteString("Context:\n")
		keys := make([]string, 0, len(d.lastTrip.Context))
		for key := range d.lastTrip.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(&details, "  %s: %v\n", key, d.lastTrip.Context[key])
		}
	}

	if d.HasDroppedUpdates() {
		details.WriteString("\nSynchronization Issues:\n")
		stats := d.SynchronizationStats()
		for _, key := range []string{"updates_dropped", "sequence_gaps"} {
			if stats[key] > 0 {
				fmt.Fprintf(&details, "  %s: %d\n", key, stats[key])
			}
		}
	}

	return details.String()
}

// WaitForMode waits until the scene reports mode.
func (d *Director) WaitForMode(mode string) *Director {
	return d.waitFor("mode "+mode, func() bool {
		return d.currentMode() == mode
	}, trip.Context{"expected_mode": mode})
}

// WaitForText waits until text appears in the view.
func (d *Director) WaitForText(text string) *Director {
	return d.waitFor("text "+text, func() bool {
		return strings.Contains(d.currentView(), text)
	}, trip.Context{"expected_text": text})
}

// WaitForCondition waits until the scene reports condition as true.
func (d *Director) WaitForCondition(condition string) *Director {
	return d.waitFor("condition "+condition, func() bool {
		return d.currentScene().CheckCondition(condition)
	}, trip.Context{"condition": condition})
}

func (d *Director) waitFor(what string, ready func() bool, details trip.Context) *Director {
	if d.HasFailed() {
		return d
	}

	timeout := time.NewTimer(d.config.Timeout)
	defer timeout.Stop()

	for {
		if ready() {
			d.recordAction("wait", what)
			return d
		}

		select {
		case <-timeout.C:
		case <-d.ctx.Done():
		case <-time.After(10 * time.Millisecond):
			continue
		}

		details["current_mode"] = d.currentMode()
		details["current_view"] = truncate(d.currentView(), 200)
		d.recordTrip(trip.NewTrip(trip.Interaction, "timeout waiting for "+what, details))
		return d
	}
}

// waitForProgramReady waits until the program processed its first message.
func (d *Director) waitForProgramReady() error {
	timeout := time.NewTimer(d.config.Timeout)
	defer timeout.Stop()

	// A window size message is the first thing a real terminal delivers.
	go d.program.Send(tea.WindowSizeMsg{Width: 80, Height: 24})

	for {
		if atomic.LoadInt64(&d.lastProcessedSeq) > 0 && d.currentView() != "" {
			return nil
		}
		select {
		case <-timeout.C:
			return fmt.Errorf("timeout waiting for program to be ready")
		case <-d.ctx.Done():
			return fmt.Errorf("context cancelled while waiting for program")
		case <-d.done:
			return fmt.Errorf("program exited before becoming ready")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// waitForUpdate waits until an update after sequence has been applied.
func (d *Director) waitForUpdate(sequence int64) {
	timeout := min(d.config.Timeout, time.Second)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for atomic.LoadInt64(&d.lastProcessedSeq) <= sequence {
		select {
		case <-timer.C:
			d.t.Logf("[TRACE] waitForUpdate: no update after %v", timeout)
			return
		case <-d.ctx.Done():
			return
		case <-d.done:
			return
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func (d *Director) currentScene() Scene {
	d.modelMu.RLock()
	defer d.modelMu.RUnlock()
	return d.latestModel
}

func (d *Director) currentView() string {
	return d.currentScene().View()
}

func (d *Director) currentMode() string {
	return d.currentScene().CurrentMode()
}

func (d *Director) currentInput() string {
	return d.currentScene().CurrentInput()
}

// Scene returns the latest state of the scene.
func (d *Director) Scene() Scene {
	return d.currentScene()
}

// View returns the current view of the scene.
func (d *Director) View() string {
	return d.currentView()
}

// LatestSnapshot returns the most recent snapshot.
func (d *Director) LatestSnapshot() Snapshot {
	d.recordMu.Lock()
	defer d.recordMu.Unlock()
	if len(d.snapshots) == 0 {
		return Snapshot{}
	}
	return d.snapshots[len(d.snapshots)-1]
}

// ActionCount returns the number of recorded actions.
func (d *Director) ActionCount() int {
	d.recordMu.Lock()
	defer d.recordMu.Unlock()
	return len(d.actions)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
