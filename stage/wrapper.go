package stage

import (
	"fmt"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/teranos/ellipse/trip"
)

// Update runs the scene update and hands the new state to the director.
// A panicking scene keeps its previous state and fails the session.
func (w sceneWrapper) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	defer func() {
		if r := recover(); r != nil {
			if w.director != nil {
				w.director.handleModelPanic(r, msg)
			}
			model, cmd = w, nil
		}
	}()

	newModel, cmd := w.Scene.Update(msg)

	if newModel == nil {
		if w.director != nil {
			w.director.handleInvalidModelState("Update returned nil model", msg)
		}
		return w, cmd
	}

	scene, ok := newModel.(Scene)
	if !ok {
		if w.director != nil {
			w.director.handleInvalidModelState(fmt.Sprintf("Update returned %T, which is not a Scene", newModel), msg)
		}
		return w, cmd
	}

	if w.director != nil {
		w.director.publish(scene)
	}

	return sceneWrapper{Scene: scene, director: w.director}, cmd
}

// publish queues a scene state for the sync goroutine without blocking the
// program.
func (d *Director) publish(scene Scene) {
	update := modelUpdate{
		model:     scene,
		sequence:  atomic.AddInt64(&d.updateSeq, 1),
		timestamp: time.Now(),
	}

	select {
	case d.modelChan <- update:
		atomic.AddInt64(&d.updatesSent, 1)
	default:
		atomic.AddInt64(&d.droppedUpdates, 1)
	}
}

// SynchronizationStats returns counters of the update pipeline.
func (d *Director) SynchronizationStats() map[string]int64 {
	return map[string]int64{
		"updates_generated": atomic.LoadInt64(&d.updateSeq),
		"updates_sent":      atomic.LoadInt64(&d.updatesSent),
		"updates_processed": atomic.LoadInt64(&d.lastProcessedSeq),
		"updates_dropped":   atomic.LoadInt64(&d.droppedUpdates),
		"sequence_gaps":     atomic.LoadInt64(&d.sequenceGaps),
		"duplicate_updates": atomic.LoadInt64(&d.duplicateUpdates),
		"buffer_length":     int64(len(d.modelChan)),
		"buffer_capacity":   int64(cap(d.modelChan)),
	}
}

// HasDroppedUpdates reports whether any scene state was lost.
func (d *Director) HasDroppedUpdates() bool {
	return atomic.LoadInt64(&d.droppedUpdates) > 0 ||
		atomic.LoadInt64(&d.sequenceGaps) > 0
}

// handleModelPanic records a panic in the scene and stops the session.
func (d *Director) handleModelPanic(panicValue interface{}, msg tea.Msg) {
	d.t.Logf("scene panic: %v", panicValue)

	d.captureErrorSnapshot("model_panic", fmt.Sprintf("Panic: %v", panicValue))
	d.recordTrip(trip.NewFall(trip.System, fmt.Sprintf("scene panic during Update: %v", panicValue), trip.Context{
		"panic_value": panicValue,
		"tea_msg":     fmt.Sprintf("%T: %+v", msg, msg),
		"scene_type":  fmt.Sprintf("%T", d.scene),
	}))

	if d.cancel != nil {
		d.cancel()
	}
}

// handleInvalidModelState records a scene that returned something unusable.
func (d *Director) handleInvalidModelState(reason string, msg tea.Msg) {
	d.t.Logf("invalid scene state: %s", reason)

	d.captureErrorSnapshot("invalid_model_state", reason)
	d.recordTrip(trip.NewFall(trip.System, reason, trip.Context{
		"tea_msg":    fmt.Sprintf("%T: %+v", msg, msg),
		"scene_type": fmt.Sprintf("%T", d.scene),
	}))

	if d.cancel != nil {
		d.cancel()
	}
}

// captureErrorSnapshot stores the last good view next to the error.
func (d *Director) captureErrorSnapshot(errorType, errorMessage string) {
	var view string
	func() {
		defer func() {
			if r := recover(); r != nil {
				view = fmt.Sprintf("ERROR: could not get view: %v", r)
			}
		}()
		view = d.currentView()
	}()

	d.recordMu.Lock()
	defer d.recordMu.Unlock()
	d.snapshots = append(d.snapshots, Snapshot{
		Timestamp: time.Now(),
		View:      fmt.Sprintf("ERROR STATE (%s)\n%s\n\nLast View:\n%s", errorType, errorMessage, view),
		Mode:      "error_" + errorType,
	})
}
