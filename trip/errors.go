// Package trip provides the structured error type shared by the ellipse
// packages.
//
// A Trip is something that went wrong while the ellipse was being adjusted or
// drawn. Small things (a slider value snapped to keep a >= b, a snapshot that
// could not be written) are stumbles the session recovers from. Bad input that
// bypassed the sliders is a fall: the caller is told, and the ellipse keeps its
// previous shape.
package trip

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Trip types used across the module.
const (
	Precondition = "precondition" // input outside the domain of the geometry
	Clamp        = "clamp"        // value snapped to keep the ellipse valid
	Render       = "render"       // raster or terminal rendering failed
	Config       = "config"       // configuration could not be loaded or is invalid
	Interaction  = "interaction"  // headless session input or timing issue
	Assertion    = "assertion"    // headless session expectation failed
	System       = "system"       // program startup, panics, invalid model state
)

// Trip represents an error with rich context.
//
// Example usage:
//
//	err := NewFall(Precondition, "semi-major axis must be positive",
//	    Context{"a": -1.0})
//
//	if err.CanRecover() {
//	    // keep going with the current ellipse
//	}
type Trip struct {
	Type      string    // Error category for systematic handling
	Message   string    // Human-readable description
	Context   Context   // Additional debugging information
	Timestamp time.Time // When the error occurred
	Severity  Severity  // How serious this error is
}

// Context provides structured debugging information for trips.
type Context map[string]interface{}

// Severity indicates how serious a trip is and how it should be handled.
type Severity int

const (
	// Stumble indicates a minor issue the session recovers from.
	// Examples: slider value snapped, snapshot could not be written
	Stumble Severity = iota

	// Error indicates a significant issue that may affect results.
	// Examples: assertion failures, unexpected state transitions
	Error

	// Fall indicates input or state the operation refused to work with.
	// Examples: non-positive axis length, model panics
	Fall
)

func (s Severity) String() string {
	switch s {
	case Stumble:
		return "stumble"
	case Error:
		return "error"
	case Fall:
		return "fall"
	default:
		return "unknown"
	}
}

// NewTrip creates a new trip with the current timestamp.
func NewTrip(errorType, message string, context Context) *Trip {
	return &Trip{
		Type:      errorType,
		Message:   message,
		Context:   context,
		Timestamp: time.Now(),
		Severity:  Error,
	}
}

// NewStumble creates a new trip with Stumble severity.
func NewStumble(errorType, message string, context Context) *Trip {
	return NewTrip(errorType, message, context).WithSeverity(Stumble)
}

// NewFall creates a new trip with Fall severity.
func NewFall(errorType, message string, context Context) *Trip {
	return NewTrip(errorType, message, context).WithSeverity(Fall)
}

// WithSeverity sets the severity level for this error.
func (t *Trip) WithSeverity(severity Severity) *Trip {
	t.Severity = severity
	return t
}

// Error implements the error interface.
func (t *Trip) Error() string {
	return fmt.Sprintf("[%s:%s] %s", t.Type, t.Severity, t.Message)
}

// CanRecover returns true if work can continue despite this error.
func (t *Trip) CanRecover() bool {
	return t.Severity == Stumble
}

// IsFall returns true if this error should immediately stop the operation.
func (t *Trip) IsFall() bool {
	return t.Severity == Fall
}

// GetContext returns a specific context value if it exists.
func (t *Trip) GetContext(key string) (interface{}, bool) {
	if t.Context == nil {
		return nil, false
	}
	val, exists := t.Context[key]
	return val, exists
}

// DetailedString returns a comprehensive error description with context.
// Context keys are sorted so the output is stable.
func (t *Trip) DetailedString() string {
	var details strings.Builder

	details.WriteString(fmt.Sprintf("[%s:%s] %s", t.Type, t.Severity, t.Message))
	details.WriteString(fmt.Sprintf("\n  Time: %s", t.Timestamp.Format("15:04:05.000")))

	if len(t.Context) > 0 {
		keys := make([]string, 0, len(t.Context))
		for key := range t.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		details.WriteString("\n  Context:")
		for _, key := range keys {
			details.WriteString(fmt.Sprintf("\n    %s: %v", key, t.Context[key]))
		}
	}

	return details.String()
}

// Is reports whether err is, or wraps, a trip of the given type.
func Is(err error, errorType string) bool {
	var t *Trip
	if errors.As(err, &t) {
		return t.Type == errorType
	}
	return false
}

// Handler collects trips for one component.
//
// The console keeps one to show the latest stumble on its status line, the
// headless director keeps one to decide whether a session failed.
type Handler struct {
	component string  // Component name (e.g., "console", "stage_director")
	trips     []*Trip // Collected errors in chronological order
	stumbles  []*Trip // Collected minor issues in chronological order
	policy    *Policy // How to handle different error types
}

// Policy defines how different types and severities of errors should be handled.
type Policy struct {
	// StopOnFall determines if work should stop on fall errors
	StopOnFall bool

	// MaxStumbles sets a limit on accumulated stumbles before giving up
	MaxStumbles int

	// RecoverableTypes lists error types that are considered recoverable
	RecoverableTypes []string
}

// DefaultPolicy returns the policy used by the console and the director.
func DefaultPolicy() *Policy {
	return &Policy{
		StopOnFall:       true,
		MaxStumbles:      10,
		RecoverableTypes: []string{Clamp, Render, Interaction},
	}
}

// NewHandler creates a new error handler for a specific component.
func NewHandler(component string, policy *Policy) *Handler {
	if policy == nil {
		policy = DefaultPolicy()
	}

	return &Handler{
		component: component,
		trips:     make([]*Trip, 0),
		stumbles:  make([]*Trip, 0),
		policy:    policy,
	}
}

// Record adds an error to the handler's collection.
func (h *Handler) Record(trip *Trip) {
	if trip.Severity == Stumble {
		h.stumbles = append(h.stumbles, trip)
	} else {
		h.trips = append(h.trips, trip)
	}
}

// ShouldContinue determines if work should continue based on current errors.
func (h *Handler) ShouldContinue() bool {
	if h.policy.StopOnFall {
		for _, trip := range h.trips {
			if trip.IsFall() {
				return false
			}
		}
	}

	if h.policy.MaxStumbles > 0 && len(h.stumbles) > h.policy.MaxStumbles {
		return false
	}

	return true
}

// HasTrips returns true if any errors (non-stumbles) have been recorded.
func (h *Handler) HasTrips() bool {
	return len(h.trips) > 0
}

// HasStumbles returns true if any stumbles have been recorded.
func (h *Handler) HasStumbles() bool {
	return len(h.stumbles) > 0
}

// GetTrips returns all recorded errors.
func (h *Handler) GetTrips() []*Trip {
	return h.trips
}

// GetStumbles returns all recorded stumbles.
func (h *Handler) GetStumbles() []*Trip {
	return h.stumbles
}

// Latest returns the most recently recorded trip of any severity.
func (h *Handler) Latest() *Trip {
	var latest *Trip
	for _, list := range [][]*Trip{h.trips, h.stumbles} {
		if n := len(list); n > 0 {
			if latest == nil || !list[n-1].Timestamp.Before(latest.Timestamp) {
				latest = list[n-1]
			}
		}
	}
	return latest
}

// CanRecover returns true if the given error type is considered recoverable.
func (h *Handler) CanRecover(errorType string) bool {
	for _, recoverableType := range h.policy.RecoverableTypes {
		if recoverableType == errorType {
			return true
		}
	}
	return false
}

// Summary provides a concise overview of all errors and stumbles.
func (h *Handler) Summary() string {
	if len(h.trips) == 0 && len(h.stumbles) == 0 {
		return fmt.Sprintf("[%s] No issues", h.component)
	}

	return fmt.Sprintf("[%s] %d trips, %d stumbles",
		h.component, len(h.trips), len(h.stumbles))
}

// DetailedReport provides a comprehensive report of all issues.
func (h *Handler) DetailedReport() string {
	var report strings.Builder

	report.WriteString(fmt.Sprintf("=== %s Component Report ===\n", h.component))
	report.WriteString(h.Summary() + "\n")

	if len(h.trips) > 0 {
		report.WriteString("\nTrips:\n")
		for i, trip := range h.trips {
			report.WriteString(fmt.Sprintf("%d. %s\n", i+1, trip.DetailedString()))
		}
	}

	if len(h.stumbles) > 0 {
		report.WriteString("\nStumbles:\n")
		for i, stumble := range h.stumbles {
			report.WriteString(fmt.Sprintf("%d. %s\n", i+1, stumble.DetailedString()))
		}
	}

	return report.String()
}
