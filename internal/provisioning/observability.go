package provisioning

import (
	"fmt"
	"log"
	"maps"
	"slices"
	"strings"
	"time"
)

// Logger is the minimal printf-style logger phases write free-form text to.
type Logger interface {
	Printf(format string, v ...any)
}

// Observer defines the interface for structured observability during provisioning.
type Observer interface {
	Logger

	// Event emits a structured event
	Event(event Event)

	// WithFields returns a new Observer with additional context fields
	WithFields(fields map[string]string) Observer
}

// Event represents a structured provisioning event.
type Event struct {
	Type      EventType         // Type of event
	Phase     string            // Phase name (e.g., "create", "wait")
	Message   string            // Human-readable message
	Resource  string            // Resource name/ID if applicable
	Timestamp time.Time         // When the event occurred
	Fields    map[string]string // Additional contextual fields
}

// EventType represents the type of provisioning event.
type EventType string

const (
	// EventPhaseStarted indicates a provisioning phase has started.
	EventPhaseStarted EventType = "phase.started"
	// EventPhaseCompleted indicates a provisioning phase completed successfully.
	EventPhaseCompleted EventType = "phase.completed"
	// EventPhaseFailed indicates a provisioning phase failed.
	EventPhaseFailed EventType = "phase.failed"

	// EventResourceCreated indicates a resource was created successfully.
	EventResourceCreated EventType = "resource.created"
	// EventResourceReady indicates a created resource became usable.
	EventResourceReady EventType = "resource.ready"

	// EventValidationError indicates a validation error.
	EventValidationError EventType = "validation.error"
)

// ConsoleObserver implements Observer on top of a standard library logger.
type ConsoleObserver struct {
	logger        *log.Logger
	contextFields map[string]string
}

// NewConsoleObserver creates a console-based observer. A nil logger means
// the standard logger.
func NewConsoleObserver(logger *log.Logger) *ConsoleObserver {
	if logger == nil {
		logger = log.Default()
	}
	return &ConsoleObserver{
		logger:        logger,
		contextFields: make(map[string]string),
	}
}

// Printf implements Logger.
func (o *ConsoleObserver) Printf(format string, v ...any) {
	o.logger.Printf(format, v...)
}

// Event implements Observer interface.
func (o *ConsoleObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Merge context fields
	if event.Fields == nil {
		event.Fields = make(map[string]string)
	}
	for k, v := range o.contextFields {
		if _, exists := event.Fields[k]; !exists {
			event.Fields[k] = v
		}
	}

	o.logger.Print(formatEvent(event))
}

// WithFields implements Observer interface.
func (o *ConsoleObserver) WithFields(fields map[string]string) Observer {
	newFields := maps.Clone(o.contextFields)
	maps.Copy(newFields, fields)

	return &ConsoleObserver{
		logger:        o.logger,
		contextFields: newFields,
	}
}

// formatEvent formats an event for console output. Fields are printed in
// key order.
func formatEvent(event Event) string {
	parts := []string{string(event.Type)}

	if event.Phase != "" {
		parts = append(parts, fmt.Sprintf("[%s]", event.Phase))
	}
	if event.Resource != "" {
		parts = append(parts, fmt.Sprintf("resource=%s", event.Resource))
	}

	parts = append(parts, event.Message)

	if len(event.Fields) > 0 {
		fieldParts := make([]string, 0, len(event.Fields))
		for _, k := range slices.Sorted(maps.Keys(event.Fields)) {
			fieldParts = append(fieldParts, fmt.Sprintf("%s=%s", k, event.Fields[k]))
		}
		parts = append(parts, fmt.Sprintf("(%s)", strings.Join(fieldParts, ", ")))
	}

	return strings.Join(parts, " ")
}

// NopObserver discards everything. Interactive frontends use it so console
// output does not interleave with their rendering.
type NopObserver struct{}

// Printf implements Logger.
func (NopObserver) Printf(string, ...any) {}

// Event implements Observer.
func (NopObserver) Event(Event) {}

// WithFields implements Observer.
func (n NopObserver) WithFields(map[string]string) Observer { return n }

// Helper functions for common events

// LogPhaseStart logs a phase start event.
func LogPhaseStart(observer Observer, phase string) {
	observer.Event(Event{
		Type:    EventPhaseStarted,
		Phase:   phase,
		Message: "starting",
	})
}

// LogPhaseComplete logs a phase completion event.
func LogPhaseComplete(observer Observer, phase string, duration time.Duration) {
	observer.Event(Event{
		Type:    EventPhaseCompleted,
		Phase:   phase,
		Message: fmt.Sprintf("completed in %v", duration.Round(time.Millisecond)),
	})
}

// LogPhaseFailed logs a phase failure event.
func LogPhaseFailed(observer Observer, phase string, err error) {
	observer.Event(Event{
		Type:    EventPhaseFailed,
		Phase:   phase,
		Message: fmt.Sprintf("failed: %v", err),
	})
}

// LogResourceCreated logs a successful resource creation event.
func LogResourceCreated(observer Observer, phase, resourceType, resourceName, resourceID string) {
	observer.Event(Event{
		Type:     EventResourceCreated,
		Phase:    phase,
		Resource: resourceName,
		Message:  fmt.Sprintf("%s created", resourceType),
		Fields: map[string]string{
			"type": resourceType,
			"id":   resourceID,
		},
	})
}

// LogResourceReady logs that a resource reached its usable state.
func LogResourceReady(observer Observer, phase, resourceType, resourceID, status string) {
	observer.Event(Event{
		Type:     EventResourceReady,
		Phase:    phase,
		Resource: resourceID,
		Message:  fmt.Sprintf("%s is %s", resourceType, status),
		Fields: map[string]string{
			"type": resourceType,
		},
	})
}

// LogValidationError logs a configuration that was rejected before any work.
func LogValidationError(observer Observer, err error) {
	observer.Event(Event{
		Type:    EventValidationError,
		Phase:   PhaseValidate,
		Message: err.Error(),
	})
}
