package events

import "time"

// EventType represents different types of events in the system
type EventType string

const (
	// Run lifecycle events
	EventTypeRunStarted  EventType = "run.started"
	EventTypeRunFinished EventType = "run.finished"

	// Attempt events
	EventTypeAttemptStarted  EventType = "attempt.started"
	EventTypeStateClassified EventType = "attempt.state_classified"
	EventTypeVerdict         EventType = "attempt.verdict"
	EventTypePaused          EventType = "attempt.paused"
	EventTypeResumed         EventType = "attempt.resumed"
	EventTypeTerminated      EventType = "attempt.terminated"

	// Macro events
	EventTypeMacroFailed EventType = "macro.verification_failed"

	// Ledger events
	EventTypeCatalogEntryAdded EventType = "catalog.entry_added"
	EventTypeResultLogged      EventType = "catalog.result_logged"

	// Error events
	EventTypeError EventType = "error"
)

// AllEventTypes lists every event type, used by subscribers that want everything
var AllEventTypes = []EventType{
	EventTypeRunStarted,
	EventTypeRunFinished,
	EventTypeAttemptStarted,
	EventTypeStateClassified,
	EventTypeVerdict,
	EventTypePaused,
	EventTypeResumed,
	EventTypeTerminated,
	EventTypeMacroFailed,
	EventTypeCatalogEntryAdded,
	EventTypeResultLogged,
	EventTypeError,
}

// Event represents a system event with metadata
type Event struct {
	Type      EventType              // Type of event
	Source    string                 // Component that emitted event (e.g., "driver", "ledger")
	Timestamp time.Time              // When the event occurred
	Data      map[string]interface{} // Event-specific data
}

// EventHandler is a function that processes an event
type EventHandler func(Event)

// SubscriptionID uniquely identifies a subscription
type SubscriptionID int64

// EventBus defines the interface for event pub/sub
type EventBus interface {
	// Subscribe registers a handler for a specific event type
	Subscribe(eventType EventType, handler EventHandler) SubscriptionID

	// Unsubscribe removes a subscription by ID
	Unsubscribe(id SubscriptionID)

	// Publish sends an event to all subscribers (blocking)
	Publish(event Event)

	// PublishAsync sends an event asynchronously (non-blocking)
	PublishAsync(event Event)

	// Stop stops the event bus and drains remaining events
	Stop()
}

// Helper functions to create common events

// NewRunStartedEvent creates a run.started event
func NewRunStartedEvent(runID, mode, profile string) Event {
	return Event{
		Type:      EventTypeRunStarted,
		Source:    mode,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"run_id":  runID,
			"mode":    mode,
			"profile": profile,
		},
	}
}

// NewRunFinishedEvent creates a run.finished event
func NewRunFinishedEvent(runID string, attempts int, err error) Event {
	data := map[string]interface{}{
		"run_id":   runID,
		"attempts": attempts,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	return Event{
		Type:      EventTypeRunFinished,
		Source:    "cmd",
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewAttemptStartedEvent creates an attempt.started event
func NewAttemptStartedEvent(source string, attempt int) Event {
	return Event{
		Type:      EventTypeAttemptStarted,
		Source:    source,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"attempt": attempt,
		},
	}
}

// NewStateClassifiedEvent creates an attempt.state_classified event
func NewStateClassifiedEvent(source string, attempt int, state string) Event {
	return Event{
		Type:      EventTypeStateClassified,
		Source:    source,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"attempt": attempt,
			"state":   state,
		},
	}
}

// NewVerdictEvent creates an attempt.verdict event
func NewVerdictEvent(source string, attempt int, state, verdict, reason string) Event {
	return Event{
		Type:      EventTypeVerdict,
		Source:    source,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"attempt": attempt,
			"state":   state,
			"verdict": verdict,
			"reason":  reason,
		},
	}
}

// NewPausedEvent creates an attempt.paused event
func NewPausedEvent(source string, attempt int, checked []string) Event {
	cp := append([]string(nil), checked...)
	return Event{
		Type:      EventTypePaused,
		Source:    source,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"attempt": attempt,
			"checked": cp,
		},
	}
}

// NewResumedEvent creates an attempt.resumed event
func NewResumedEvent(source string, attempt int, reason string) Event {
	return Event{
		Type:      EventTypeResumed,
		Source:    source,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"attempt": attempt,
			"reason":  reason,
		},
	}
}

// NewTerminatedEvent creates an attempt.terminated event
func NewTerminatedEvent(source string, attempt int, reason string) Event {
	return Event{
		Type:      EventTypeTerminated,
		Source:    source,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"attempt": attempt,
			"reason":  reason,
		},
	}
}

// NewMacroFailedEvent creates a macro.verification_failed event
func NewMacroFailedEvent(macro string, confidence float64) Event {
	return Event{
		Type:      EventTypeMacroFailed,
		Source:    "macro",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"macro":      macro,
			"confidence": confidence,
		},
	}
}

// NewCatalogEntryAddedEvent creates a catalog.entry_added event
func NewCatalogEntryAddedEvent(area string, index int, path string) Event {
	return Event{
		Type:      EventTypeCatalogEntryAdded,
		Source:    "ledger",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"area":  area,
			"index": index,
			"path":  path,
		},
	}
}

// NewResultLoggedEvent creates a catalog.result_logged event
func NewResultLoggedEvent(attempt int, row map[string]int) Event {
	cp := make(map[string]int, len(row))
	for k, v := range row {
		cp[k] = v
	}
	return Event{
		Type:      EventTypeResultLogged,
		Source:    "ledger",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"attempt": attempt,
			"row":     cp,
		},
	}
}

// NewErrorEvent creates an error event
func NewErrorEvent(source string, err error) Event {
	return Event{
		Type:      EventTypeError,
		Source:    source,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"error": err.Error(),
		},
	}
}
