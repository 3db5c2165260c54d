package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap/zapcore"

	"jordanella.com/seed-finder-go/internal/events"
)

// EventLogger subscribes to event bus and logs all events
type EventLogger struct {
	logger          *Logger
	eventBus        events.EventBus
	subscriptionIDs []events.SubscriptionID
	logFile         *os.File
}

// NewEventLogger creates a new event logger writing to a timestamped file in logDir
func NewEventLogger(eventBus events.EventBus, logDir string) (*EventLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(logDir, fmt.Sprintf("events_%s.log", timestamp))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	el := &EventLogger{
		logger:   NewLoggerWithZap("EventLogger", newZap(zapcore.DebugLevel, logFile)),
		eventBus: eventBus,
		logFile:  logFile,
	}
	el.subscribeToEvents()

	return el, nil
}

// NewEventLoggerWithLogger attaches an event logger that writes through an existing Logger
func NewEventLoggerWithLogger(eventBus events.EventBus, logger *Logger) *EventLogger {
	el := &EventLogger{
		logger:   logger,
		eventBus: eventBus,
	}
	el.subscribeToEvents()
	return el
}

// Path returns the log file path, or "" when not file-backed
func (el *EventLogger) Path() string {
	if el.logFile == nil {
		return ""
	}
	return el.logFile.Name()
}

func (el *EventLogger) subscribeToEvents() {
	for _, eventType := range events.AllEventTypes {
		el.subscriptionIDs = append(el.subscriptionIDs, el.eventBus.Subscribe(eventType, el.handleEvent))
	}
}

// handleEvent handles incoming events and logs them
func (el *EventLogger) handleEvent(event events.Event) {
	context := map[string]interface{}{
		"event_type": string(event.Type),
		"source":     event.Source,
	}
	for k, v := range event.Data {
		context[k] = v
	}

	if event.Type == events.EventTypeError {
		el.logger.WarnWithContext(fmt.Sprintf("Event: %s", event.Type), context)
		return
	}
	el.logger.InfoWithContext(fmt.Sprintf("Event: %s", event.Type), context)
}

// Close unsubscribes and closes the log file
func (el *EventLogger) Close() error {
	for _, id := range el.subscriptionIDs {
		el.eventBus.Unsubscribe(id)
	}
	el.subscriptionIDs = nil

	if el.logFile != nil {
		_ = el.logger.target().Sync()
		return el.logFile.Close()
	}
	return nil
}
