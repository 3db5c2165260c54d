package database

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"jordanella.com/seed-finder-go/internal/events"
	"jordanella.com/seed-finder-go/internal/logging"
)

// Journal records bus events for one run. Events from the driver and the
// ledger runner carry attempt numbers; catalog events are attributed to the
// last attempt started.
type Journal struct {
	db     *DB
	bus    events.EventBus
	runID  string
	logger *logging.Logger

	mu      sync.Mutex
	attempt int
	failed  int
	subs    []events.SubscriptionID
}

// NewJournal subscribes a journal for runID to the bus
func NewJournal(db *DB, bus events.EventBus, runID string) *Journal {
	j := &Journal{
		db:     db,
		bus:    bus,
		runID:  runID,
		logger: logging.NewLogger("Journal"),
	}

	handlers := map[events.EventType]events.EventHandler{
		events.EventTypeRunStarted:        j.onRunStarted,
		events.EventTypeRunFinished:       j.onRunFinished,
		events.EventTypeAttemptStarted:    j.onAttemptStarted,
		events.EventTypeStateClassified:   j.onStateClassified,
		events.EventTypeVerdict:           j.onVerdict,
		events.EventTypePaused:            j.onPaused,
		events.EventTypeCatalogEntryAdded: j.onCatalogEntry,
		events.EventTypeResultLogged:      j.onResultLogged,
	}
	for _, eventType := range events.AllEventTypes {
		if h, ok := handlers[eventType]; ok {
			j.subs = append(j.subs, bus.Subscribe(eventType, h))
		}
	}
	return j
}

// Failures returns how many events could not be written
func (j *Journal) Failures() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.failed
}

// Close unsubscribes the journal
func (j *Journal) Close() {
	for _, id := range j.subs {
		j.bus.Unsubscribe(id)
	}
	j.subs = nil
}

func (j *Journal) onRunStarted(e events.Event) {
	if str(e, "run_id") != j.runID {
		return
	}
	j.record(e, j.db.StartRun(j.runID, str(e, "mode"), str(e, "profile"), e.Timestamp))
}

func (j *Journal) onRunFinished(e events.Event) {
	if str(e, "run_id") != j.runID {
		return
	}
	j.record(e, j.db.FinishRun(j.runID, num(e, "attempts"), str(e, "error"), e.Timestamp))
}

func (j *Journal) onAttemptStarted(e events.Event) {
	attempt := num(e, "attempt")
	j.mu.Lock()
	j.attempt = attempt
	j.mu.Unlock()
	j.record(e, j.db.StartAttempt(j.runID, attempt, e.Timestamp))
}

func (j *Journal) onStateClassified(e events.Event) {
	j.record(e, j.db.RecordState(j.runID, num(e, "attempt"), str(e, "state")))
}

func (j *Journal) onVerdict(e events.Event) {
	j.record(e, j.db.RecordVerdict(j.runID, num(e, "attempt"), str(e, "state"), str(e, "verdict"), str(e, "reason")))
}

func (j *Journal) onPaused(e events.Event) {
	checked, _ := e.Data["checked"].([]string)
	j.record(e, j.db.RecordPause(j.runID, num(e, "attempt"), checked))
}

func (j *Journal) onCatalogEntry(e events.Event) {
	j.mu.Lock()
	attempt := j.attempt
	j.mu.Unlock()
	_, err := j.db.RecordCatalogEntry(j.runID, attempt, str(e, "area"), num(e, "index"), str(e, "path"), e.Timestamp)
	j.record(e, err)
}

func (j *Journal) onResultLogged(e events.Event) {
	row, _ := e.Data["row"].(map[string]int)
	j.record(e, j.db.RecordResult(j.runID, num(e, "attempt"), FormatResult(row)))
}

func (j *Journal) record(e events.Event, err error) {
	if err == nil {
		return
	}
	j.mu.Lock()
	j.failed++
	j.mu.Unlock()
	j.logger.ErrorWithContext("Failed to journal event", err, map[string]interface{}{
		"event": string(e.Type),
		"run":   j.runID,
	})
}

// FormatResult renders a result row as area=index pairs sorted by area
func FormatResult(row map[string]int) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, row[k])
	}
	return strings.Join(parts, ",")
}

func str(e events.Event, key string) string {
	s, _ := e.Data[key].(string)
	return s
}

func num(e events.Event, key string) int {
	n, _ := e.Data[key].(int)
	return n
}
