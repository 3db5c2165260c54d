package macro

import (
	"context"
	"fmt"
	"image"
	"strings"

	"jordanella.com/seed-finder-go/internal/events"
	"jordanella.com/seed-finder-go/internal/logging"
	"jordanella.com/seed-finder-go/pkg/templates"
)

// DefaultVerifyThreshold is the score a marker must reach after a macro runs
const DefaultVerifyThreshold = 0.99

// FrameScorer captures frames and scores them against templates
type FrameScorer interface {
	CaptureFrame() (*image.RGBA, error)
	Score(frame, template *image.RGBA) float64
}

// Engine runs named macros from a library and optionally verifies their outcome
type Engine struct {
	library *Library
	player  *Player

	verifier  FrameScorer
	markers   map[string]*templates.Template
	threshold float64

	failed bool

	eventBus events.EventBus
	logger   *logging.Logger
}

// NewEngine creates an engine playing through player
func NewEngine(library *Library, player *Player) *Engine {
	return &Engine{
		library:   library,
		player:    player,
		threshold: DefaultVerifyThreshold,
		logger:    logging.NewLogger("Macro"),
	}
}

// EnableVerification compares a fresh frame against the marker keyed by
// macro name after each run. Macros with no marker are not verified.
func (e *Engine) EnableVerification(verifier FrameScorer, markers map[string]*templates.Template, threshold float64) {
	if threshold <= 0 {
		threshold = DefaultVerifyThreshold
	}
	e.verifier = verifier
	e.markers = markers
	e.threshold = threshold
}

// SetEventBus publishes verification failures to bus
func (e *Engine) SetEventBus(bus events.EventBus) {
	e.eventBus = bus
}

// Has reports whether the library defines name
func (e *Engine) Has(name string) bool {
	_, ok := e.library.Get(name)
	return ok
}

// Run plays the named macro. A failed verification sets ExecutionFailed and
// is not returned as an error.
func (e *Engine) Run(ctx context.Context, name string) error {
	rec, ok := e.library.Get(name)
	if !ok {
		return fmt.Errorf("unknown macro %q", name)
	}

	stats, err := e.player.Play(ctx, rec)
	if err != nil {
		return fmt.Errorf("macro %s: %w", name, err)
	}

	e.logger.DebugWithContext("Macro played", map[string]interface{}{
		"macro":         name,
		"entries":       stats.Entries,
		"max_lateness":  stats.MaxLateness.String(),
		"mean_lateness": stats.MeanLateness().String(),
	})

	return e.verify(name)
}

func (e *Engine) verify(name string) error {
	if e.verifier == nil {
		return nil
	}
	marker, ok := e.markers[strings.ToLower(name)]
	if !ok {
		return nil
	}

	frame, err := e.verifier.CaptureFrame()
	if err != nil {
		return fmt.Errorf("failed to capture frame to verify %s: %w", name, err)
	}

	score := e.verifier.Score(frame, marker.Image)
	if score >= e.threshold {
		return nil
	}

	e.failed = true
	e.logger.WarnWithContext("Macro did not reach expected screen", map[string]interface{}{
		"macro":      name,
		"marker":     marker.ID,
		"confidence": score,
		"threshold":  e.threshold,
	})
	if e.eventBus != nil {
		e.eventBus.PublishAsync(events.NewMacroFailedEvent(name, score))
	}
	return nil
}

// ExecutionFailed reports whether a verification failed since the last ClearFailure
func (e *Engine) ExecutionFailed() bool {
	return e.failed
}

// ClearFailure resets the execution failure flag
func (e *Engine) ClearFailure() {
	e.failed = false
}
