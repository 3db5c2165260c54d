package ledger

import (
	"context"
	"fmt"
	"image"

	"jordanella.com/seed-finder-go/internal/events"
	"jordanella.com/seed-finder-go/internal/logging"
)

// DefaultDedupThreshold is high because repeats are near pixel-identical
const DefaultDedupThreshold = 0.99

// DefaultAreas are the tracked area keys, in results column order
var DefaultAreas = []string{"area_2", "area_3", "area_4", "area_5"}

// Scorer computes the best correlation of a template inside a frame
type Scorer interface {
	Score(frame, template *image.RGBA) float64
}

// Observation is the result of evaluating one area screen
type Observation struct {
	Area       string
	Index      int
	New        bool
	Mistake    bool
	Confidence float64
	Ties       int // other entries sharing the best score
}

// Ledger deduplicates screens against the catalog and records what each
// attempt saw.
type Ledger struct {
	catalog   *Catalog
	results   *ResultsTable
	scorer    Scorer
	threshold float64

	seen   map[string]int
	failed bool

	eventBus events.EventBus
	logger   *logging.Logger
}

// New creates a ledger. threshold <= 0 selects DefaultDedupThreshold.
func New(catalog *Catalog, results *ResultsTable, scorer Scorer, threshold float64) *Ledger {
	if threshold <= 0 {
		threshold = DefaultDedupThreshold
	}
	return &Ledger{
		catalog:   catalog,
		results:   results,
		scorer:    scorer,
		threshold: threshold,
		seen:      make(map[string]int),
		logger:    logging.NewLogger("Ledger"),
	}
}

// SetEventBus publishes catalog and result events to bus
func (l *Ledger) SetEventBus(bus events.EventBus) {
	l.eventBus = bus
}

// Catalog returns the underlying catalog
func (l *Ledger) Catalog() *Catalog {
	return l.catalog
}

// Evaluate resolves frame to a catalog index for area, adding a new entry
// when nothing in the catalog matches. A match against a mistake template
// marks the attempt failed instead.
func (l *Ledger) Evaluate(area string, frame *image.RGBA) (Observation, error) {
	if !l.catalog.Tracks(area) {
		return Observation{}, fmt.Errorf("area %q is not tracked", area)
	}

	for _, t := range l.catalog.Mistakes() {
		if score := l.scorer.Score(frame, t.Image); score >= l.threshold {
			l.failed = true
			l.logger.WarnWithContext("Macro mistake screen detected", map[string]interface{}{
				"area":     area,
				"template": t.ID,
			})
			return Observation{Area: area, Index: -1, Mistake: true, Confidence: score}, nil
		}
	}

	var best *Entry
	bestScore := 0.0
	ties := 0
	for _, e := range l.catalog.Entries(area) {
		score := l.scorer.Score(frame, e.Image)
		switch {
		case best == nil || score > bestScore:
			best, bestScore, ties = e, score, 0
		case score == bestScore:
			ties++
		}
	}

	if best != nil && bestScore >= l.threshold {
		if ties > 0 {
			l.logger.WarnWithContext("Several catalog entries share the best score", map[string]interface{}{
				"area":       area,
				"index":      best.Index,
				"ties":       ties,
				"confidence": bestScore,
			})
		}
		l.seen[area] = best.Index
		return Observation{Area: area, Index: best.Index, Confidence: bestScore, Ties: ties}, nil
	}

	entry, err := l.catalog.Add(area, frame)
	if err != nil {
		return Observation{}, err
	}
	l.seen[area] = entry.Index

	l.logger.InfoWithContext("New screen catalogued", map[string]interface{}{
		"area":  area,
		"index": entry.Index,
		"path":  entry.Path,
	})
	if l.eventBus != nil {
		l.eventBus.Publish(events.NewCatalogEntryAddedEvent(area, entry.Index, entry.Path))
	}

	return Observation{Area: area, Index: entry.Index, New: true, Confidence: bestScore}, nil
}

// Failed reports whether the current attempt hit a mistake
func (l *Ledger) Failed() bool {
	return l.failed
}

// MarkFailed flags the current attempt as failed
func (l *Ledger) MarkFailed() {
	l.failed = true
}

// Seen returns a copy of the per-area indices observed this attempt
func (l *Ledger) Seen() map[string]int {
	out := make(map[string]int, len(l.seen))
	for k, v := range l.seen {
		out[k] = v
	}
	return out
}

// Refresh forgets the current attempt
func (l *Ledger) Refresh() {
	l.seen = make(map[string]int)
	l.failed = false
}

// Log appends the current attempt to the results table
func (l *Ledger) Log(ctx context.Context, attempt int) error {
	row := l.Seen()
	if err := l.results.Append(ctx, row); err != nil {
		return err
	}
	if l.eventBus != nil {
		l.eventBus.Publish(events.NewResultLoggedEvent(attempt, row))
	}
	return nil
}
