package bot

import (
	"image"
	"time"

	"jordanella.com/seed-finder-go/internal/logging"
	"jordanella.com/seed-finder-go/pkg/templates"
)

// Scorer computes the best correlation of a template inside a frame
type Scorer interface {
	Score(frame, template *image.RGBA) float64
}

// ScreenDetectionResult contains detection details
type ScreenDetectionResult struct {
	Screen     State
	TemplateID string
	Confidence float64
	Detected   time.Time
}

// Classifier maps a frame to exactly one State by best indicator match
type Classifier struct {
	scorer     Scorer
	indicators []*templates.Template
	logger     *logging.Logger
}

// NewClassifier builds a classifier over the indicator templates of store
func NewClassifier(scorer Scorer, store *templates.Store) *Classifier {
	return &Classifier{
		scorer:     scorer,
		indicators: store.Indicators(),
		logger:     logging.NewLogger("Classifier"),
	}
}

// Classify returns the state of the best-scoring indicator
func (c *Classifier) Classify(frame *image.RGBA) (State, error) {
	result, err := c.DetectWithConfidence(frame)
	if err != nil {
		return StateUnknown, err
	}
	return result.Screen, nil
}

// DetectWithConfidence scores every indicator and keeps the best one.
// Indicators are visited in id order and only a strictly higher score
// replaces the leader, so ties go to the lexicographically smallest id.
func (c *Classifier) DetectWithConfidence(frame *image.RGBA) (*ScreenDetectionResult, error) {
	if len(c.indicators) == 0 {
		return nil, &ClassificationError{Reason: "no state indicator templates loaded"}
	}

	var best *templates.Template
	bestScore := 0.0
	for _, t := range c.indicators {
		score := c.scorer.Score(frame, t.Image)
		if best == nil || score > bestScore {
			best, bestScore = t, score
		}
	}

	state, ok := StateFromToken(best.State)
	if !ok {
		return nil, &ClassificationError{TemplateID: best.ID, Reason: "indicator carries no known state token"}
	}

	c.logger.DebugWithContext("Classified frame", map[string]interface{}{
		"state":      state.String(),
		"template":   best.ID,
		"confidence": bestScore,
	})

	return &ScreenDetectionResult{
		Screen:     state,
		TemplateID: best.ID,
		Confidence: bestScore,
		Detected:   time.Now(),
	}, nil
}
