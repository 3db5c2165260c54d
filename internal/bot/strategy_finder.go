package bot

import (
	"context"
	"fmt"
	"image"

	"jordanella.com/seed-finder-go/pkg/templates"
)

// FinderStrategy rolls a seed, enters the mission and checks a single target
// template. Every frame it sees is treated as the mission start screen.
type FinderStrategy struct {
	scorer    Scorer
	target    *templates.Template
	threshold float64
}

// NewFinderStrategy creates the strategy for profile
func NewFinderStrategy(scorer Scorer, target *templates.Template, profile *Profile) (*FinderStrategy, error) {
	if target == nil || target.Image == nil {
		return nil, fmt.Errorf("finder needs target template %q", profile.TargetTemplate)
	}
	return &FinderStrategy{
		scorer:    scorer,
		target:    target,
		threshold: profile.Threshold,
	}, nil
}

func (s *FinderStrategy) Classify(_ *image.RGBA) (State, error) {
	return StateMissionStart, nil
}

func (s *FinderStrategy) Evaluate(_ State, frame *image.RGBA) Evaluation {
	score := s.scorer.Score(frame, s.target.Image)
	if score >= s.threshold {
		return Evaluation{Verdict: VerdictContinue, Reason: fmt.Sprintf("target matched with %.4f", score)}
	}
	return Evaluation{
		Verdict:  VerdictRetry,
		Reason:   fmt.Sprintf("target scored %.4f", score),
		Template: s.target.ID,
	}
}

func (s *FinderStrategy) ActOnState(ctx context.Context, d *Driver, state State, eval Evaluation) (Step, error) {
	if eval.Verdict == VerdictRetry {
		d.Attempt().ShouldRetry = true
		return StepContinue, s.NextAttempt(ctx, d)
	}

	d.Attempt().Check(state)
	return StepPause, nil
}

// NextAttempt runs the roll sequence
func (s *FinderStrategy) NextAttempt(ctx context.Context, d *Driver) error {
	d.BeginAttempt()
	for _, name := range d.Profile().RollSequence {
		if err := d.RunMacro(ctx, name); err != nil {
			return err
		}
	}
	return nil
}
