package bot

import (
	"context"
	"image"
)

// EvaluatorStrategy inspects each area of an attempt and pauses once every
// target area has been seen without disqualifying evidence.
type EvaluatorStrategy struct {
	classifier *Classifier
	evaluator  *Evaluator
	targets    StateSet
}

// NewEvaluatorStrategy creates the strategy for profile
func NewEvaluatorStrategy(classifier *Classifier, evaluator *Evaluator, profile *Profile) *EvaluatorStrategy {
	return &EvaluatorStrategy{
		classifier: classifier,
		evaluator:  evaluator,
		targets:    profile.Targets(),
	}
}

func (s *EvaluatorStrategy) Classify(frame *image.RGBA) (State, error) {
	return s.classifier.Classify(frame)
}

func (s *EvaluatorStrategy) Evaluate(state State, frame *image.RGBA) Evaluation {
	return s.evaluator.Evaluate(state, frame)
}

func (s *EvaluatorStrategy) ActOnState(ctx context.Context, d *Driver, state State, eval Evaluation) (Step, error) {
	profile := d.Profile()

	if eval.Verdict == VerdictRetry {
		d.Attempt().ShouldRetry = true
		return StepContinue, s.NextAttempt(ctx, d)
	}

	if state == StateOutsideMission {
		return StepContinue, d.RunMacro(ctx, profile.EnterMacro)
	}

	d.Attempt().Check(state)
	if d.Attempt().Covers(s.targets) {
		return StepPause, nil
	}

	return StepContinue, d.RunMacro(ctx, profile.NextMacro)
}

// NextAttempt clears the attempt and advances the seed
func (s *EvaluatorStrategy) NextAttempt(ctx context.Context, d *Driver) error {
	d.BeginAttempt()
	return d.RunMacro(ctx, d.Profile().AdvanceMacro)
}
