// Package operator asks the human running the bot for decisions.
package operator

import "context"

// Decision is the operator's answer to a possible success
type Decision int

const (
	// DecisionKeepSearching discards the candidate and continues
	DecisionKeepSearching Decision = iota
	// DecisionStop accepts the candidate and begins reproduction
	DecisionStop
)

func (d Decision) String() string {
	switch d {
	case DecisionKeepSearching:
		return "keep_searching"
	case DecisionStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Operator is the modal interface shown to the human at decision points.
// Every method blocks until the operator answers.
type Operator interface {
	// Notify announces a candidate and asks whether to stop
	Notify(ctx context.Context, message string) (Decision, error)

	// Confirm asks whether the reproduced outcome still matches
	Confirm(ctx context.Context, question string) (bool, error)

	// Resume is shown after an interrupt. false means terminate.
	Resume(ctx context.Context, message string) (bool, error)

	// TableLocked blocks until the operator says the results file is writable again
	TableLocked(ctx context.Context, path string) error
}
