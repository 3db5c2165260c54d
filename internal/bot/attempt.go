package bot

// AttemptContext is the per-attempt state of a driver. Reset clears it at the
// start of each attempt; AttemptCount survives resets.
type AttemptContext struct {
	CurrentState  State
	CheckedStates []State
	ShouldRetry   bool
	ShouldPause   bool
	AttemptCount  int
}

// Reset prepares for a new attempt
func (a *AttemptContext) Reset() {
	a.CurrentState = StateUnknown
	a.CheckedStates = nil
	a.ShouldRetry = false
	a.ShouldPause = false
}

// Check records state as inspected and accepted. States are appended in
// visit order; revisiting a state appends it again.
func (a *AttemptContext) Check(state State) {
	a.CheckedStates = append(a.CheckedStates, state)
}

// Covers reports whether every state in target has been checked
func (a *AttemptContext) Covers(target StateSet) bool {
	if len(target) == 0 {
		return false
	}
	seen := NewStateSet(a.CheckedStates...)
	for s := range target {
		if !seen.Has(s) {
			return false
		}
	}
	return true
}

// CheckedTokens returns the checked states as tokens in visit order
func (a *AttemptContext) CheckedTokens() []string {
	out := make([]string, len(a.CheckedStates))
	for i, s := range a.CheckedStates {
		out[i] = s.Token()
	}
	return out
}
