package bot

import (
	"fmt"
	"image"
	"sort"

	"jordanella.com/seed-finder-go/internal/logging"
	"jordanella.com/seed-finder-go/pkg/templates"
)

// DefaultThreshold is the match threshold for contraindicators and checks
const DefaultThreshold = 0.90

// Verdict is the outcome of inspecting one screen
type Verdict int

const (
	VerdictContinue Verdict = iota
	VerdictRetry
)

func (v Verdict) String() string {
	if v == VerdictRetry {
		return "retry"
	}
	return "continue"
}

// Evaluation explains a verdict
type Evaluation struct {
	Verdict  Verdict
	Reason   string
	Template string // contraindicator that fired, if any
	Group    int    // first unsatisfied check group, if any
}

// checkGroup is a disjunctive set of acceptable templates
type checkGroup struct {
	number  int
	members []*templates.Template
}

// stateRules are the templates consulted for one state, pre-split at load time
type stateRules struct {
	contraindicators []*templates.Template
	groups           []checkGroup // ascending by number
}

// Evaluator applies per-state contraindicator and check-group rules
type Evaluator struct {
	scorer    Scorer
	threshold float64
	mistakes  StateSet
	rules     map[State]stateRules
	logger    *logging.Logger
}

// NewEvaluator indexes the rules for every state found in store.
// States in mistakes always evaluate to retry.
func NewEvaluator(scorer Scorer, store *templates.Store, threshold float64, mistakes StateSet) *Evaluator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if mistakes == nil {
		mistakes = NewStateSet(StateMacroMistake)
	}

	e := &Evaluator{
		scorer:    scorer,
		threshold: threshold,
		mistakes:  mistakes,
		rules:     make(map[State]stateRules),
		logger:    logging.NewLogger("Evaluator"),
	}

	for _, state := range AllStates {
		e.rules[state] = buildRules(store.ForState(state.Token()))
	}
	return e
}

func buildRules(ts []*templates.Template) stateRules {
	var rules stateRules
	byGroup := make(map[int][]*templates.Template)

	for _, t := range ts {
		switch t.Role {
		case templates.RoleContraindicator:
			rules.contraindicators = append(rules.contraindicators, t)
		case templates.RoleCheckMember:
			byGroup[t.Group] = append(byGroup[t.Group], t)
		}
	}

	for number, members := range byGroup {
		rules.groups = append(rules.groups, checkGroup{number: number, members: members})
	}
	sort.Slice(rules.groups, func(i, j int) bool {
		return rules.groups[i].number < rules.groups[j].number
	})
	return rules
}

// Evaluate inspects frame under the rules of state. Contraindicators are
// checked first, then check groups in ascending order; the first failure
// returns immediately and later rules are not scored.
func (e *Evaluator) Evaluate(state State, frame *image.RGBA) Evaluation {
	if e.mistakes.Has(state) {
		return Evaluation{Verdict: VerdictRetry, Reason: fmt.Sprintf("%s is a mistake state", state)}
	}

	rules := e.rules[state]

	for _, t := range rules.contraindicators {
		if e.scorer.Score(frame, t.Image) >= e.threshold {
			e.logger.InfoWithContext("Found contraindicator", map[string]interface{}{
				"state":    state.String(),
				"template": t.ID,
			})
			return Evaluation{
				Verdict:  VerdictRetry,
				Reason:   "contraindicator matched",
				Template: t.ID,
			}
		}
	}

	for _, group := range rules.groups {
		if !e.groupSatisfied(frame, group) {
			e.logger.InfoWithContext("Check group not satisfied", map[string]interface{}{
				"state": state.String(),
				"group": group.number,
			})
			return Evaluation{
				Verdict: VerdictRetry,
				Reason:  fmt.Sprintf("no match for check %d", group.number),
				Group:   group.number,
			}
		}
	}

	e.logger.Info(fmt.Sprintf("%s looks OK", state))
	return Evaluation{Verdict: VerdictContinue}
}

func (e *Evaluator) groupSatisfied(frame *image.RGBA, group checkGroup) bool {
	for _, t := range group.members {
		if e.scorer.Score(frame, t.Image) >= e.threshold {
			return true
		}
	}
	return false
}
