package bot

import (
	"fmt"
	"strings"
)

// State is a recognized phase of the observed scenario. The set is closed:
// classification never produces a value outside AllStates.
type State int

const (
	// StateUnknown is the zero value and never the result of a successful classification
	StateUnknown State = iota

	StateOutsideMission
	StateInBriefing
	StateMissionStart
	StateArea1
	StateArea2
	StateArea3
	StateArea4
	StateArea5
	StateMacroMistake
)

// AllStates lists every classifiable state
var AllStates = []State{
	StateOutsideMission,
	StateInBriefing,
	StateMissionStart,
	StateArea1,
	StateArea2,
	StateArea3,
	StateArea4,
	StateArea5,
	StateMacroMistake,
}

// stateTokens is the closed file name vocabulary. Order matters: the first
// token contained in a file name wins.
var stateTokens = []string{
	"outside_mission",
	"in_briefing",
	"mission_start",
	"area_1",
	"area_2",
	"area_3",
	"area_4",
	"area_5",
	"mission_failed",
	"macro_mistake",
}

// StateTokens returns a copy of the state vocabulary for template loading
func StateTokens() []string {
	return append([]string(nil), stateTokens...)
}

// StateFromToken maps a vocabulary token to its state
func StateFromToken(token string) (State, bool) {
	switch token {
	case "outside_mission":
		return StateOutsideMission, true
	case "in_briefing":
		return StateInBriefing, true
	case "mission_start":
		return StateMissionStart, true
	case "area_1":
		return StateArea1, true
	case "area_2":
		return StateArea2, true
	case "area_3":
		return StateArea3, true
	case "area_4":
		return StateArea4, true
	case "area_5":
		return StateArea5, true
	case "mission_failed", "macro_mistake":
		return StateMacroMistake, true
	default:
		return StateUnknown, false
	}
}

// Token returns the canonical file name token of a state
func (s State) Token() string {
	switch s {
	case StateOutsideMission:
		return "outside_mission"
	case StateInBriefing:
		return "in_briefing"
	case StateMissionStart:
		return "mission_start"
	case StateArea1:
		return "area_1"
	case StateArea2:
		return "area_2"
	case StateArea3:
		return "area_3"
	case StateArea4:
		return "area_4"
	case StateArea5:
		return "area_5"
	case StateMacroMistake:
		return "macro_mistake"
	default:
		return ""
	}
}

// String returns human-readable state name
func (s State) String() string {
	switch s {
	case StateOutsideMission:
		return "OutsideMission"
	case StateInBriefing:
		return "InBriefing"
	case StateMissionStart:
		return "MissionStart"
	case StateArea1:
		return "Area1"
	case StateArea2:
		return "Area2"
	case StateArea3:
		return "Area3"
	case StateArea4:
		return "Area4"
	case StateArea5:
		return "Area5"
	case StateMacroMistake:
		return "MacroMistake"
	default:
		return "Unknown"
	}
}

// ParseState accepts either the display name or the file name token
func ParseState(s string) (State, error) {
	if st, ok := StateFromToken(strings.ToLower(s)); ok {
		return st, nil
	}
	for _, st := range AllStates {
		if strings.EqualFold(st.String(), s) {
			return st, nil
		}
	}
	return StateUnknown, fmt.Errorf("unknown state %q", s)
}

// MarshalText lets states appear by name in YAML profiles
func (s State) MarshalText() ([]byte, error) {
	if s == StateUnknown {
		return nil, fmt.Errorf("cannot marshal unknown state")
	}
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name or token
func (s *State) UnmarshalText(text []byte) error {
	st, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// StateSet is a small set of states
type StateSet map[State]struct{}

// NewStateSet builds a set from states
func NewStateSet(states ...State) StateSet {
	set := make(StateSet, len(states))
	for _, s := range states {
		set[s] = struct{}{}
	}
	return set
}

// Has reports membership
func (ss StateSet) Has(s State) bool {
	_, ok := ss[s]
	return ok
}
