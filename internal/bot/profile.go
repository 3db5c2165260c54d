package bot

import (
	"errors"
	"fmt"
)

// Strategy kinds a profile can select
const (
	StrategyEvaluator = "evaluator"
	StrategyFinder    = "finder"
)

// Macro names used by the default profiles
const (
	MacroAdvanceSeed      = "advance_rng_seed"
	MacroEnterBriefing    = "enter_briefing"
	MacroSaveInBriefing   = "save_state_in_briefing"
	MacroEnterMission     = "enter_mission"
	MacroEnterAndExplore  = "enter_mission_and_explore_(3x_speed)"
	MacroReproduceMission = "enter_mission_(3x_speed)"
	MacroNextArea         = "command_mode_next_area"
	MacroScrollUp         = "command_mode_scroll_up"
)

// Profile describes one bot variant. Everything a variant tunes lives here,
// so variants differ by configuration rather than by code.
type Profile struct {
	Name      string  `yaml:"name"`
	Strategy  string  `yaml:"strategy"`
	Assets    string  `yaml:"assets,omitempty"`
	Macros    string  `yaml:"macros,omitempty"`
	Threshold float64 `yaml:"threshold"`

	// Evaluator
	TargetStates    []State          `yaml:"target_states,omitempty"`
	MistakeStates   []State          `yaml:"mistake_states,omitempty"`
	NormaliseMacros map[State]string `yaml:"normalise_macros,omitempty"`
	AdvanceMacro    string           `yaml:"advance_macro,omitempty"`
	EnterMacro      string           `yaml:"enter_macro,omitempty"`
	NextMacro       string           `yaml:"next_macro,omitempty"`

	// Finder
	RollSequence   []string `yaml:"roll_sequence,omitempty"`
	TargetTemplate string   `yaml:"target_template,omitempty"`

	// Both
	ReproduceMacro string `yaml:"reproduce_macro,omitempty"`
}

// DefaultEvaluatorProfile inspects areas 2 to 5 of each attempt. The
// briefing screen counts as a mistake because a correct run never stops there.
func DefaultEvaluatorProfile() *Profile {
	return &Profile{
		Name:          "evaluator",
		Strategy:      StrategyEvaluator,
		Threshold:     DefaultThreshold,
		TargetStates:  []State{StateArea2, StateArea3, StateArea4, StateArea5},
		MistakeStates: []State{StateMacroMistake, StateInBriefing},
		NormaliseMacros: map[State]string{
			StateArea2: MacroScrollUp,
			StateArea3: MacroScrollUp,
		},
		AdvanceMacro:   MacroAdvanceSeed,
		EnterMacro:     MacroEnterAndExplore,
		NextMacro:      MacroNextArea,
		ReproduceMacro: MacroReproduceMission,
	}
}

// DefaultFinderProfile rolls seeds until one target template appears
func DefaultFinderProfile() *Profile {
	return &Profile{
		Name:      "finder",
		Strategy:  StrategyFinder,
		Threshold: 0.99,
		RollSequence: []string{
			MacroAdvanceSeed,
			MacroEnterBriefing,
			MacroSaveInBriefing,
			MacroEnterMission,
		},
		TargetTemplate: "good_seed_indicator-min.png",
		ReproduceMacro: MacroEnterBriefing,
	}
}

// ApplyDefaults fills unset fields from the default profile of the same strategy
func (p *Profile) ApplyDefaults() {
	var def *Profile
	switch p.Strategy {
	case StrategyFinder:
		def = DefaultFinderProfile()
	default:
		if p.Strategy == "" {
			p.Strategy = StrategyEvaluator
		}
		def = DefaultEvaluatorProfile()
	}

	if p.Name == "" {
		p.Name = def.Name
	}
	if p.Threshold <= 0 {
		p.Threshold = def.Threshold
	}
	if p.TargetStates == nil {
		p.TargetStates = def.TargetStates
	}
	if p.MistakeStates == nil {
		p.MistakeStates = def.MistakeStates
	}
	if p.NormaliseMacros == nil {
		p.NormaliseMacros = def.NormaliseMacros
	}
	if p.AdvanceMacro == "" {
		p.AdvanceMacro = def.AdvanceMacro
	}
	if p.EnterMacro == "" {
		p.EnterMacro = def.EnterMacro
	}
	if p.NextMacro == "" {
		p.NextMacro = def.NextMacro
	}
	if p.RollSequence == nil {
		p.RollSequence = def.RollSequence
	}
	if p.TargetTemplate == "" {
		p.TargetTemplate = def.TargetTemplate
	}
	if p.ReproduceMacro == "" {
		p.ReproduceMacro = def.ReproduceMacro
	}
}

// Validate checks the fields the selected strategy needs
func (p *Profile) Validate() error {
	var errs []error

	if p.Threshold <= 0 || p.Threshold > 1 {
		errs = append(errs, fmt.Errorf("threshold must be in (0,1], got %v", p.Threshold))
	}
	if p.ReproduceMacro == "" {
		errs = append(errs, errors.New("reproduce_macro is required"))
	}

	switch p.Strategy {
	case StrategyEvaluator:
		if len(p.TargetStates) == 0 {
			errs = append(errs, errors.New("target_states must not be empty"))
		}
		if p.AdvanceMacro == "" || p.EnterMacro == "" || p.NextMacro == "" {
			errs = append(errs, errors.New("advance_macro, enter_macro and next_macro are required"))
		}
	case StrategyFinder:
		if len(p.RollSequence) == 0 {
			errs = append(errs, errors.New("roll_sequence must not be empty"))
		}
		if p.TargetTemplate == "" {
			errs = append(errs, errors.New("target_template is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown strategy %q", p.Strategy))
	}

	for _, s := range append(append([]State(nil), p.TargetStates...), p.MistakeStates...) {
		if s == StateUnknown {
			errs = append(errs, errors.New("profile lists an unknown state"))
			break
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("profile %s: %w", p.Name, errors.Join(errs...))
	}
	return nil
}

// Targets returns the target states as a set
func (p *Profile) Targets() StateSet {
	return NewStateSet(p.TargetStates...)
}

// Mistakes returns the mistake states as a set
func (p *Profile) Mistakes() StateSet {
	return NewStateSet(p.MistakeStates...)
}

// MacroNames returns every macro name the profile refers to
func (p *Profile) MacroNames() []string {
	var names []string
	add := func(n string) {
		if n == "" {
			return
		}
		for _, existing := range names {
			if existing == n {
				return
			}
		}
		names = append(names, n)
	}

	switch p.Strategy {
	case StrategyFinder:
		for _, n := range p.RollSequence {
			add(n)
		}
	default:
		add(p.AdvanceMacro)
		add(p.EnterMacro)
		add(p.NextMacro)
		for _, s := range AllStates {
			add(p.NormaliseMacros[s])
		}
	}
	add(p.ReproduceMacro)
	return names
}
