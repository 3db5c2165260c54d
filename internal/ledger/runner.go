package ledger

import (
	"context"
	"errors"
	"fmt"

	"jordanella.com/seed-finder-go/internal/bot"
	"jordanella.com/seed-finder-go/internal/events"
	"jordanella.com/seed-finder-go/internal/logging"
)

// DefaultExploreOrder follows the order the exploration macros were recorded in
var DefaultExploreOrder = []string{"area_5", "area_4", "area_2", "area_3"}

// DefaultSetupMacros bring a fresh seed into the mission
var DefaultSetupMacros = []string{bot.MacroAdvanceSeed, bot.MacroEnterBriefing, bot.MacroEnterMission}

// ExploreMacro returns the macro that walks to area
func ExploreMacro(area string) string {
	return "explore_" + area
}

// Resumer asks the operator whether to continue after an interrupt
type Resumer interface {
	Resume(ctx context.Context, message string) (bool, error)
}

// RunnerConfig holds the collaborators of a Runner
type RunnerConfig struct {
	Ledger       *Ledger
	Macros       bot.MacroRunner
	Frames       bot.FrameSource
	Device       bot.Resetter
	Operator     Resumer
	Interrupter  bot.Interrupter // optional
	EventBus     events.EventBus // optional
	SetupMacros  []string        // defaults to DefaultSetupMacros
	ExploreOrder []string        // defaults to DefaultExploreOrder
	MaxAttempts  int             // 0 runs until terminated
}

// Runner plays a fixed macro sequence per attempt and feeds each explored
// area to the ledger.
type Runner struct {
	cfg      RunnerConfig
	attempts int
	logged   int
	logger   *logging.Logger
}

var errInterrupted = errors.New("attempt interrupted")

// NewRunner creates a runner
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Ledger == nil || cfg.Macros == nil || cfg.Frames == nil || cfg.Device == nil || cfg.Operator == nil {
		return nil, errors.New("runner requires ledger, macros, frames, device and operator")
	}
	if cfg.SetupMacros == nil {
		cfg.SetupMacros = DefaultSetupMacros
	}
	if cfg.ExploreOrder == nil {
		cfg.ExploreOrder = DefaultExploreOrder
	}
	for _, area := range cfg.ExploreOrder {
		if !cfg.Ledger.Catalog().Tracks(area) {
			return nil, fmt.Errorf("explore order names untracked area %q", area)
		}
	}
	return &Runner{cfg: cfg, logger: logging.NewLogger("Runner")}, nil
}

// Attempts returns the number of attempts started
func (r *Runner) Attempts() int {
	return r.attempts
}

// Logged returns the number of attempts written to the results table
func (r *Runner) Logged() int {
	return r.logged
}

// Run performs attempts until MaxAttempts is reached, the operator ends the
// run after an interrupt (bot.ErrTerminated) or ctx is cancelled. The device
// is reset before returning.
func (r *Runner) Run(ctx context.Context) error {
	defer func() {
		if err := r.cfg.Device.Reset(); err != nil {
			r.logger.Error("Failed to reset device", err)
		}
	}()

	for r.cfg.MaxAttempts == 0 || r.attempts < r.cfg.MaxAttempts {
		err := r.attempt(ctx)
		r.cfg.Ledger.Refresh()
		r.cfg.Macros.ClearFailure()

		switch {
		case err == nil:
		case errors.Is(err, errInterrupted):
			resume, perr := r.handleInterrupt(ctx)
			if perr != nil {
				return perr
			}
			if !resume {
				return bot.ErrTerminated
			}
		default:
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return ctxErr
			}
			return err
		}
	}
	return nil
}

func (r *Runner) attempt(ctx context.Context) error {
	r.attempts++
	log := r.logger.WithContext(map[string]interface{}{"attempt": r.attempts})
	log.Info(fmt.Sprintf("Starting Iteration #%d...", r.attempts))
	if r.cfg.EventBus != nil {
		r.cfg.EventBus.Publish(events.NewAttemptStartedEvent("ledger", r.attempts))
	}

	for _, name := range r.cfg.SetupMacros {
		if err := r.step(ctx, name); err != nil {
			return err
		}
		if r.cfg.Macros.ExecutionFailed() {
			r.cfg.Ledger.MarkFailed()
			break
		}
	}

	if !r.cfg.Ledger.Failed() {
		for _, area := range r.cfg.ExploreOrder {
			if err := r.step(ctx, ExploreMacro(area)); err != nil {
				return err
			}
			if r.cfg.Macros.ExecutionFailed() {
				r.cfg.Ledger.MarkFailed()
				break
			}

			frame, err := r.cfg.Frames.CaptureFrame()
			if err != nil {
				return fmt.Errorf("failed to capture %s: %w", area, err)
			}
			if _, err := r.cfg.Ledger.Evaluate(area, frame); err != nil {
				return err
			}
			if r.cfg.Ledger.Failed() {
				break
			}
		}
	}

	if r.cfg.Ledger.Failed() {
		log.Warn("Whoops! Macro didn't execute properly. Retrying from start...")
		return nil
	}

	if err := r.cfg.Ledger.Log(ctx, r.attempts); err != nil {
		return err
	}
	r.logged++
	log.Debug("Iteration logged")
	return nil
}

// step checks for an interrupt, then runs one macro
func (r *Runner) step(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.cfg.Interrupter != nil && r.cfg.Interrupter.Interrupted() {
		return errInterrupted
	}
	return r.cfg.Macros.Run(ctx, name)
}

func (r *Runner) handleInterrupt(ctx context.Context) (bool, error) {
	if err := r.cfg.Device.Reset(); err != nil {
		r.logger.Error("Failed to reset device after interrupt", err)
	}
	return r.cfg.Operator.Resume(ctx, fmt.Sprintf("Interrupted during iteration #%d.", r.attempts))
}
