package bot

import (
	"context"
	"errors"
	"fmt"
	"image"

	"jordanella.com/seed-finder-go/internal/events"
	"jordanella.com/seed-finder-go/internal/logging"
	"jordanella.com/seed-finder-go/internal/operator"
)

// Step is what the driver does after a strategy acts on a state
type Step int

const (
	StepContinue Step = iota
	StepPause
)

// Strategy is the variant-specific part of an attempt
type Strategy interface {
	Classify(frame *image.RGBA) (State, error)
	Evaluate(state State, frame *image.RGBA) Evaluation
	ActOnState(ctx context.Context, d *Driver, state State, eval Evaluation) (Step, error)

	// NextAttempt starts a fresh attempt, usually by rolling a new seed
	NextAttempt(ctx context.Context, d *Driver) error
}

// FrameSource provides live frames
type FrameSource interface {
	CaptureFrame() (*image.RGBA, error)
}

// MacroRunner plays named macros
type MacroRunner interface {
	Run(ctx context.Context, name string) error
	ExecutionFailed() bool
	ClearFailure()
}

// Resetter returns the input device to neutral
type Resetter interface {
	Reset() error
}

// Driver runs attempts until the operator accepts a result or terminates
type Driver struct {
	strategy    Strategy
	profile     *Profile
	frames      FrameSource
	macros      MacroRunner
	device      Resetter
	operator    operator.Operator
	interrupter Interrupter
	eventBus    events.EventBus

	attempt AttemptContext
	logger  *logging.Logger
}

// DriverConfig holds the collaborators of a Driver
type DriverConfig struct {
	Strategy    Strategy
	Profile     *Profile
	Frames      FrameSource
	Macros      MacroRunner
	Device      Resetter
	Operator    operator.Operator
	Interrupter Interrupter     // optional
	EventBus    events.EventBus // optional
}

type noInterrupts struct{}

func (noInterrupts) Interrupted() bool { return false }

// NewDriver creates a driver
func NewDriver(cfg DriverConfig) (*Driver, error) {
	if cfg.Strategy == nil || cfg.Profile == nil || cfg.Frames == nil ||
		cfg.Macros == nil || cfg.Device == nil || cfg.Operator == nil {
		return nil, errors.New("driver requires strategy, profile, frames, macros, device and operator")
	}
	if cfg.Interrupter == nil {
		cfg.Interrupter = noInterrupts{}
	}

	return &Driver{
		strategy:    cfg.Strategy,
		profile:     cfg.Profile,
		frames:      cfg.Frames,
		macros:      cfg.Macros,
		device:      cfg.Device,
		operator:    cfg.Operator,
		interrupter: cfg.Interrupter,
		eventBus:    cfg.EventBus,
		logger:      logging.NewLogger("Driver"),
	}, nil
}

// Attempt exposes the current attempt state to strategies
func (d *Driver) Attempt() *AttemptContext {
	return &d.attempt
}

// Profile returns the driver's profile
func (d *Driver) Profile() *Profile {
	return d.profile
}

// RunMacro plays a named macro
func (d *Driver) RunMacro(ctx context.Context, name string) error {
	return d.macros.Run(ctx, name)
}

// Capture grabs a fresh frame
func (d *Driver) Capture() (*image.RGBA, error) {
	frame, err := d.frames.CaptureFrame()
	if err != nil {
		return nil, fmt.Errorf("failed to capture frame: %w", err)
	}
	return frame, nil
}

// BeginAttempt resets the attempt state and counts a new attempt
func (d *Driver) BeginAttempt() {
	d.attempt.Reset()
	d.attempt.AttemptCount++
	d.macros.ClearFailure()

	d.logger.Info(fmt.Sprintf("Starting Attempt #%d...", d.attempt.AttemptCount))
	d.publish(events.NewAttemptStartedEvent("driver", d.attempt.AttemptCount))
}

// Run drives attempts. It returns nil once the operator confirms a result,
// ErrTerminated when the operator ends the run after an interrupt, and
// ctx.Err() on cancellation. The device is reset before any of these return.
func (d *Driver) Run(ctx context.Context) error {
	err := d.run(ctx)
	if resetErr := d.device.Reset(); resetErr != nil {
		d.logger.Error("Failed to reset device", resetErr)
	}
	return err
}

func (d *Driver) run(ctx context.Context) error {
	if err := d.strategy.NextAttempt(ctx, d); err != nil {
		return d.stepFailed(ctx, err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.interrupter.Interrupted() {
			if err := d.handleInterrupt(ctx); err != nil {
				return err
			}
			continue
		}

		if d.attempt.ShouldPause {
			done, err := d.handlePause(ctx)
			if err != nil {
				return d.stepFailed(ctx, err)
			}
			if done {
				return nil
			}
			continue
		}

		if err := d.Tick(ctx); err != nil {
			return d.stepFailed(ctx, err)
		}
	}
}

// Tick performs one sense-decide-act step
func (d *Driver) Tick(ctx context.Context) error {
	frame, err := d.Capture()
	if err != nil {
		return err
	}

	state, err := d.strategy.Classify(frame)
	if err != nil {
		return err
	}
	d.attempt.CurrentState = state
	d.publish(events.NewStateClassifiedEvent("driver", d.attempt.AttemptCount, state.Token()))

	if macro, ok := d.profile.NormaliseMacros[state]; ok && macro != "" {
		if err := d.RunMacro(ctx, macro); err != nil {
			return err
		}
		if frame, err = d.Capture(); err != nil {
			return err
		}
	}

	eval := d.strategy.Evaluate(state, frame)
	d.publish(events.NewVerdictEvent("driver", d.attempt.AttemptCount, state.Token(), eval.Verdict.String(), eval.Reason))

	step, err := d.strategy.ActOnState(ctx, d, state, eval)
	if err != nil {
		return err
	}
	if step == StepPause {
		d.attempt.ShouldPause = true
		return nil
	}

	if d.macros.ExecutionFailed() {
		d.logger.Warn("Macro didn't execute properly. Retrying from start...")
		return d.strategy.NextAttempt(ctx, d)
	}
	return nil
}

// handlePause asks the operator about a candidate. It returns true once the
// operator has confirmed a reproduced result.
func (d *Driver) handlePause(ctx context.Context) (bool, error) {
	d.publish(events.NewPausedEvent("driver", d.attempt.AttemptCount, d.attempt.CheckedTokens()))
	d.logger.InfoWithContext("Possible good seed found", map[string]interface{}{
		"attempt": d.attempt.AttemptCount,
		"checked": d.attempt.CheckedTokens(),
	})

	decision, err := d.operator.Notify(ctx, "The bot might have found a good seed! Keep searching if it was wrong, or stop if it was right.")
	if err != nil {
		return false, err
	}

	if decision == operator.DecisionKeepSearching {
		d.attempt.ShouldPause = false
		d.publish(events.NewResumedEvent("driver", d.attempt.AttemptCount, "keep_searching"))
		d.logger.Info("Continuing search...")
		return false, d.strategy.NextAttempt(ctx, d)
	}

	for {
		d.logger.Info("Trying to reproduce the seed...")
		if err := d.RunMacro(ctx, d.profile.ReproduceMacro); err != nil {
			return false, err
		}
		ok, err := d.operator.Confirm(ctx, "Is it the same seed?")
		if err != nil {
			return false, err
		}
		if ok {
			break
		}
	}

	d.publish(events.NewTerminatedEvent("driver", d.attempt.AttemptCount, "confirmed"))
	d.logger.Info("Seed confirmed")
	return true, nil
}

// handleInterrupt resets the device before handing control to the operator
func (d *Driver) handleInterrupt(ctx context.Context) error {
	if err := d.device.Reset(); err != nil {
		d.logger.Error("Failed to reset device after interrupt", err)
	}

	resume, err := d.operator.Resume(ctx, fmt.Sprintf("Interrupted during attempt #%d.", d.attempt.AttemptCount))
	if err != nil {
		return err
	}
	if !resume {
		d.publish(events.NewTerminatedEvent("driver", d.attempt.AttemptCount, "interrupted"))
		return ErrTerminated
	}

	d.publish(events.NewResumedEvent("driver", d.attempt.AttemptCount, "interrupt"))
	return nil
}

func (d *Driver) stepFailed(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return ctxErr
	}
	d.publish(events.NewErrorEvent("driver", err))
	return err
}

func (d *Driver) publish(e events.Event) {
	if d.eventBus != nil {
		d.eventBus.Publish(e)
	}
}
