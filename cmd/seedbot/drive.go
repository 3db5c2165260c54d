package main

import (
	"fmt"
	"os/signal"

	"github.com/spf13/cobra"

	"jordanella.com/seed-finder-go/internal/bot"
	"jordanella.com/seed-finder-go/internal/config"
	"jordanella.com/seed-finder-go/internal/cv"
	"jordanella.com/seed-finder-go/internal/logging"
	"jordanella.com/seed-finder-go/internal/macro"
)

// driveOptions holds flags shared by evaluate and find
type driveOptions struct {
	*rootOptions
	Threshold float64
}

func newEvaluateCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &driveOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Inspect every area of each attempt and pause on a seed that passes them all",
		Long: `Classify each screen of an attempt, apply the acceptance rules for that
area and advance through the mission. An attempt that reaches every target
area pauses for the operator; a failed check rolls the next seed.

Example:
  seedbot evaluate
  seedbot evaluate --profile profiles/late_areas.yaml --threshold 0.85`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrive(cmd, opts, bot.StrategyEvaluator)
		},
	}
	cmd.Flags().Float64Var(&opts.Threshold, "threshold", 0, "override the profile match threshold")
	return cmd
}

func newFindCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &driveOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Roll seeds until the target screen appears",
		Long: `Run the profile's roll sequence, then score one target template against
the resulting frame. A match pauses for the operator.

Example:
  seedbot find --profile finder`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Profile == "" && opts.settings.Profile == bot.StrategyEvaluator {
				opts.settings.Profile = bot.StrategyFinder
			}
			return runDrive(cmd, opts, bot.StrategyFinder)
		},
	}
	cmd.Flags().Float64Var(&opts.Threshold, "threshold", 0, "override the profile match threshold")
	return cmd
}

func runDrive(cmd *cobra.Command, opts *driveOptions, strategyKind string) (err error) {
	logger := logging.NewLogger("Run")

	profile, err := config.LoadProfile(opts.settings.Profile, opts.settings.ProfileDir)
	if err != nil {
		return err
	}
	if profile.Strategy != strategyKind {
		return fmt.Errorf("profile %s uses the %s strategy, %s needs %s", profile.Name, profile.Strategy, cmd.Name(), strategyKind)
	}
	if opts.Threshold > 0 {
		profile.Threshold = opts.Threshold
		if err := profile.Validate(); err != nil {
			return err
		}
	}
	if profile.Assets != "" {
		opts.settings.AssetsDir = profile.Assets
	}
	if profile.Macros != "" {
		opts.settings.MacroFile = profile.Macros
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), cancelSignals(opts.settings)...)
	defer stop()

	store, err := loadAssets(ctx, opts.settings.AssetsDir)
	if err != nil {
		return err
	}

	s, err := newSession(ctx, opts.rootOptions, cmd.Name())
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.requireMacros(profile.MacroNames()...); err != nil {
		return err
	}

	var strategy bot.Strategy
	switch strategyKind {
	case bot.StrategyFinder:
		target, ok := store.Get(profile.TargetTemplate)
		if !ok {
			return fmt.Errorf("target template %s not found in %s", profile.TargetTemplate, opts.settings.AssetsDir)
		}
		strategy, err = bot.NewFinderStrategy(s.vision, target, profile)
		if err != nil {
			return err
		}
	default:
		classifier := bot.NewClassifier(s.vision, store)
		evaluator := bot.NewEvaluator(s.vision, store, profile.Threshold, profile.Mistakes())
		strategy = bot.NewEvaluatorStrategy(classifier, evaluator, profile)
	}

	driver, err := bot.NewDriver(bot.DriverConfig{
		Strategy:    strategy,
		Profile:     profile,
		Frames:      s.vision,
		Macros:      s.engine,
		Device:      s.device,
		Operator:    s.operator,
		Interrupter: s.interrupts,
		EventBus:    s.bus,
	})
	if err != nil {
		return err
	}

	logger.InfoWithContext("Starting run", map[string]interface{}{
		"profile":   profile.Name,
		"strategy":  profile.Strategy,
		"templates": store.Count(),
		"threshold": profile.Threshold,
	})

	s.started(profile.Name)
	defer func() { s.finished(driver.Attempt().AttemptCount, err) }()

	return driver.Run(ctx)
}

// compile-time checks for the collaborators handed to the driver
var (
	_ bot.FrameSource = (*cv.Service)(nil)
	_ bot.MacroRunner = (*macro.Engine)(nil)
)
