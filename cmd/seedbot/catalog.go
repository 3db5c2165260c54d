package main

import (
	"os/signal"

	"github.com/spf13/cobra"

	"jordanella.com/seed-finder-go/internal/cv"
	"jordanella.com/seed-finder-go/internal/ledger"
	"jordanella.com/seed-finder-go/internal/logging"
)

func newCatalogCommand(opts *rootOptions) *cobra.Command {
	var maxAttempts int

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Catalog every distinct screen seen per area across many attempts",
		Long: `Play the fixed setup and exploration macros for each attempt, compare the
screen of every explored area against the history directory and save the
ones never seen before. Each completed attempt appends a row of catalog
indices to the results table.

Example:
  seedbot catalog --max-attempts 500`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("max-attempts") {
				opts.settings.MaxAttempts = maxAttempts
			}
			return runCatalog(cmd, opts)
		},
	}
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "stop after this many attempts (0 runs until stopped)")
	return cmd
}

func runCatalog(cmd *cobra.Command, opts *rootOptions) (err error) {
	settings := opts.settings
	logger := logging.NewLogger("Run")

	ctx, stop := signal.NotifyContext(cmd.Context(), cancelSignals(opts.settings)...)
	defer stop()

	catalog, err := ledger.LoadCatalog(ctx, settings.HistoryDir, settings.Areas)
	if err != nil {
		return err
	}

	s, err := newSession(ctx, opts, cmd.Name())
	if err != nil {
		return err
	}
	defer s.Close()

	needed := append([]string(nil), ledger.DefaultSetupMacros...)
	for _, area := range settings.ExploreOrder {
		needed = append(needed, ledger.ExploreMacro(area))
	}
	if err := s.requireMacros(needed...); err != nil {
		return err
	}

	results := ledger.NewResultsTable(settings.ResultsFile, settings.Areas, s.operator)
	l := ledger.New(catalog, results, cv.ScorerFunc(cv.Score), settings.DedupThreshold)
	l.SetEventBus(s.bus)

	runner, err := ledger.NewRunner(ledger.RunnerConfig{
		Ledger:       l,
		Macros:       s.engine,
		Frames:       s.vision,
		Device:       s.device,
		Operator:     s.operator,
		Interrupter:  s.interrupts,
		EventBus:     s.bus,
		ExploreOrder: settings.ExploreOrder,
		MaxAttempts:  settings.MaxAttempts,
	})
	if err != nil {
		return err
	}

	next := make(map[string]int)
	for _, area := range catalog.Areas() {
		next[area] = catalog.NextIndex(area)
	}
	logger.InfoWithContext("Starting catalog run", map[string]interface{}{
		"history":    settings.HistoryDir,
		"entries":    catalog.Len(),
		"next_index": next,
		"mistakes":   len(catalog.Mistakes()),
		"results":    results.Path(),
	})

	s.started("ledger")
	defer func() {
		s.finished(runner.Attempts(), err)
		logger.InfoWithContext("Catalog run finished", map[string]interface{}{
			"attempts": runner.Attempts(),
			"logged":   runner.Logged(),
			"rows":     results.Written(),
			"entries":  catalog.Len(),
		})
	}()

	return runner.Run(ctx)
}
