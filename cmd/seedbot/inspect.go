package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"jordanella.com/seed-finder-go/internal/database"
)

func newInspectCommand(opts *rootOptions) *cobra.Command {
	var (
		runID string
		area  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show recorded runs, attempts and catalog counts from the journal",
		Long: `Without flags, list the most recent runs and how many catalog entries
each area has. With --run, list the attempts of that run. With --area, list
the catalog entries recorded for that area ("all" for every area).

Example:
  seedbot inspect
  seedbot inspect --run 3f2b...
  seedbot inspect --area area_5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.Open(opts.settings.JournalFile)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.RunMigrations(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case runID != "":
				return printAttempts(out, db, runID)
			case area != "":
				return printCatalog(out, db, area)
			}
			return printSummary(out, db, limit)
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "list the attempts of this run")
	cmd.Flags().StringVar(&area, "area", "", `list the catalog entries of this area, or "all"`)
	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to list")
	return cmd
}

func printSummary(out io.Writer, db *database.DB, limit int) error {
	version, err := db.GetVersion()
	if err != nil {
		return err
	}
	stats, err := db.GetStats()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Journal %s (schema v%d): %d runs, %d attempts, %d catalog entries\n\n",
		db.Path(), version, stats["runs"], stats["attempts"], stats["catalog_entries"])

	runs, err := db.ListRuns(limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tMODE\tPROFILE\tSTARTED\tATTEMPTS\tRESULT")
	for _, run := range runs {
		result := "running"
		switch {
		case run.ErrorMessage != nil:
			result = *run.ErrorMessage
		case run.FinishedAt != nil:
			result = "ok"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			run.ID, run.Mode, run.Profile, run.StartedAt.Local().Format(time.DateTime), run.Attempts, result)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	counts, err := db.CountByArea()
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		return nil
	}

	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "AREA\tNEW ENTRIES")
	for _, area := range sortedKeys(counts) {
		fmt.Fprintf(tw, "%s\t%d\n", area, counts[area])
	}
	return tw.Flush()
}

func printAttempts(out io.Writer, db *database.DB, runID string) error {
	run, err := db.GetRun(runID)
	if err != nil {
		return err
	}
	attempts, err := db.ListAttempts(run.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Run %s (%s, %s)\n\n", run.ID, run.Mode, run.Profile)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ATTEMPT\tLAST STATE\tVERDICT\tREASON\tCHECKED\tPAUSED\tRESULT")
	for _, a := range attempts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%t\t%s\n",
			a.Attempt, a.LastState, a.Verdict, a.Reason, strings.Join(a.Checked, ","), a.Paused, a.Result)
	}
	return tw.Flush()
}

func printCatalog(out io.Writer, db *database.DB, area string) error {
	if area == "all" {
		area = ""
	}
	entries, err := db.ListCatalogEntries(area)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "AREA\tINDEX\tRUN\tATTEMPT\tADDED\tPATH")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\t%s\n",
			e.Area, e.Index, e.RunID, e.Attempt, e.AddedAt.Local().Format(time.DateTime), e.Path)
	}
	return tw.Flush()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
