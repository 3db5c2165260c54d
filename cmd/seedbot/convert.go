package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jordanella.com/seed-finder-go/internal/macro"
)

func newConvertCommand(_ *rootOptions) *cobra.Command {
	var stripSource bool

	cmd := &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "Translate raw controller recordings into playable macros",
		Long: `Read a macro file whose recordings hold raw controller samples
(source_entries), translate each one to virtual pad frames and write the
result. Macros that already have entries are copied unchanged.

Example:
  seedbot convert recordings.yaml macros.yaml --strip-source`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := macro.LoadLibrary(args[0])
			if err != nil {
				return err
			}
			if stripSource {
				lib.DropSources()
			}
			if err := lib.Save(args[1]); err != nil {
				return err
			}

			for _, name := range lib.Names() {
				rec, _ := lib.Get(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%-40s %5d entries  %v\n", name, len(rec.Entries), rec.Duration())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&stripSource, "strip-source", false, "drop raw samples from the output")
	return cmd
}
