package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"jordanella.com/seed-finder-go/internal/bridge"
	"jordanella.com/seed-finder-go/internal/logging"
	"jordanella.com/seed-finder-go/internal/macro"
)

func newRecordCommand(opts *rootOptions) *cobra.Command {
	var (
		duration time.Duration
		output   string
		hz       int
	)

	cmd := &cobra.Command{
		Use:   "record <name>",
		Short: "Record a macro from the physical controller",
		Long: `Sample the controller the helper is reading at a fixed rate until
interrupted (Ctrl+C) or the duration elapses, then add the recording to the
macro file. The raw samples are kept next to the translated entries.

Example:
  seedbot record enter_briefing --duration 12s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = opts.settings.MacroFile
			}
			if hz <= 0 {
				hz = opts.settings.SampleRateHz
			}
			return runRecord(cmd.Context(), opts, args[0], output, hz, duration)
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long (0 records until Ctrl+C)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "macro file to add the recording to")
	cmd.Flags().IntVar(&hz, "hz", 0, "sample rate (defaults to the configured rate)")
	return cmd
}

func runRecord(ctx context.Context, opts *rootOptions, name, output string, hz int, duration time.Duration) error {
	logger := logging.NewLogger("Record")

	if opts.DryRun != "" {
		return errors.New("record needs the helper; --dry-run has no controller to sample")
	}

	lib, err := macro.LoadLibrary(output)
	if errors.Is(err, fs.ErrNotExist) {
		lib = macro.NewLibrary()
	} else if err != nil {
		return err
	}

	helper, err := bridge.StartHelper(opts.settings.HelperPath)
	if err != nil {
		return err
	}
	defer helper.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	src, err := macro.NewRecorder(helper, hz).Record(ctx, name)
	if err != nil {
		return err
	}
	if len(src.Entries) == 0 {
		return fmt.Errorf("recording %s captured no samples", name)
	}
	if lib.HasSource(name) {
		logger.Warn(fmt.Sprintf("Replacing the existing recording of %s", name))
	}
	if err := lib.AddSource(src); err != nil {
		return err
	}
	if err := lib.Save(output); err != nil {
		return err
	}

	rec, _ := lib.Get(name)
	logger.InfoWithContext("Recording saved", map[string]interface{}{
		"name":     name,
		"entries":  len(rec.Entries),
		"duration": rec.Duration().String(),
		"file":     output,
	})
	return nil
}
