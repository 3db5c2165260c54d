package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"jordanella.com/seed-finder-go/internal/bot"
	"jordanella.com/seed-finder-go/internal/config"
	"jordanella.com/seed-finder-go/internal/logging"
)

// rootOptions holds global flags for all commands
type rootOptions struct {
	ConfigPath string
	LogLevel   string
	Profile    string
	DryRun     string

	settings *config.Settings
	logFile  *os.File
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seedbot",
		Short: "Seed hunting and screen cataloging bot",
		Long: `seedbot drives repeated attempts at a deterministic mission, classifying
each screen and deciding whether to keep the current seed.

It talks to a helper process that owns window capture and the virtual pad.
Use --dry-run with an image file to exercise classification without one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "settings.ini", "path to settings file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override the configured log level")
	cmd.PersistentFlags().StringVarP(&opts.Profile, "profile", "p", "", "profile name or YAML path")
	cmd.PersistentFlags().StringVar(&opts.DryRun, "dry-run", "", "read frames from this image file and discard input")

	cmd.AddCommand(newEvaluateCommand(opts))
	cmd.AddCommand(newFindCommand(opts))
	cmd.AddCommand(newCatalogCommand(opts))
	cmd.AddCommand(newRecordCommand(opts))
	cmd.AddCommand(newConvertCommand(opts))
	cmd.AddCommand(newInspectCommand(opts))

	return cmd
}

// execute runs the command line. The log file is flushed and closed on
// every exit path, with failures other than an operator stop written to it.
func execute(args []string) error {
	opts := &rootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err != nil && !errors.Is(err, bot.ErrTerminated) && opts.settings != nil {
		logging.NewLogger("Main").Fatal("Run failed", err)
	}
	if closeErr := opts.closeLog(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// load reads settings and configures logging
func (o *rootOptions) load() error {
	settings, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	if o.LogLevel != "" {
		settings.LogLevel = o.LogLevel
	}
	if o.Profile != "" {
		settings.Profile = o.Profile
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings in %s: %w", o.ConfigPath, err)
	}
	o.settings = settings

	outputs := []io.Writer{os.Stderr}
	if settings.LoggingEnabled && settings.LogDir != "" {
		if err := os.MkdirAll(settings.LogDir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(settings.LogDir, "seedbot.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		o.logFile = f
		outputs = append(outputs, f)
	}
	logging.Configure(logging.ParseLevel(settings.LogLevel), outputs...)
	return nil
}

func (o *rootOptions) closeLog() error {
	_ = logging.Sync()
	if o.logFile == nil {
		return nil
	}
	err := o.logFile.Close()
	o.logFile = nil
	return err
}
