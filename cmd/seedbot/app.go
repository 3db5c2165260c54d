package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"jordanella.com/seed-finder-go/internal/bot"
	"jordanella.com/seed-finder-go/internal/bridge"
	"jordanella.com/seed-finder-go/internal/config"
	"jordanella.com/seed-finder-go/internal/cv"
	"jordanella.com/seed-finder-go/internal/database"
	"jordanella.com/seed-finder-go/internal/events"
	"jordanella.com/seed-finder-go/internal/logging"
	"jordanella.com/seed-finder-go/internal/macro"
	"jordanella.com/seed-finder-go/internal/operator"
	"jordanella.com/seed-finder-go/pkg/templates"
)

// device is what macros play into and what the driver resets
type device interface {
	macro.Device
	bot.Resetter
}

// session wires the collaborators shared by the run commands
type session struct {
	mode     string
	runID    string
	settings *config.Settings
	logger   *logging.Logger

	bus         *events.DefaultEventBus
	eventLogger *logging.EventLogger
	db          *database.DB
	journal     *database.Journal

	helper     *bridge.Controller
	device     device
	vision     *cv.Service
	engine     *macro.Engine
	operator   *operator.Terminal
	interrupts *bot.InterruptController
	stopWatch  func()
}

func newSession(ctx context.Context, opts *rootOptions, mode string) (s *session, err error) {
	s = &session{
		mode:       mode,
		runID:      uuid.NewString(),
		settings:   opts.settings,
		logger:     logging.NewLogger("Session"),
		bus:        events.NewEventBus(256),
		operator:   operator.NewStdioTerminal(),
		interrupts: bot.NewInterruptController(),
	}
	defer func() {
		if err != nil {
			s.Close()
			s = nil
		}
	}()

	settings := s.settings

	s.bus.SetPanicHandler(func(eventType events.EventType, recovered interface{}) {
		s.logger.ErrorWithContext("Event handler panicked", fmt.Errorf("%v", recovered), map[string]interface{}{
			"event": string(eventType),
		})
	})

	if settings.EventLog && settings.LogDir != "" {
		s.eventLogger, err = logging.NewEventLogger(s.bus, settings.LogDir)
		if err != nil {
			return s, err
		}
	}

	if settings.JournalFile != "" {
		s.db, err = database.Open(settings.JournalFile)
		if err != nil {
			return s, err
		}
		if err = s.db.RunMigrations(); err != nil {
			return s, fmt.Errorf("failed to migrate journal: %w", err)
		}
		s.journal = database.NewJournal(s.db, s.bus, s.runID)
	}

	var capturer cv.Capturer
	if opts.DryRun != "" {
		capturer = cv.NewFileCapturer(opts.DryRun)
		s.device = &dryDevice{logger: logging.NewLogger("DryRun")}
	} else {
		s.helper, err = bridge.StartHelper(settings.HelperPath)
		if err != nil {
			return s, err
		}
		capturer = s.helper
		s.device = s.helper
	}
	s.vision = cv.NewService(capturer, settings.TitleBarHeight)

	if err = s.loadMacros(ctx); err != nil {
		return s, err
	}

	if settings.InterruptOnSig {
		s.stopWatch = s.interrupts.Watch(ctx, os.Interrupt)
	}

	s.logger.InfoWithContext("Session ready", map[string]interface{}{
		"mode":    mode,
		"run_id":  s.runID,
		"dry_run": opts.DryRun != "",
	})
	return s, nil
}

func (s *session) loadMacros(ctx context.Context) error {
	lib, err := macro.LoadLibrary(s.settings.MacroFile)
	if err != nil {
		return err
	}

	s.engine = macro.NewEngine(lib, macro.NewPlayer(s.device))
	s.engine.SetEventBus(s.bus)

	if !s.settings.Verify {
		return nil
	}

	markers, err := templates.LoadMarkers(ctx, s.settings.MarkerDir)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.WarnWithContext("No marker directory, macro verification disabled", map[string]interface{}{
			"dir": s.settings.MarkerDir,
		})
		return nil
	}
	if err != nil {
		return err
	}
	s.engine.EnableVerification(s.vision, markers, s.settings.VerifyThreshold)
	return nil
}

// requireMacros fails early when the macro file lacks a name the run needs
func (s *session) requireMacros(names ...string) error {
	var missing []string
	for _, name := range names {
		if !s.engine.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("macro file %s is missing: %s", s.settings.MacroFile, strings.Join(missing, ", "))
	}
	return nil
}

func (s *session) started(profile string) {
	s.bus.Publish(events.NewRunStartedEvent(s.runID, s.mode, profile))
}

func (s *session) finished(attempts int, runErr error) {
	s.bus.Publish(events.NewRunFinishedEvent(s.runID, attempts, runErr))
}

// Close releases everything the session opened, in reverse order
func (s *session) Close() {
	if s.stopWatch != nil {
		s.stopWatch()
		s.logger.DebugWithContext("Signal watch stopped", map[string]interface{}{
			"interrupts": s.interrupts.Total(),
		})
	}
	if s.helper != nil {
		if err := s.helper.Close(); err != nil {
			s.logger.Error("Failed to stop helper", err)
		}
	}

	// Drain queued events before closing their subscribers
	s.bus.Stop()
	stats := s.bus.Stats()
	s.logger.DebugWithContext("Event bus stopped", map[string]interface{}{
		"delivered": stats.Delivered,
		"dropped":   stats.Dropped,
		"panics":    stats.Panics,
	})

	if s.journal != nil {
		if failed := s.journal.Failures(); failed > 0 {
			s.logger.WarnWithContext("Journal missed events", map[string]interface{}{
				"failed": failed,
			})
		}
		s.journal.Close()
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close journal", err)
		}
	}
	if s.eventLogger != nil {
		if err := s.eventLogger.Close(); err != nil {
			s.logger.Error("Failed to close event log", err)
		}
	}
}

// dryDevice accepts frames without sending them anywhere
type dryDevice struct {
	logger  *logging.Logger
	commits int
}

func (d *dryDevice) SetPendingFrame(macro.Frame) error { return nil }

func (d *dryDevice) Commit() error {
	d.commits++
	return nil
}

func (d *dryDevice) Reset() error {
	d.logger.DebugWithContext("Reset", map[string]interface{}{"commits": d.commits})
	d.commits = 0
	return nil
}

// cancelSignals lists the signals that cancel a run outright. SIGINT joins
// them when it is not turned into an operator prompt, so the driver still
// resets the device before the process exits.
func cancelSignals(settings *config.Settings) []os.Signal {
	if settings.InterruptOnSig {
		return []os.Signal{syscall.SIGTERM}
	}
	return []os.Signal{syscall.SIGTERM, os.Interrupt}
}

// loadAssets loads the screen templates with the state vocabulary
func loadAssets(ctx context.Context, dir string) (*templates.Store, error) {
	return templates.Load(ctx, dir, templates.Options{StateTokens: bot.StateTokens()})
}
