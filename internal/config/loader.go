package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

// Settings is the contents of settings.ini after env overrides
type Settings struct {
	// [Bot]
	Profile        string `env:"SEEDBOT_PROFILE"`
	TitleBarHeight int    `env:"SEEDBOT_TITLE_BAR_HEIGHT"`
	MaxAttempts    int    `env:"SEEDBOT_MAX_ATTEMPTS"`
	InterruptOnSig bool   `env:"SEEDBOT_INTERRUPT_ON_SIGNAL"`

	// [Paths]
	AssetsDir   string `env:"SEEDBOT_ASSETS_DIR"`
	MarkerDir   string `env:"SEEDBOT_MARKER_DIR"`
	MacroFile   string `env:"SEEDBOT_MACRO_FILE"`
	ProfileDir  string `env:"SEEDBOT_PROFILE_DIR"`
	HistoryDir  string `env:"SEEDBOT_HISTORY_DIR"`
	ResultsFile string `env:"SEEDBOT_RESULTS_FILE"`
	JournalFile string `env:"SEEDBOT_JOURNAL_FILE"`
	HelperPath  string `env:"SEEDBOT_HELPER_PATH"`

	// [Macro]
	SampleRateHz    int     `env:"SEEDBOT_SAMPLE_RATE_HZ"`
	Verify          bool    `env:"SEEDBOT_VERIFY_MACROS"`
	VerifyThreshold float64 `env:"SEEDBOT_VERIFY_THRESHOLD"`

	// [Ledger]
	DedupThreshold float64  `env:"SEEDBOT_DEDUP_THRESHOLD"`
	Areas          []string `env:"SEEDBOT_AREAS" envSeparator:","`
	ExploreOrder   []string `env:"SEEDBOT_EXPLORE_ORDER" envSeparator:","`

	// [Logging]
	LogLevel       string `env:"SEEDBOT_LOG_LEVEL"`
	LoggingEnabled bool   `env:"SEEDBOT_LOGGING_ENABLED"`
	LogDir         string `env:"SEEDBOT_LOG_DIR"`
	EventLog       bool   `env:"SEEDBOT_EVENT_LOG"`
}

// NewDefaultSettings creates settings with default values
func NewDefaultSettings() *Settings {
	return &Settings{
		Profile:         "evaluator",
		InterruptOnSig:  true,
		AssetsDir:       "assets",
		MarkerDir:       "assets/markers",
		MacroFile:       "macros.yaml",
		ProfileDir:      "profiles",
		HistoryDir:      "history",
		ResultsFile:     "results.csv",
		JournalFile:     "seedbot.db",
		SampleRateHz:    120,
		Verify:          true,
		VerifyThreshold: 0.99,
		DedupThreshold:  0.99,
		Areas:           []string{"area_2", "area_3", "area_4", "area_5"},
		ExploreOrder:    []string{"area_5", "area_4", "area_2", "area_3"},
		LogLevel:        "INFO",
		LoggingEnabled:  true,
		LogDir:          "logs",
		EventLog:        true,
	}
}

// Load reads settings.ini and applies SEEDBOT_* overrides. A missing file
// yields the defaults.
func Load(path string) (*Settings, error) {
	var settings *Settings

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		settings = NewDefaultSettings()
	} else {
		settings, err = LoadFromINI(path)
		if err != nil {
			return nil, err
		}
	}

	if err := ApplyEnv(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// LoadFromINI loads settings from an INI file
func LoadFromINI(path string) (*Settings, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	def := NewDefaultSettings()
	s := &Settings{}

	b := cfg.Section("Bot")
	s.Profile = b.Key("profile").MustString(def.Profile)
	s.TitleBarHeight = b.Key("titleBarHeight").MustInt(def.TitleBarHeight)
	s.MaxAttempts = b.Key("maxAttempts").MustInt(def.MaxAttempts)
	s.InterruptOnSig = b.Key("interruptOnSignal").MustBool(def.InterruptOnSig)

	p := cfg.Section("Paths")
	s.AssetsDir = p.Key("assets").MustString(def.AssetsDir)
	s.MarkerDir = p.Key("markers").MustString(def.MarkerDir)
	s.MacroFile = p.Key("macros").MustString(def.MacroFile)
	s.ProfileDir = p.Key("profiles").MustString(def.ProfileDir)
	s.HistoryDir = p.Key("history").MustString(def.HistoryDir)
	s.ResultsFile = p.Key("results").MustString(def.ResultsFile)
	s.JournalFile = p.Key("journal").MustString(def.JournalFile)
	s.HelperPath = p.Key("helperPath").MustString(def.HelperPath)

	m := cfg.Section("Macro")
	s.SampleRateHz = m.Key("sampleRateHz").MustInt(def.SampleRateHz)
	s.Verify = m.Key("verify").MustBool(def.Verify)
	s.VerifyThreshold = m.Key("verifyThreshold").MustFloat64(def.VerifyThreshold)

	l := cfg.Section("Ledger")
	s.DedupThreshold = l.Key("dedupThreshold").MustFloat64(def.DedupThreshold)
	s.Areas = splitList(l.Key("areas").String(), def.Areas)
	s.ExploreOrder = splitList(l.Key("exploreOrder").String(), def.ExploreOrder)

	g := cfg.Section("Logging")
	s.LogLevel = g.Key("logLevel").MustString(def.LogLevel)
	s.LoggingEnabled = g.Key("loggingEnabled").MustBool(def.LoggingEnabled)
	s.LogDir = g.Key("logDir").MustString(def.LogDir)
	s.EventLog = g.Key("eventLog").MustBool(def.EventLog)

	return s, nil
}

// SaveToINI writes settings to an INI file
func SaveToINI(s *Settings, path string) error {
	cfg := ini.Empty()

	b := cfg.Section("Bot")
	b.Key("profile").SetValue(s.Profile)
	b.Key("titleBarHeight").SetValue(fmt.Sprintf("%d", s.TitleBarHeight))
	b.Key("maxAttempts").SetValue(fmt.Sprintf("%d", s.MaxAttempts))
	b.Key("interruptOnSignal").SetValue(fmt.Sprintf("%t", s.InterruptOnSig))

	p := cfg.Section("Paths")
	p.Key("assets").SetValue(s.AssetsDir)
	p.Key("markers").SetValue(s.MarkerDir)
	p.Key("macros").SetValue(s.MacroFile)
	p.Key("profiles").SetValue(s.ProfileDir)
	p.Key("history").SetValue(s.HistoryDir)
	p.Key("results").SetValue(s.ResultsFile)
	p.Key("journal").SetValue(s.JournalFile)
	p.Key("helperPath").SetValue(s.HelperPath)

	m := cfg.Section("Macro")
	m.Key("sampleRateHz").SetValue(fmt.Sprintf("%d", s.SampleRateHz))
	m.Key("verify").SetValue(fmt.Sprintf("%t", s.Verify))
	m.Key("verifyThreshold").SetValue(fmt.Sprintf("%g", s.VerifyThreshold))

	l := cfg.Section("Ledger")
	l.Key("dedupThreshold").SetValue(fmt.Sprintf("%g", s.DedupThreshold))
	l.Key("areas").SetValue(strings.Join(s.Areas, ","))
	l.Key("exploreOrder").SetValue(strings.Join(s.ExploreOrder, ","))

	g := cfg.Section("Logging")
	g.Key("logLevel").SetValue(s.LogLevel)
	g.Key("loggingEnabled").SetValue(fmt.Sprintf("%t", s.LoggingEnabled))
	g.Key("logDir").SetValue(s.LogDir)
	g.Key("eventLog").SetValue(fmt.Sprintf("%t", s.EventLog))

	return cfg.SaveTo(path)
}

// Validate checks ranges that would otherwise fail deep inside a run
func (s *Settings) Validate() error {
	var errs []error
	for name, v := range map[string]float64{
		"verifyThreshold": s.VerifyThreshold,
		"dedupThreshold":  s.DedupThreshold,
	} {
		if v <= 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be in (0,1], got %v", name, v))
		}
	}
	if s.SampleRateHz <= 0 {
		errs = append(errs, fmt.Errorf("sampleRateHz must be positive, got %d", s.SampleRateHz))
	}
	if s.TitleBarHeight < 0 {
		errs = append(errs, fmt.Errorf("titleBarHeight must not be negative, got %d", s.TitleBarHeight))
	}
	if s.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("maxAttempts must not be negative, got %d", s.MaxAttempts))
	}
	if len(s.Areas) == 0 {
		errs = append(errs, errors.New("areas must not be empty"))
	}
	return errors.Join(errs...)
}

func splitList(raw string, fallback []string) []string {
	if strings.TrimSpace(raw) == "" {
		return append([]string(nil), fallback...)
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
