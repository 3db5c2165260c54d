package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"jordanella.com/seed-finder-go/internal/bot"
)

// LoadProfile resolves a profile reference. A built-in name ("evaluator",
// "finder") returns the default profile unless dir holds <name>.yaml; any
// other value is read as a YAML file path, then as <dir>/<name>.yaml.
func LoadProfile(ref, dir string) (*bot.Profile, error) {
	candidates := []string{ref}
	if !strings.HasSuffix(ref, ".yaml") && !strings.HasSuffix(ref, ".yml") {
		candidates = []string{filepath.Join(dir, ref+".yaml"), filepath.Join(dir, ref+".yml")}
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return LoadProfileFile(path)
		}
	}

	var profile *bot.Profile
	switch ref {
	case bot.StrategyEvaluator:
		profile = bot.DefaultEvaluatorProfile()
	case bot.StrategyFinder:
		profile = bot.DefaultFinderProfile()
	default:
		return nil, fmt.Errorf("profile %q not found in %s", ref, dir)
	}
	return profile, profile.Validate()
}

// LoadProfileFile reads one YAML profile, fills defaults for its strategy and
// validates it
func LoadProfileFile(path string) (*bot.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var profile bot.Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}

	if profile.Name == "" {
		profile.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	profile.ApplyDefaults()

	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &profile, nil
}

// SaveProfile writes a profile as YAML
func SaveProfile(profile *bot.Profile, path string) error {
	data, err := yaml.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}
