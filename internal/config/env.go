package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ApplyEnv overrides settings from SEEDBOT_* environment variables. Fields
// whose variable is unset keep their current value.
func ApplyEnv(s *Settings) error {
	if err := env.Parse(s); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
