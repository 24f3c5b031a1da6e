// Package config loads service configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv fills target's env-tagged fields from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
