package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/banshee-data/assembly.report/internal/timeutil"
)

// Env holds the process-wide settings that may come from the environment.
// Command-line flags default to these values and win when given.
type Env struct {
	DBPath     string `env:"ASSEMBLY_DB_PATH"`
	Listen     string `env:"ASSEMBLY_LISTEN"     envDefault:":8080"`
	ConfigPath string `env:"ASSEMBLY_CONFIG"`
	LogLevel   string `env:"ASSEMBLY_LOG_LEVEL"  envDefault:"info"`
	Timezone   string `env:"ASSEMBLY_TIMEZONE"   envDefault:"UTC"`
}

// Debug reports whether debug logging was requested.
func (e Env) Debug() bool { return e.LogLevel == "debug" }

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadEnv parses Env from the process environment.
func LoadEnv() (Env, error) {
	var e Env
	if err := ParseEnv(&e); err != nil {
		return Env{}, err
	}
	switch e.LogLevel {
	case "debug", "info", "quiet":
	default:
		return Env{}, fmt.Errorf("ASSEMBLY_LOG_LEVEL must be debug, info or quiet, got %q", e.LogLevel)
	}
	if _, err := timeutil.LoadTimezone(e.Timezone); err != nil {
		return Env{}, fmt.Errorf("ASSEMBLY_TIMEZONE: %w", err)
	}
	return e, nil
}
