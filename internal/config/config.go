// Package config loads host settings from the environment and the typed
// plugin option table from a TOML document.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var ErrInvalidSettings = errors.New("config: invalid settings")

// Database drivers accepted in Settings.DatabaseDriver.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Settings are the host-level knobs read from COMMONS_* variables.
type Settings struct {
	PluginName   string  `env:"COMMONS_PLUGIN_NAME" envDefault:"Commons"`
	ConfigPath   string  `env:"COMMONS_CONFIG_PATH" envDefault:"commonsctl.toml"`
	Language     string  `env:"COMMONS_LANGUAGE" envDefault:"en-US"`
	DBDriver     string  `env:"COMMONS_DB_DRIVER" envDefault:"none"`
	DBPath       string  `env:"COMMONS_DB_PATH" envDefault:"commons.db"`
	DBHost       string  `env:"COMMONS_DB_HOST" envDefault:"localhost"`
	DBPort       int     `env:"COMMONS_DB_PORT" envDefault:"5432"`
	DBName       string  `env:"COMMONS_DB_NAME" envDefault:"commons"`
	DBUser       string  `env:"COMMONS_DB_USER"`
	DBPassword   string  `env:"COMMONS_DB_PASSWORD"`
	DBDebug      bool    `env:"COMMONS_DB_DEBUG" envDefault:"false"`
	CommandRate  float64 `env:"COMMONS_COMMAND_RATE" envDefault:"0"`
	CommandBurst int     `env:"COMMONS_COMMAND_BURST" envDefault:"5"`
}

// LoadDotEnv loads KEY=VALUE pairs from paths (default ".env") into the
// process environment. Missing files are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	present := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			present = append(present, p)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("load dotenv: %w", err)
	}
	return nil
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadSettings parses and validates Settings from the environment.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := ParseEnv(&s); err != nil {
		return Settings{}, err
	}
	s.DBDriver = strings.ToLower(strings.TrimSpace(s.DBDriver))
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	if strings.TrimSpace(s.PluginName) == "" {
		return fmt.Errorf("%w: plugin name is required", ErrInvalidSettings)
	}
	switch s.DBDriver {
	case DriverNone, DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrInvalidSettings, s.DBDriver)
	}
	if s.DBDriver == DriverSQLite && strings.TrimSpace(s.DBPath) == "" {
		return fmt.Errorf("%w: sqlite requires a database path", ErrInvalidSettings)
	}
	if s.CommandRate < 0 {
		return fmt.Errorf("%w: command rate must be non-negative", ErrInvalidSettings)
	}
	if s.CommandRate > 0 && s.CommandBurst < 1 {
		return fmt.Errorf("%w: command burst must be at least 1", ErrInvalidSettings)
	}
	return nil
}

// UsesDatabase reports whether a database driver is configured.
func (s Settings) UsesDatabase() bool {
	return s.DBDriver != "" && s.DBDriver != DriverNone
}
