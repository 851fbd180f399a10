package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/udisondev/bodysim/internal/script"
)

// Simulation holds all configuration for the bodysim process.
// Values come from defaults, then the YAML file, then BODYSIM_* env vars.
type Simulation struct {
	LogLevel string `yaml:"log_level" env:"BODYSIM_LOG_LEVEL"`

	// Simulation
	TicksPerSecond float64 `yaml:"ticks_per_second" env:"BODYSIM_TICKS_PER_SECOND"`
	Mode           string  `yaml:"mode" env:"BODYSIM_MODE"`                   // authoritative | predictive
	ScriptEngine   string  `yaml:"script_engine" env:"BODYSIM_SCRIPT_ENGINE"` // cel | lua

	// Data files
	Data DataPaths `yaml:"data" envPrefix:"BODYSIM_DATA_"`

	// Boards
	Boards            int    `yaml:"boards" env:"BODYSIM_BOARDS"`
	CreaturesPerBoard int    `yaml:"creatures_per_board" env:"BODYSIM_CREATURES_PER_BOARD"`
	Template          string `yaml:"template" env:"BODYSIM_TEMPLATE"`

	// Persistence
	SnapshotInterval time.Duration  `yaml:"snapshot_interval" env:"BODYSIM_SNAPSHOT_INTERVAL"`
	Database         DatabaseConfig `yaml:"database" envPrefix:"BODYSIM_DATABASE_"`
}

// DataPaths locates the data files.
type DataPaths struct {
	InjuryTypes string `yaml:"injury_types" env:"INJURY_TYPES"`
	DamageTypes string `yaml:"damage_types" env:"DAMAGE_TYPES"`
	Templates   string `yaml:"templates" env:"TEMPLATES"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
// A non-empty URL takes precedence over the individual fields.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	URL      string `yaml:"url" env:"URL"`
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	DBName   string `yaml:"dbname" env:"DBNAME"`
	SSLMode  string `yaml:"sslmode" env:"SSLMODE"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// DefaultSimulation returns Simulation config with sensible defaults.
func DefaultSimulation() Simulation {
	return Simulation{
		LogLevel:          "info",
		TicksPerSecond:    10,
		Mode:              script.Authoritative.String(),
		ScriptEngine:      script.EngineCEL,
		Boards:            1,
		CreaturesPerBoard: 10,
		Template:          "humanoid",
		SnapshotInterval:  30 * time.Second,
		Data: DataPaths{
			InjuryTypes: "data/injury_types.yaml",
			DamageTypes: "data/damage_types.yaml",
			Templates:   "data/templates",
		},
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "bodysim",
			Password: "bodysim",
			DBName:   "bodysim",
			SSLMode:  "disable",
		},
	}
}

// LoadSimulation loads config from a YAML file and applies env overrides.
// If the file doesn't exist, defaults are used.
func LoadSimulation(path string) (Simulation, error) {
	cfg := DefaultSimulation()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges and enums.
func (c Simulation) Validate() error {
	var errs []error
	if c.TicksPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("ticks_per_second must be positive, got %v", c.TicksPerSecond))
	}
	if _, err := script.ParseMode(c.Mode); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.ScriptEngine) {
	case script.EngineCEL, script.EngineLua:
	default:
		errs = append(errs, fmt.Errorf("unknown script_engine %q", c.ScriptEngine))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Boards < 1 {
		errs = append(errs, fmt.Errorf("boards must be at least 1, got %d", c.Boards))
	}
	if c.CreaturesPerBoard < 0 {
		errs = append(errs, fmt.Errorf("creatures_per_board must not be negative, got %d", c.CreaturesPerBoard))
	}
	return errors.Join(errs...)
}

// SimMode returns the parsed simulation mode.
func (c Simulation) SimMode() script.Mode {
	m, err := script.ParseMode(c.Mode)
	if err != nil {
		return script.Authoritative
	}
	return m
}

// SlogLevel parses LogLevel.
func (c Simulation) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
