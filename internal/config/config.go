// Package config provides configuration loading for the chkconf CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/canonica-labs/chkconf/internal/engine"
	"github.com/canonica-labs/chkconf/internal/flags"
	"github.com/canonica-labs/chkconf/internal/platform"
)

// Config holds the application configuration.
type Config struct {
	// RuleSet is a definition file path or "builtin:<name>"
	RuleSet string `mapstructure:"ruleset"`

	// Platforms to resolve when none is given on the command line
	Platforms []string `mapstructure:"platforms"`

	// Mode is the conflict mode: auto-correct or strict
	Mode string `mapstructure:"mode"`

	// MaxPasses overrides the pass bound when positive
	MaxPasses int `mapstructure:"max_passes"`

	// Overrides are explicit NAME=VALUE settings applied before every
	// resolution. A list keeps flag names case-sensitive.
	Overrides []string `mapstructure:"overrides"`

	// Output configuration
	Output OutputConfig `mapstructure:"output"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`

	// Store configuration for resolution reports
	Store StoreConfig `mapstructure:"store"`
}

// OutputConfig holds output rendering configuration.
type OutputConfig struct {
	Format string `mapstructure:"format"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StoreConfig holds report storage configuration.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
}

// Output formats.
const (
	FormatTable  = "table"
	FormatJSON   = "json"
	FormatYAML   = "yaml"
	FormatHeader = "header"
	FormatEnv    = "env"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Formats returns the valid output formats.
func Formats() []string {
	return []string{FormatTable, FormatJSON, FormatYAML, FormatHeader, FormatEnv}
}

// Drivers returns the valid store drivers.
func Drivers() []string {
	return []string{DriverSQLite, DriverPostgres}
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		RuleSet:   "builtin:wxwidgets",
		Platforms: []string{string(platform.Base)},
		Mode:      string(engine.ModeAutoCorrect),
		Output: OutputConfig{
			Format: FormatTable,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Store: StoreConfig{
			Enabled: false,
			Driver:  DriverSQLite,
			DSN:     defaultDSN(),
		},
	}
}

// Load loads configuration from file and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		if dir := configDir(); dir != "" {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Environment variables: CHKCONF_MODE, CHKCONF_STORE_DSN, ...
	v.SetEnvPrefix("CHKCONF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// Config file is optional unless named explicitly
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	// Unmarshal
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	return &cfg, nil
}

// ConfigFileUsed reports the config file Load would read, or "" if none
// exists in the default locations.
func ConfigFileUsed(configPath string) string {
	if configPath != "" {
		return configPath
	}
	for _, dir := range []string{configDir(), "."} {
		if dir == "" {
			continue
		}
		p := filepath.Join(dir, "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	if _, err := engine.ParseMode(c.Mode); err != nil {
		return err
	}
	for _, p := range c.Platforms {
		if _, err := platform.Parse(p); err != nil {
			return err
		}
	}
	if !contains(Formats(), c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (valid: %s)", c.Output.Format, strings.Join(Formats(), ", "))
	}
	for _, o := range c.Overrides {
		if _, _, err := flags.ParseAssignment(o); err != nil {
			return err
		}
	}
	if c.MaxPasses < 0 {
		return fmt.Errorf("invalid max_passes: %d (must be zero or positive)", c.MaxPasses)
	}
	if c.Store.Enabled {
		if !contains(Drivers(), c.Store.Driver) {
			return fmt.Errorf("invalid store driver: %s (valid: %s)", c.Store.Driver, strings.Join(Drivers(), ", "))
		}
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required when the store is enabled")
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("ruleset", d.RuleSet)
	v.SetDefault("platforms", d.Platforms)
	v.SetDefault("mode", d.Mode)
	v.SetDefault("max_passes", 0)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("store.enabled", d.Store.Enabled)
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", d.Store.DSN)
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".chkconf")
}

func defaultDSN() string {
	if dir := configDir(); dir != "" {
		return filepath.Join(dir, "reports.db")
	}
	return "chkconf-reports.db"
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
