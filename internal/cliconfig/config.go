package cliconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/bft-labs/logship/pkg/lifecycle"
	"github.com/bft-labs/logship/pkg/log"
)

// DefaultTopologyPath is used when neither a flag, the environment nor the
// CLI config file names a topology.
const DefaultTopologyPath = "logship.toml"

// Config holds CLI configuration for logship.
type Config struct {
	TopologyPath string

	LogLevel  string
	LogFormat string

	Watch           bool
	RequireHealthy  bool
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		TopologyPath:    DefaultTopologyPath,
		LogLevel:        "info",
		LogFormat:       log.FormatConsole,
		ShutdownTimeout: lifecycle.ShutdownTimeout,
	}
}

// Validate checks the configuration for errors and normalizes names.
func (c *Config) Validate() error {
	if c.TopologyPath == "" {
		return fmt.Errorf("topology path is required")
	}

	c.LogLevel = strings.ToLower(c.LogLevel)
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}

	c.LogFormat = strings.ToLower(c.LogFormat)
	switch c.LogFormat {
	case log.FormatConsole, log.FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
