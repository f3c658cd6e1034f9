package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig is the optional CLI config file. Durations are strings to
// keep the TOML readable.
type FileConfig struct {
	Topology        string `toml:"topology"`
	LogLevel        string `toml:"log_level"`
	LogFormat       string `toml:"log_format"`
	Watch           *bool  `toml:"watch"`
	RequireHealthy  *bool  `toml:"require_healthy"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.logship/config.toml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".logship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("topology", fc.Topology, &cfg.TopologyPath)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)
	s.setBool("watch", fc.Watch, &cfg.Watch)
	s.setBool("require-healthy", fc.RequireHealthy, &cfg.RequireHealthy)

	return s.setDuration("shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout)
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
