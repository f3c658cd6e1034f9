package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (LOGSHIP_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("topology", os.Getenv("LOGSHIP_TOPOLOGY"), &cfg.TopologyPath)
	s.setString("log-level", os.Getenv("LOGSHIP_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv("LOGSHIP_LOG_FORMAT"), &cfg.LogFormat)
	s.setBoolFromString("watch", os.Getenv("LOGSHIP_WATCH"), &cfg.Watch)
	s.setBoolFromString("require-healthy", os.Getenv("LOGSHIP_REQUIRE_HEALTHY"), &cfg.RequireHealthy)

	return s.setDuration("shutdown-timeout", os.Getenv("LOGSHIP_SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout)
}
