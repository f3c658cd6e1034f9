package cliconfig

import (
	"os"

	"github.com/bft-labs/logship/pkg/log"
)

// NewLogger builds the process logger from cfg. Logs go to stderr so
// stdout stays free for the console sink.
func NewLogger(cfg Config) (*log.ZerologAdapter, error) {
	return log.New(log.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Out:    os.Stderr,
	})
}
