package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/logship"
	"github.com/bft-labs/logship/internal/cliconfig"
	"github.com/bft-labs/logship/internal/topology"
	"github.com/bft-labs/logship/pkg/log"
)

const longHelp = `
Ship log events from local sources to HTTP log intake APIs.

A topology file declares sources ([sources.<id>]) and sinks ([sinks.<id>])
and wires them with each sink's "inputs" list. Values may reference the
environment with ${VAR} or ${VAR:-default}.

Sink kinds: new_relic_logs, http, console. Run "logship sinks" for details.
`

var exampleUsage = strings.TrimSpace(`
  logship --topology /etc/logship/logship.toml
  NR_LICENSE_KEY=... logship run --watch
  logship validate --healthchecks
  logship describe new_relic
`)

var (
	cfg     = cliconfig.DefaultConfig()
	cfgPath string
)

var rootCmd = &cobra.Command{
	Use:           "logship",
	Short:         "Ship log events to HTTP log intake APIs",
	Long:          strings.TrimSpace(longHelp),
	Example:       exampleUsage,
	Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRun,
}

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "path to CLI config file (default: $HOME/.logship/config.toml)")
	pf.StringVarP(&cfg.TopologyPath, "topology", "t", cfg.TopologyPath, "path to the topology file")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	pf.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (console, json)")

	addRunFlags(rootCmd)
}

// loadConfig layers the CLI config file, then LOGSHIP_* variables, under
// any flag set explicitly on cmd, and returns the process logger.
func loadConfig(cmd *cobra.Command) (log.Logger, error) {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
			return nil, err
		}
	}

	if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := cliconfig.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("configuration",
		log.String("topology", cfg.TopologyPath),
		log.Bool("watch", cfg.Watch),
		log.Bool("require_healthy", cfg.RequireHealthy),
		log.Duration("shutdown_timeout", cfg.ShutdownTimeout),
	)
	return logger, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func main() {
	rootCmd.AddCommand(runCmd, validateCmd, describeCmd, sinksCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// registry is shared by every subcommand of one process.
var registry = logship.NewRegistry()

func loadTopology() (*topology.Topology, error) {
	return topology.Load(cfg.TopologyPath, registry)
}
