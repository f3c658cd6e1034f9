package main

import (
	"github.com/spf13/cobra"

	"github.com/bft-labs/logship/internal/topology"
	"github.com/bft-labs/logship/pkg/log"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the topology until interrupted or its sources are exhausted",
	Args:  cobra.NoArgs,
	RunE:  runRun,
}

func init() {
	addRunFlags(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&cfg.Watch, "watch", cfg.Watch, "reload the topology when the file changes")
	cmd.Flags().BoolVar(&cfg.RequireHealthy, "require-healthy", cfg.RequireHealthy, "refuse to start when a sink healthcheck fails")
	cmd.Flags().DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "time sinks get to flush on shutdown")
}

func runRun(cmd *cobra.Command, args []string) error {
	logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	logger.Info("starting", log.String("topology", cfg.TopologyPath))
	err = topology.Serve(ctx, cfg.TopologyPath, registry, topology.ServeOptions{
		Logger:          logger,
		ShutdownTimeout: cfg.ShutdownTimeout,
		RequireHealthy:  cfg.RequireHealthy,
		Watch:           cfg.Watch,
	})
	if err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}
