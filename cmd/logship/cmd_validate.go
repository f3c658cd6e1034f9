package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and build every sink without sending data",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().Bool("healthchecks", false, "also run sink healthchecks")
}

func runValidate(cmd *cobra.Command, args []string) error {
	logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	healthchecks, _ := cmd.Flags().GetBool("healthchecks")

	topo, err := loadTopology()
	if err != nil {
		return err
	}
	p, err := topo.Build(logger)
	if err != nil {
		return err
	}

	if healthchecks {
		ctx, stop := signalContext()
		defer stop()
		if err := p.Healthcheck(ctx); err != nil {
			return fmt.Errorf("healthcheck: %w", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d sources, %d sinks OK\n", cfg.TopologyPath, len(topo.Sources), len(topo.Sinks))
	return nil
}
