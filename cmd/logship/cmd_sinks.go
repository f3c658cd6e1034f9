package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bft-labs/logship/internal/source"
)

var sinksCmd = &cobra.Command{
	Use:   "sinks",
	Short: "List the sink and source kinds this build understands",
	Args:  cobra.NoArgs,
	RunE:  runSinks,
}

func runSinks(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SINK\tACCEPTS")
	for _, kind := range registry.Kinds() {
		d, _ := registry.Lookup(kind)
		fmt.Fprintf(w, "%s\t%s\n", kind, d.New().InputType())
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "SOURCE\tPRODUCES")
	for _, kind := range source.Kinds {
		src, err := source.Decode(kind, nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\n", kind, src.OutputType())
	}
	return w.Flush()
}
