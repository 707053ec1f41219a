package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "graphctl",
		Short: "Operate the bitemporal knowledge graph store",
		Long: `graphctl writes and reads entities of the bitemporal knowledge graph.

Every write records a new edition of an entity. Reads resolve a subgraph
around the selected root entities; its neighbourhood is bounded by the
resolve depths given on the command line.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			jsonLogs, _ := cmd.Flags().GetBool("json-logs")
			return a.init(jsonLogs)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	rootCmd.PersistentFlags().Bool("json-logs", false, "Write logs as JSON lines")

	rootCmd.AddCommand(
		newMigrateCmd(a),
		newGetCmd(a),
		newSnapshotCmd(a),
		newTypeCmd(a),
		newEntityCmd(a),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		a.close()
		os.Exit(1)
	}
}
