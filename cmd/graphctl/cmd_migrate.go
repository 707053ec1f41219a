package main

import (
	"github.com/spf13/cobra"

	"github.com/OFFIS-RIT/chronograph/pkg/store/migrations"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the graph schema",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(migrations.Up), string(migrations.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction, err := migrations.ParseDirection(args[0])
			if err != nil {
				return err
			}
			return migrations.Run(a.cfg.DatabaseURL, direction)
		},
	}
}
