package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPrecomputeCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "precompute",
		Short: "Run one precompute cycle over every person",
		Long: `Run one precompute cycle over every person.

Rankings are stored in the configured cache. Use the badger cache backend
for results that outlive the process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx, c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer rt.Close() //nolint:errcheck

			report, err := rt.precomputer.Run(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), report)
			return err
		},
	}
}
