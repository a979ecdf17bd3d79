package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-reco/infrastructure/store"
)

func newSeedCommand(c *cli) *cobra.Command {
	var (
		fixturePath string
		dbPath      string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a YAML social graph into the SQLite store",
		Long: `Load a YAML social graph into the SQLite store.

Without --fixture the bundled sample graph is loaded. People are upserted,
so seeding twice is safe.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := loadFixture(fixturePath)
			if err != nil {
				return &usageError{err: err}
			}

			if dbPath == "" {
				dbPath = c.cfg.Store.Path
			}
			graph, err := store.OpenSQLite(dbPath)
			if err != nil {
				return err
			}
			defer graph.Close() //nolint:errcheck

			if err := fixture.Apply(cmd.Context(), graph); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d people and %d friendships into %s\n",
				len(fixture.People), len(fixture.Friendships), dbPath)
			return err
		},
	}

	cmd.Flags().StringVarP(&fixturePath, "fixture", "f", "", "YAML fixture file (defaults to the bundled sample graph)")
	cmd.Flags().StringVar(&dbPath, "path", "", "SQLite database path (defaults to store.path)")

	return cmd
}
