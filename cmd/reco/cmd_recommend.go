package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-reco/infrastructure/report"
	"github.com/ahrav/go-reco/internal/domain"
)

func newRecommendCommand(c *cli) *cobra.Command {
	var (
		subject string
		mode    string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Print the recommendations for one person",
		Long: `Print the recommendations for one person.

The subject may be given by id or by display name. In precomputed mode the
result is read from the cache and computed in real time when the subject
has no cached entry. Without --limit the engine's default limit applies.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := domain.ParseMode(mode)
			if err != nil {
				return &usageError{err: err}
			}

			ctx := cmd.Context()
			rt, err := newRuntime(ctx, c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer rt.Close() //nolint:errcheck

			person, err := rt.resolveSubject(ctx, subject)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("limit") {
				limit = rt.engine.Settings().DefaultLimit
			}

			ranked, err := rt.engine.Recommend(ctx, person.ID, m, limit)
			if err != nil {
				return err
			}

			line := report.Format(person.String(), ranked, func(id string) string { return rt.namer(ctx, id) })
			_, err = fmt.Fprintln(cmd.OutOrStdout(), line)
			return err
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Person id or name to recommend for (required)")
	cmd.Flags().StringVarP(&mode, "mode", "m", domain.RealTime.String(), "Execution mode: real-time or precomputed")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of recommendations")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}
