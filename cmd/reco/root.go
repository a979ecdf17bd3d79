package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-reco/internal/config"
	"github.com/ahrav/go-reco/internal/logging"
)

var version = "dev"

// cli carries state shared by every subcommand once the root command has
// loaded the configuration.
type cli struct {
	configPath string
	cfg        *config.Config
	logger     zerolog.Logger
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:   "reco",
		Short: "reco - friend recommendations over a social graph",
		Long: `reco ranks people a subject may want to befriend.

Recommendations are computed by the engine definition (by default the
bundled friends engine) either in real time or from results stored by a
precompute cycle. Configuration is read from an optional YAML file and
RECO_* environment variables.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logger = logging.New(logging.Config{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				Output: cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&c.configPath, "config", "", "Path to a YAML configuration file")

	cmd.AddCommand(newRecommendCommand(c))
	cmd.AddCommand(newPrecomputeCommand(c))
	cmd.AddCommand(newServeCommand(c))
	cmd.AddCommand(newSeedCommand(c))

	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}
