package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-reco/internal/scheduler"
)

func newServeCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Precompute recommendations in the background and expose metrics",
		Long: `Precompute recommendations in the background and expose metrics.

A supervisor runs the precompute cycle on a fixed delay and serves
Prometheus metrics on /metrics until SIGINT or SIGTERM. Set metrics.addr
to an empty string to disable the endpoint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := newRuntime(ctx, c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer rt.Close() //nolint:errcheck

			sup := scheduler.NewSupervisor("reco", scheduler.SupervisorConfig{}, c.logger)
			sup.Add(scheduler.NewPrecomputeService(rt.precomputer, scheduler.PrecomputeConfig{
				InitialDelay: c.cfg.Scheduler.InitialDelay,
				Delay:        c.cfg.Scheduler.Delay,
			}, c.logger))

			if addr := c.cfg.Metrics.Addr; addr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", rt.metrics.Handler())
				server := &http.Server{
					Addr:              addr,
					Handler:           mux,
					ReadHeaderTimeout: 5 * time.Second,
				}
				sup.Add(scheduler.NewHTTPService("metrics-http", server, 10*time.Second))
				c.logger.Info().Str("addr", addr).Msg("serving metrics")
			}

			err = sup.Serve(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
