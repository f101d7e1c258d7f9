package main

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/mohammed-shakir/airfoil-geometry/internal/catalog"
	"github.com/mohammed-shakir/airfoil-geometry/internal/catalogevents"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/config"
)

// a full clone publishes one event per airfoil in a burst
const cloneEventQueue = 8192

func newCloneCmd(c *cli) *cobra.Command {
	var buckets []string
	var workers int
	var events bool
	var perSecond float64
	cmd := &cobra.Command{
		Use:   "clone",
		Short: "Copy catalog airfoils into the document store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if !c.cfg.RedisEnabled {
				return errors.New("clone needs a document store: pass --redis or set REDIS_ENABLED")
			}
			a, err := c.app(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if workers <= 0 {
				workers = c.cfg.CloneWorkers
			}
			if !cmd.Flags().Changed("rate") {
				perSecond = c.cfg.CloneRate
			}
			cl := &catalog.Cloner{
				Index:   a.Index,
				Source:  a.Upstream,
				Store:   a.Store,
				Buckets: buckets,
				Workers: workers,
				Log:     c.log,
				Limiter: limiter(perSecond, workers),
				Progress: func(code string, done, total int, err error) {
					if err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s: %v\n", done, total, code, err)
					}
				},
			}
			if events || c.cfg.Events.Enabled {
				pub, err := catalogevents.NewPublisher(config.BrokerList(c.cfg.Events.Brokers), c.cfg.Events.Topic, cloneEventQueue, c.log)
				if err != nil {
					return err
				}
				defer pub.Close()
				cl.Events = pub
			}

			sum, runErr := cl.Run(ctx)
			w := table.NewWriter()
			w.AppendHeader(table.Row{"buckets", "stored", "failed"})
			w.AppendRow(table.Row{sum.Buckets, sum.Stored, sum.Failed})
			fmt.Fprintln(cmd.OutOrStdout(), w.Render())
			if runErr != nil {
				return fmt.Errorf("%d airfoils failed: %w", sum.Failed, runErr)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&buckets, "bucket", "b", nil, "restrict to these buckets (repeatable)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "parallel fetches (0 uses CLONE_WORKERS)")
	cmd.Flags().Float64Var(&perSecond, "rate", 0, "catalog requests per second, 0 for no limit (default CLONE_RATE)")
	cmd.Flags().BoolVar(&events, "events", false, "publish an upsert event per stored airfoil")
	return cmd
}

// limiter returns nil for a non-positive rate.
func limiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
}
