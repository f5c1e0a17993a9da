package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/density"
	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/results"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/redis"
)

func newCurvesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "curves <run-id>",
		Short: "Print the stored learning curves of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			db, err := postgres.New(cfg.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()

			curves, err := results.NewStore(db, nil).ListCurves(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(curves) == 0 {
				return fmt.Errorf("no curves stored for run %s", args[0])
			}
			collector := results.NewCollector()
			for _, c := range curves {
				if err := collector.Record(cmd.Context(), c); err != nil {
					return err
				}
			}
			return collector.Table(cmd.OutOrStdout())
		},
	}
}

func newCacheCmd(opts *options) *cobra.Command {
	cache := &cobra.Command{
		Use:   "cache",
		Short: "Manage the Redis density cache",
	}
	cache.AddCommand(&cobra.Command{
		Use:   "flush",
		Short: "Delete every cached density vector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			rc, err := redis.NewClient(cfg.Redis)
			if err != nil {
				return err
			}
			defer rc.Close()
			n, err := rc.FlushByPattern(cmd.Context(), density.KeyPattern)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached density vectors\n", n)
			return nil
		},
	})
	return cache
}
