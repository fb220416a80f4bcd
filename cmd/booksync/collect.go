package main

import (
	"github.com/aluiziolira/go-booksync/metrics"
	"github.com/spf13/cobra"
)

func newCollectCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Collect the batch and print it without loading",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}

			m := metrics.New()
			stopMetrics := startMetricsServer(cfg.MetricsAddr, m)
			defer stopMetrics()

			collector, err := newCollector(cfg, m)
			if err != nil {
				return err
			}
			report, err := collector.Collect(cmd.Context(), cfg.TargetCount, cfg.MaxPages)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printBooks(out, report.Books)
			printReport(out, report)
			return nil
		},
	}
}

func newEnsureTableCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-table",
		Short: "Create the destination table if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}
			sink, db, err := openSink(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			defer db.Close()
			return sink.EnsureTable(cmd.Context())
		},
	}
}
