package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-booksync/metrics"
	"github.com/aluiziolira/go-booksync/pipeline"
	"github.com/spf13/cobra"
)

func newRunCmd(flags *globalFlags) *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Collect the batch, ensure the table, then load the batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if runID == "" {
				runID = "manual__" + time.Now().UTC().Format("20060102T150405Z")
			}

			m := metrics.New()
			stopMetrics := startMetricsServer(cfg.MetricsAddr, m)
			defer stopMetrics()

			collector, err := newCollector(cfg, m)
			if err != nil {
				return err
			}
			sink, db, err := openSink(ctx, cfg, m)
			if err != nil {
				return err
			}
			defer db.Close()

			store, closeStore, err := newStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			var opts []pipeline.Option
			if cfg.ExportFile != "" {
				exporter, err := pipeline.NewExporter(cfg.ExportFormat, cfg.ExportFile)
				if err != nil {
					return err
				}
				defer func() {
					if err := exporter.Close(); err != nil {
						slog.Error("close exporter", slog.Any("error", err))
					}
				}()
				opts = append(opts, pipeline.WithExporter(exporter))
			}

			slog.Info("starting run",
				slog.String("run_id", runID),
				slog.String("base_url", cfg.BaseURL),
				slog.Int("target", cfg.TargetCount),
				slog.Int("pages", cfg.MaxPages),
				slog.String("sink", cfg.SinkDriver),
				slog.String("handoff", cfg.HandoffBackend),
			)

			runner := pipeline.NewRunner(collector, sink, store, opts...)
			summary, runErr := runner.Run(ctx, runID, cfg.TargetCount, cfg.MaxPages)
			printRunSummary(cmd.OutOrStdout(), summary)
			if runErr != nil {
				return fmt.Errorf("run %s failed: %w", runID, runErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run-id", "", "Identifier scoping the handoff between steps (default: timestamp)")
	return cmd
}
