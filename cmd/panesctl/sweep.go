package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"panes/internal/bootstrap"
	"panes/internal/service"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove expired panes once",
	Long: `Remove every pane that has expired, then exit.

For each expired pane the stored document is deleted first and the metadata
record is then marked as removed. A failure on one pane is counted and the
run moves on. Use this when the server's periodic sweep is disabled or when
storage needs to be reclaimed immediately.`,
	RunE: runSweep,
}

var sweepBatchSize int

func init() {
	sweepCmd.Flags().IntVar(&sweepBatchSize, "batch-size", 0, "panes removed per batch (default: SWEEP_BATCH_SIZE)")
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := configFromContext(ctx)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	stores, err := bootstrap.OpenStores(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = stores.Close() }()

	batch := cfg.Sweep.BatchSize
	if sweepBatchSize > 0 {
		batch = sweepBatchSize
	}
	sweeper := service.NewSweeper(stores.Blobs, stores.Repo, service.SweeperOptions{BatchSize: batch})

	res, err := sweeper.Run(ctx)
	if res != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "deleted=%d errors=%d duration=%s\n", res.Deleted, res.Errors, res.Elapsed)
	}
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	return nil
}
