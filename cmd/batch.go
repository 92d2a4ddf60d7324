package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var batchLimit int

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Classify all pending venues (photos cached, no profile yet)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if batchLimit > 0 {
			cfg.Vibe.Limit = batchLimit
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		classified, err := env.Classifier.ClassifyAll(ctx)
		if err != nil {
			return eris.Wrap(err, "classify all")
		}

		snap, err := env.Collector.Snapshot(ctx)
		if err != nil {
			return eris.Wrap(err, "metrics snapshot")
		}

		zap.L().Info("batch complete",
			zap.Int("classified", classified),
			zap.Int("stage_b_triggers", totalTriggers(snap.StageBTriggers)),
			zap.Float64("mean_confidence", snap.MeanConfidence),
			zap.Int("venues_with_profile", snap.VenuesWithProfile),
		)
		return nil
	},
}

func totalTriggers(byReason map[string]int) int {
	n := 0
	for _, c := range byReason {
		n += c
	}
	return n
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max venues to process (0 = use configured limit)")
	rootCmd.AddCommand(batchCmd)
}
