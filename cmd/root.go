package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crowdsense/vibesense/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "vibesense",
	Short: "Venue vibe classification pipeline",
	Long:  "Classifies nightlife venues into a fixed vibe taxonomy from cached photos, Instagram data, and reviews via a confidence-gated two-stage Claude pipeline.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
