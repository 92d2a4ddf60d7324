package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	classifyVenueID string
	classifyForce   bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a single venue from its cached evidence",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		profile, err := env.Classifier.ClassifyVenue(ctx, classifyVenueID, classifyForce)
		if err != nil {
			return eris.Wrap(err, "classify venue")
		}
		if profile == nil {
			zap.L().Warn("venue could not be classified",
				zap.String("venue_id", classifyVenueID),
			)
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(profile)
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifyVenueID, "venue", "", "venue ID to classify (required)")
	classifyCmd.Flags().BoolVar(&classifyForce, "force", false, "re-classify even if a profile is cached")
	_ = classifyCmd.MarkFlagRequired("venue")
	rootCmd.AddCommand(classifyCmd)
}
