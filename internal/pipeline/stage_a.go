package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/crowdsense/vibesense/internal/config"
	"github.com/crowdsense/vibesense/internal/model"
	"github.com/crowdsense/vibesense/internal/taxonomy"
	"github.com/crowdsense/vibesense/pkg/anthropic"
)

// RunStageA performs the cheap full-bundle classification pass. Failures are
// non-fatal for the batch: an API error or unparseable payload returns nil
// and the caller records an error result for this venue.
func RunStageA(ctx context.Context, client anthropic.Client, aiCfg config.AnthropicConfig, reg *taxonomy.Registry, bundle *Bundle, maxSnippets int) *model.StageResult {
	prompt := buildStageAPrompt(reg, bundle, maxSnippets)
	temp := 0.2

	start := time.Now()
	resp, err := client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       aiCfg.StageAModel,
		MaxTokens:   aiCfg.MaxTokens,
		System:      anthropic.BuildCachedSystemBlocks(stageASystemPrompt),
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt, ImageURLs: bundle.PhotoURLs},
		},
	})
	if err != nil {
		zap.L().Error("stage_a: inference call failed",
			zap.String("venue_id", bundle.Venue.ID),
			zap.Error(err),
		)
		return nil
	}

	resp.Usage.Log(aiCfg.StageAModel, "stage_a")
	zap.L().Info("stage_a: complete",
		zap.String("venue_id", bundle.Venue.ID),
		zap.Duration("duration", time.Since(start)),
		zap.Int("photos", len(bundle.PhotoURLs)),
	)

	return parseStageResult(resp.Text(), reg)
}
