package pipeline

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/crowdsense/vibesense/internal/config"
	"github.com/crowdsense/vibesense/internal/model"
	"github.com/crowdsense/vibesense/internal/taxonomy"
	"github.com/crowdsense/vibesense/pkg/anthropic"
)

// RunStageB performs the expensive refinement pass over the most relevant
// photo subset and the uncertain categories only. An empty or failed
// refinement returns nil; the pipeline then keeps Stage A's result as-is.
func RunStageB(ctx context.Context, client anthropic.Client, aiCfg config.AnthropicConfig, reg *taxonomy.Registry, bundle *Bundle, stageA *model.StageResult, uncertain []string, photoCount, maxSnippets int) *model.Refinement {
	if len(uncertain) == 0 {
		return nil
	}
	topURLs := topRelevantPhotos(bundle.PhotoURLs, stageA.Photos, photoCount)
	if len(topURLs) == 0 {
		return nil
	}

	prompt := buildStageBPrompt(reg, bundle, priorContextJSON(stageA, uncertain), uncertain, maxSnippets)
	temp := 0.1

	start := time.Now()
	resp, err := client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       aiCfg.StageBModel,
		MaxTokens:   aiCfg.MaxTokens,
		System:      anthropic.BuildCachedSystemBlocks(stageBSystemPrompt),
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt, ImageURLs: topURLs},
		},
	})
	if err != nil {
		zap.L().Error("stage_b: inference call failed",
			zap.String("venue_id", bundle.Venue.ID),
			zap.Error(err),
		)
		return nil
	}

	resp.Usage.Log(aiCfg.StageBModel, "stage_b")
	zap.L().Info("stage_b: complete",
		zap.String("venue_id", bundle.Venue.ID),
		zap.Duration("duration", time.Since(start)),
		zap.Int("photos", len(topURLs)),
		zap.Strings("uncertain", uncertain),
	)

	return parseRefinement(resp.Text())
}

// topRelevantPhotos ranks the bundle's photos by Stage A's per-photo
// relevance score (descending) and returns the top count URLs. Photos absent
// from the per-photo list are excluded from ranking. When Stage A produced
// no per-photo list at all, the first count photos are used.
func topRelevantPhotos(photoURLs []string, scores []model.PhotoScore, count int) []string {
	if count <= 0 {
		return nil
	}
	if len(scores) == 0 {
		if len(photoURLs) <= count {
			return photoURLs
		}
		return photoURLs[:count]
	}

	type scored struct {
		relevance float64
		index     int
	}
	var ranked []scored
	for _, s := range scores {
		if s.Index >= 0 && s.Index < len(photoURLs) {
			ranked = append(ranked, scored{relevance: s.Relevance, index: s.Index})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].relevance != ranked[j].relevance {
			return ranked[i].relevance > ranked[j].relevance
		}
		return ranked[i].index < ranked[j].index
	})

	if len(ranked) > count {
		ranked = ranked[:count]
	}
	urls := make([]string, len(ranked))
	for i, s := range ranked {
		urls[i] = photoURLs[s.index]
	}
	return urls
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
