package pipeline

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/crowdsense/vibesense/internal/model"
	"github.com/crowdsense/vibesense/internal/taxonomy"
)

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// parseStageResult converts a raw Stage A payload into the typed result.
// Category objects live at the top level of the payload keyed by taxonomy
// key; everything downstream works on the typed struct, never the raw map.
// Returns nil when the payload is not parseable JSON.
func parseStageResult(text string, reg *taxonomy.Registry) *model.StageResult {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(cleanJSON(text)), &raw); err != nil {
		zap.L().Error("parse: stage result is not valid JSON", zap.Error(err))
		return nil
	}

	out := &model.StageResult{
		Categories: make(map[string]model.CategoryResult, len(raw)),
	}
	for _, key := range reg.Categories() {
		blob, ok := raw[key]
		if !ok {
			continue
		}
		var cr model.CategoryResult
		if err := json.Unmarshal(blob, &cr); err != nil {
			zap.L().Warn("parse: malformed category object",
				zap.String("category", key),
				zap.Error(err),
			)
			continue
		}
		out.Categories[key] = cr
	}

	decodeField(raw, "photos", &out.Photos)
	decodeField(raw, "top_vibes", &out.TopVibes)
	decodeField(raw, "overall_confidence", &out.OverallConfidence)
	decodeField(raw, "notes", &out.Notes)
	decodeField(raw, "vibe_short_pt", &out.VibeShortPT)
	decodeField(raw, "vibe_short_en", &out.VibeShortEN)
	decodeField(raw, "vibe_long_pt", &out.VibeLongPT)
	decodeField(raw, "vibe_long_en", &out.VibeLongEN)

	return out
}

// parseRefinement converts a raw Stage B payload into the typed refinement.
// Returns nil when the payload is not parseable JSON.
func parseRefinement(text string) *model.Refinement {
	var ref model.Refinement
	if err := json.Unmarshal([]byte(cleanJSON(text)), &ref); err != nil {
		zap.L().Error("parse: refinement is not valid JSON", zap.Error(err))
		return nil
	}
	return &ref
}

// decodeField extracts one optional field, leaving dst untouched when the
// key is absent or the value is malformed.
func decodeField(raw map[string]json.RawMessage, key string, dst any) {
	blob, ok := raw[key]
	if !ok {
		return
	}
	if err := json.Unmarshal(blob, dst); err != nil {
		zap.L().Warn("parse: malformed field", zap.String("field", key), zap.Error(err))
	}
}
