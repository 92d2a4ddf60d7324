package pipeline

import "github.com/crowdsense/vibesense/internal/model"

// Merge folds a Stage B refinement into the Stage A result. Stage B data
// only ever touches the uncertain categories: a refined value overwrites, a
// missing one leaves Stage A's value in place, and refined categories
// outside the uncertain set are discarded. Top-level fields (top_vibes,
// blurbs, notes, overall confidence) are replaced when the refinement
// carries them. A nil refinement returns Stage A unchanged (as a copy).
func Merge(stageA *model.StageResult, ref *model.Refinement, uncertain []string) *model.StageResult {
	merged := stageA.Clone()
	if ref == nil {
		return merged
	}

	for _, key := range uncertain {
		if refined, ok := ref.Categories[key]; ok {
			merged.Categories[key] = refined
		}
	}

	if len(ref.TopVibes) > 0 {
		merged.TopVibes = append([]string(nil), ref.TopVibes...)
	}
	if ref.OverallConfidence != nil {
		merged.OverallConfidence = *ref.OverallConfidence
	}
	if ref.Notes != "" {
		merged.Notes = ref.Notes
	}
	if ref.VibeShortPT != "" {
		merged.VibeShortPT = ref.VibeShortPT
	}
	if ref.VibeShortEN != "" {
		merged.VibeShortEN = ref.VibeShortEN
	}
	if ref.VibeLongPT != "" {
		merged.VibeLongPT = ref.VibeLongPT
	}
	if ref.VibeLongEN != "" {
		merged.VibeLongEN = ref.VibeLongEN
	}

	return merged
}
