package pipeline

import (
	"fmt"
	"strings"

	"github.com/crowdsense/vibesense/internal/model"
	"github.com/crowdsense/vibesense/internal/taxonomy"
)

const stageASystemPrompt = `You are the VibeSense venue vibe classifier for bars and nightlife in Recife, Brazil. Analyze ALL available evidence (photos + text signals) and return ONLY a JSON object. Be precise and conservative, and use ONLY labels from the provided taxonomy. Never invent new labels. If evidence is weak, return an empty list for that category and reduce confidence.

## Instructions
1. For each photo, score its relevance and vibe appeal, and classify its type.
   - "relevance": how useful this photo is for classifying the venue (0-10).
   - "vibe_appeal": how well this photo communicates the venue's atmosphere to a potential visitor browsing the app (0-10). Prefer photos showing the interior ambiance, crowd, lighting, and decor over menus, logos, or blurry selfies.
2. Classify the venue into the fixed taxonomy categories listed below.
3. Use BOTH modalities:
   - PHOTOS are primary for: estetica, estilo_do_lugar, dress_code, clima_social.
   - REVIEWS/TEXT are primary for: musica, music_format, publico, intencao, clima_social.
4. Be CONSERVATIVE: if you cannot confidently assign a label, leave the category empty rather than guess. Max 4 labels per category.
5. Do not infer sensitive traits beyond what is clearly indicated (e.g. LGBTQ+ only if explicitly stated in reviews or strongly signaled by venue positioning/branding visible in text).
6. For evidence, cite photo indices (0-based, matching the photo order sent) and brief text quotes (max 50 chars) that support each category.
7. Generate top_vibes: the 6 most defining tags across all categories. Prioritize estilo_do_lugar, intencao, musica, publico, estetica.
8. Generate short blurbs in Portuguese and English describing the venue's atmosphere.

## Heuristics
- "DJ", "Karaokê", "Som ao vivo", "Roda de samba" need a review mention OR a clear visual cue (stage, mic, instruments, DJ booth).
- "Pé na areia" / "Beira-mar" must be supported by photo evidence (sand, shoreline) or strong review mention.
- "Rooftop" must be supported by photo evidence (open skyline/terrace) or explicit mention.
- If photos show small tables, warm lighting, and reviews mention "conversa", set "Tranquilo" or "Intimista".
- Dress code: Beach/sand => "Praia", Club/lux => "Esporte fino", Boteco => "Casual" / "Sem dress code".
- Prefer specificity: "Coquetelaria" over "Bar tradicional" if clear cocktail bar cues exist.
- Be Recife/Brazil aware: know local venue types (boteco, inferninho), music (frevo, brega, manguebeat context), and cultural norms.

## Output Schema
{
  "photos": [{"index": 0, "relevance": 7.5, "vibe_appeal": 8.0, "type": "interior|exterior|crowd|food|drink|event|menu|selfie|other", "tags": ["dim_lighting"]}],
  "<category_key>": {"labels": ["..."], "confidence": 0.75, "evidence": {"photo_indices": [2, 5], "text_quotes": ["..."]}},
  "top_vibes": ["...up to 6 tags..."],
  "overall_confidence": 0.78,
  "notes": "...",
  "vibe_short_pt": "...", "vibe_short_en": "...",
  "vibe_long_pt": "...", "vibe_long_en": "..."
}

## Rules
- One "<category_key>" object per taxonomy category, at the top level of the JSON.
- Confidence 0.0-1.0 per category. If a category cannot be determined, set labels to [] and confidence to 0.
- overall_confidence: average of non-empty category confidences, penalized by 0.05 for each empty category.
- Return ONLY the JSON object, no markdown fences or explanations.`

const stageBSystemPrompt = `You are the VibeSense venue vibe classifier performing a REFINEMENT pass for a venue in Recife, Brazil.

## Instructions
1. Look at these HIGH-RESOLUTION photos carefully.
2. Use text signals (IG bio, IG posts, Google reviews) to help resolve the uncertain categories listed in the user message.
3. ONLY provide refined values for the uncertain categories. Do NOT repeat already-confident categories.
4. Also regenerate top_vibes (up to 6 tags) and blurbs based on the full picture.
5. Use ONLY labels from the fixed taxonomy. Max 4 per category.

## Output Schema
{
  "refined_categories": {"<category_key>": {"labels": ["..."], "confidence": 0.90, "evidence": {"photo_indices": [0, 2], "text_quotes": ["..."]}}},
  "top_vibes": ["...up to 6 tags..."],
  "overall_confidence": 0.85,
  "notes": "...",
  "vibe_short_pt": "...", "vibe_short_en": "...",
  "vibe_long_pt": "...", "vibe_long_en": "..."
}

## Rules
- refined_categories: only the categories listed as uncertain.
- top_vibes: up to 6 tags from all categories, including the unrefined ones.
- Return ONLY the JSON object, no markdown fences or explanations.`

// buildStageAPrompt renders the user prompt for Stage A: venue context, the
// taxonomy vocabulary, and any text evidence.
func buildStageAPrompt(reg *taxonomy.Registry, bundle *Bundle, maxSnippets int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Venue name: %q | Type: %q\n\n", orUnknown(bundle.Venue.Name), orUnknown(bundle.Venue.Type))
	b.WriteString("## Fixed Taxonomy Labels (ONLY THESE ARE ALLOWED)\n\n")
	b.WriteString(reg.PromptBlock())
	b.WriteString("\n")
	b.WriteString(buildTextContext(bundle, maxSnippets))
	return b.String()
}

// buildStageBPrompt renders the user prompt for Stage B: the Stage A result
// restricted to the uncertain categories, the uncertain category list, the
// taxonomy, and the same text evidence.
func buildStageBPrompt(reg *taxonomy.Registry, bundle *Bundle, priorContext string, uncertain []string, maxSnippets int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Venue name: %q\n\n", orUnknown(bundle.Venue.Name))
	b.WriteString("## Previous Results (uncertain categories only)\n")
	b.WriteString(priorContext)
	b.WriteString("\n\n## Categories to Refine\n")
	b.WriteString(strings.Join(uncertain, ", "))
	b.WriteString("\n\n## Fixed Taxonomy Labels (ONLY THESE ARE ALLOWED)\n\n")
	b.WriteString(reg.PromptBlock())
	b.WriteString("\n")
	b.WriteString(buildTextContext(bundle, maxSnippets))
	return b.String()
}

// buildTextContext formats IG bio + post captions + reviews as a prompt
// section. Returns an empty string when no text signals are available.
func buildTextContext(bundle *Bundle, maxSnippets int) string {
	if maxSnippets <= 0 {
		maxSnippets = 10
	}

	var sections []string

	if bundle.InstagramBio != "" {
		sections = append(sections, "### Instagram Bio\n"+strings.TrimSpace(bundle.InstagramBio))
	}

	if len(bundle.InstagramPosts) > 0 {
		var lines []string
		for i, caption := range bundle.InstagramPosts {
			if i >= maxSnippets {
				break
			}
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, truncate(caption, 300)))
		}
		sections = append(sections, "### Recent Instagram Posts (captions)\n"+strings.Join(lines, "\n"))
	}

	if len(bundle.Reviews) > 0 {
		var lines []string
		for i, r := range bundle.Reviews {
			if i >= 5 {
				break
			}
			lines = append(lines, fmt.Sprintf("- [%.0f/5] %s", r.Rating, truncate(r.Text, 200)))
		}
		sections = append(sections, "### Google Reviews (top 5)\n"+strings.Join(lines, "\n"))
	}

	if len(sections) == 0 {
		return ""
	}
	return "\n## Additional Context (text signals, use alongside photos)\n\n" +
		strings.Join(sections, "\n\n") + "\n"
}

// priorContextJSON renders the Stage A categories restricted to the
// uncertain set, so Stage B sees prior context without anchoring on
// not-yet-validated confident categories.
func priorContextJSON(stageA *model.StageResult, uncertain []string) string {
	restricted := make(map[string]model.CategoryResult, len(uncertain))
	for _, key := range uncertain {
		restricted[key] = stageA.Category(key)
	}
	doc := struct {
		Categories        map[string]model.CategoryResult `json:"categories"`
		TopVibes          []string                        `json:"top_vibes,omitempty"`
		OverallConfidence float64                         `json:"overall_confidence"`
		Notes             string                          `json:"notes,omitempty"`
	}{
		Categories:        restricted,
		TopVibes:          stageA.TopVibes,
		OverallConfidence: stageA.OverallConfidence,
		Notes:             stageA.Notes,
	}
	return mustJSON(doc)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + "..."
}
