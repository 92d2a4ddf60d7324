package model

// CategoryEvidence cites the evidence supporting one category's labels.
// Photo indices are 0-based positions in the evidence bundle sent to Stage A.
type CategoryEvidence struct {
	PhotoIndices []int    `json:"photo_indices,omitempty"`
	TextQuotes   []string `json:"text_quotes,omitempty"`
}

// CategoryResult is the classification of one taxonomy category: an ordered
// label list, a category-level confidence in [0,1], and supporting evidence.
type CategoryResult struct {
	Labels     []string         `json:"labels"`
	Confidence float64          `json:"confidence"`
	Evidence   CategoryEvidence `json:"evidence"`
}

// PhotoScore is the model's per-photo scoring from Stage A.
type PhotoScore struct {
	Index     int      `json:"index"`
	Relevance float64  `json:"relevance"`
	Appeal    float64  `json:"vibe_appeal"`
	Type      string   `json:"type,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// StageResult is the typed form of one classifier stage's raw payload.
// Category keys absent from the model output appear here as zero-value
// CategoryResults (no labels, confidence 0).
type StageResult struct {
	Categories        map[string]CategoryResult `json:"categories"`
	TopVibes          []string                  `json:"top_vibes,omitempty"`
	OverallConfidence float64                   `json:"overall_confidence"`
	Notes             string                    `json:"notes,omitempty"`
	VibeShortPT       string                    `json:"vibe_short_pt,omitempty"`
	VibeShortEN       string                    `json:"vibe_short_en,omitempty"`
	VibeLongPT        string                    `json:"vibe_long_pt,omitempty"`
	VibeLongEN        string                    `json:"vibe_long_en,omitempty"`
	Photos            []PhotoScore              `json:"photos,omitempty"`
}

// Category returns the result for a category key, zero-valued when absent.
func (r *StageResult) Category(key string) CategoryResult {
	if r == nil || r.Categories == nil {
		return CategoryResult{}
	}
	return r.Categories[key]
}

// Clone returns a deep copy. The merger mutates its working copy and must
// never alias Stage A's slices.
func (r *StageResult) Clone() *StageResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Categories = make(map[string]CategoryResult, len(r.Categories))
	for k, v := range r.Categories {
		out.Categories[k] = cloneCategory(v)
	}
	out.TopVibes = append([]string(nil), r.TopVibes...)
	out.Photos = append([]PhotoScore(nil), r.Photos...)
	return &out
}

func cloneCategory(c CategoryResult) CategoryResult {
	c.Labels = append([]string(nil), c.Labels...)
	c.Evidence.PhotoIndices = append([]int(nil), c.Evidence.PhotoIndices...)
	c.Evidence.TextQuotes = append([]string(nil), c.Evidence.TextQuotes...)
	return c
}

// Refinement is the typed form of a Stage B payload. It carries replacements
// only: categories outside the uncertain set are ignored by the merger, and
// empty top-level fields leave Stage A's values in place.
type Refinement struct {
	Categories        map[string]CategoryResult `json:"refined_categories"`
	TopVibes          []string                  `json:"top_vibes,omitempty"`
	OverallConfidence *float64                  `json:"overall_confidence,omitempty"`
	Notes             string                    `json:"notes,omitempty"`
	VibeShortPT       string                    `json:"vibe_short_pt,omitempty"`
	VibeShortEN       string                    `json:"vibe_short_en,omitempty"`
	VibeLongPT        string                    `json:"vibe_long_pt,omitempty"`
	VibeLongEN        string                    `json:"vibe_long_en,omitempty"`
}
