package model

import "time"

// EvidencePhoto is photo-level scoring resolved from bundle indices to the
// actual photo URL, kept for explainability and photo ranking downstream.
type EvidencePhoto struct {
	PhotoURL     string   `json:"photo_url"`
	Relevance    float64  `json:"relevance_score"`
	VibeAppeal   float64  `json:"vibe_appeal"`
	PhotoType    string   `json:"photo_type,omitempty"`
	EvidenceTags []string `json:"evidence_tags,omitempty"`
}

// VibeProfile is the persisted, taxonomy-validated classification result for
// one venue. It is written exactly once per classification: a new run either
// replaces the whole profile or is skipped on a cache hit.
type VibeProfile struct {
	VenueID       string `json:"venue_id"`
	SchemaVersion string `json:"schema_version"`

	// One entry per taxonomy category key. Labels are always members of the
	// category's closed vocabulary, at most 4 per category.
	Categories map[string]CategoryResult `json:"categories"`

	TopVibes          []string `json:"top_vibes"`
	OverallConfidence float64  `json:"overall_confidence"`
	Notes             string   `json:"notes,omitempty"`

	VibeShortPT string `json:"vibe_short_pt,omitempty"`
	VibeShortEN string `json:"vibe_short_en,omitempty"`
	VibeLongPT  string `json:"vibe_long_pt,omitempty"`
	VibeLongEN  string `json:"vibe_long_en,omitempty"`

	DataSources         []string        `json:"data_sources"`
	EvidencePhotos      []EvidencePhoto `json:"evidence_photos,omitempty"`
	PhotosAnalyzed      int             `json:"photos_analyzed"`
	PhotosAvailable     int             `json:"photos_available"`
	StageBTriggered     bool            `json:"stage_b_triggered"`
	UncertaintyReasons  []string        `json:"uncertainty_reasons,omitempty"`
	ClassificationTrace []string        `json:"classification_trace"`

	ClassifiedAt time.Time `json:"classified_at"`
}

// HasProfile reports whether the profile carries meaningful data.
func (p *VibeProfile) HasProfile() bool {
	if p == nil {
		return false
	}
	return len(p.TopVibes) > 0 || p.OverallConfidence > 0
}
