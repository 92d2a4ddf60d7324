package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/crowdsense/vibesense/internal/model"
	"github.com/crowdsense/vibesense/internal/taxonomy"
)

const (
	schemaVersion   = "vibe_taxonomy_v2"
	maxCategoryTags = 4
	maxTopVibes     = 6
	maxBlurbLen     = 100
)

// BuildProfile converts the merged stage result into the persisted profile:
// labels are capped and validated against the taxonomy, evidence photo
// indices are resolved against the original Stage A bundle, and the trace
// records which stages ran. Stage B photo indices are never resolved here;
// its photo subset uses different numbering, so photo-level evidence comes
// from Stage A alone.
func BuildProfile(merged *model.StageResult, bundle *Bundle, decision Decision, reg *taxonomy.Registry, stageAModel, stageBModel string) *model.VibeProfile {
	profile := &model.VibeProfile{
		VenueID:           bundle.Venue.ID,
		SchemaVersion:     schemaVersion,
		Categories:        make(map[string]model.CategoryResult, len(reg.Categories())),
		OverallConfidence: merged.OverallConfidence,
		Notes:             merged.Notes,
		VibeShortPT:       merged.VibeShortPT,
		VibeShortEN:       merged.VibeShortEN,
		VibeLongPT:        merged.VibeLongPT,
		VibeLongEN:        merged.VibeLongEN,
		DataSources:       bundle.DataSources,
		PhotosAnalyzed:    len(bundle.PhotoURLs),
		PhotosAvailable:   bundle.PhotosAvailable,
		StageBTriggered:   decision.Escalate,
		ClassifiedAt:      time.Now().UTC(),
	}

	for _, key := range reg.Categories() {
		cat := merged.Category(key)
		raw := cat.Labels
		if len(raw) > maxCategoryTags {
			raw = raw[:maxCategoryTags]
		}
		profile.Categories[key] = model.CategoryResult{
			Labels:     reg.Validate(key, raw),
			Confidence: cat.Confidence,
			Evidence:   cat.Evidence,
		}
	}

	profile.TopVibes = reg.ValidateTopVibes(merged.TopVibes)
	if len(profile.TopVibes) > maxTopVibes {
		profile.TopVibes = profile.TopVibes[:maxTopVibes]
	}

	for _, score := range merged.Photos {
		if score.Index < 0 || score.Index >= len(bundle.PhotoURLs) {
			continue
		}
		profile.EvidencePhotos = append(profile.EvidencePhotos, model.EvidencePhoto{
			PhotoURL:     bundle.PhotoURLs[score.Index],
			Relevance:    score.Relevance,
			VibeAppeal:   score.Appeal,
			PhotoType:    photoTypeOrOther(score.Type),
			EvidenceTags: score.Tags,
		})
	}

	if decision.Escalate {
		profile.UncertaintyReasons = decision.Reasons
	}

	profile.ClassificationTrace = []string{stageAModel + ":stage_a"}
	if decision.Escalate {
		profile.ClassificationTrace = append(profile.ClassificationTrace, stageBModel+":stage_b")
	}

	if profile.VibeShortPT == "" {
		applyFallbackBlurbs(profile)
	}

	return profile
}

func photoTypeOrOther(t string) string {
	if t == "" {
		return "other"
	}
	return t
}

var estiloEN = map[string]string{
	"Boteco raiz":            "Traditional boteco",
	"Gastrobar":              "Gastrobar",
	"Bar tradicional":        "Traditional bar",
	"Lounge":                 "Lounge",
	"Balada":                 "Nightclub",
	"Club":                   "Club",
	"Pub":                    "Pub",
	"Rooftop":                "Rooftop bar",
	"Pé na areia":            "Beach bar",
	"Beach club":             "Beach club",
	"Wine bar":               "Wine bar",
	"Coquetelaria":           "Cocktail bar",
	"Bar com jogos":          "Game bar",
	"Speakeasy":              "Speakeasy",
	"Cultural / alternativo": "Cultural space",
	"Inferninho":             "Underground dive bar",
}

var climaPTSuffix = map[string]string{
	"Intimista": "com clima intimista",
	"Social":    "com ambiente social",
	"Animado":   "com clima animado",
	"Agitado":   "agitado",
	"Fervendo":  "fervendo",
	"Tranquilo": "com clima tranquilo",
}

var climaENSuffix = map[string]string{
	"Intimista": "with intimate vibes",
	"Social":    "with social atmosphere",
	"Animado":   "with lively vibes",
	"Agitado":   "with high energy",
	"Fervendo":  "on fire",
	"Tranquilo": "with chill vibes",
}

var formatEN = map[string]string{
	"DJ":            "with DJ",
	"Som ao vivo":   "with live music",
	"Banda ao vivo": "with live band",
	"Roda de samba": "with samba circle",
}

// applyFallbackBlurbs synthesizes short summaries from the venue style,
// social climate, and music format labels when neither stage produced one.
// With zero labels it produces nothing; it never fails.
func applyFallbackBlurbs(p *model.VibeProfile) {
	var partsPT, partsEN []string

	if labels := p.Categories["estilo_do_lugar"].Labels; len(labels) > 0 {
		label := labels[0]
		partsPT = append(partsPT, label)
		if en, ok := estiloEN[label]; ok {
			partsEN = append(partsEN, en)
		} else {
			partsEN = append(partsEN, label)
		}
	}

	if labels := p.Categories["clima_social"].Labels; len(labels) > 0 {
		label := labels[0]
		if pt, ok := climaPTSuffix[label]; ok {
			partsPT = append(partsPT, pt)
			partsEN = append(partsEN, climaENSuffix[label])
		}
	}

	if labels := p.Categories["music_format"].Labels; len(labels) > 0 {
		fmtLabel := labels[0]
		if en, ok := formatEN[fmtLabel]; ok {
			partsPT = append(partsPT, fmt.Sprintf("com %s", strings.ToLower(fmtLabel)))
			partsEN = append(partsEN, en)
		}
	}

	if len(partsPT) > 0 {
		p.VibeShortPT = capRunes(strings.Join(partsPT, " "), maxBlurbLen)
	}
	if len(partsEN) > 0 {
		p.VibeShortEN = capRunes(strings.Join(partsEN, " "), maxBlurbLen)
	}
}

func capRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
