package pipeline

import (
	"sort"

	"github.com/crowdsense/vibesense/internal/model"
	"github.com/crowdsense/vibesense/internal/taxonomy"
)

// Decision is the outcome of the escalation gate for one Stage A result.
type Decision struct {
	Escalate  bool
	Uncertain []string // deduplicated, sorted
	Reasons   []string // deduplicated, sorted
}

// Rule is one independent escalation predicate. Eval returns the category
// keys the rule marks uncertain, or nil when the rule does not fire.
type Rule struct {
	Reason string
	Eval   func(r *model.StageResult) []string
}

// Gate decides whether Stage B runs. It is a pure function of the Stage A
// result: same input, same decision, no I/O.
type Gate struct {
	rules []Rule
}

// perCategoryConfidenceFloor: a category that has labels but confidence
// below this is individually uncertain regardless of the global score.
const perCategoryConfidenceFloor = 0.50

// contradiction is one pairwise incompatibility between two category label
// sets. When labelA appears in categoryA and any of labelsB appears in
// categoryB, both categories are marked uncertain.
type contradiction struct {
	categoryA string
	labelA    string
	categoryB string
	labelsB   []string
}

var contradictions = []contradiction{
	{categoryA: "clima_social", labelA: "Tranquilo", categoryB: "intencao", labelsB: []string{"Pra dançar", "Virar a noite"}},
	{categoryA: "publico", labelA: "Família", categoryB: "estilo_do_lugar", labelsB: []string{"Balada", "Club", "Inferninho"}},
	{categoryA: "dress_code", labelA: "Esporte fino", categoryB: "estilo_do_lugar", labelsB: []string{"Boteco raiz", "Inferninho"}},
}

// NewGate builds the escalation gate. photoPrimary is the category subset
// escalated wholesale when global confidence is below threshold; these are
// the categories that benefit most from the high-resolution pass.
func NewGate(threshold float64, photoPrimary []string, reg *taxonomy.Registry) *Gate {
	rules := []Rule{
		{
			Reason: "low_confidence",
			Eval: func(r *model.StageResult) []string {
				if r.OverallConfidence < threshold {
					return append([]string(nil), photoPrimary...)
				}
				return nil
			},
		},
		{
			Reason: "low_category_confidence",
			Eval: func(r *model.StageResult) []string {
				var out []string
				for _, key := range reg.Categories() {
					cat := r.Category(key)
					if len(cat.Labels) > 0 && cat.Confidence < perCategoryConfidenceFloor {
						out = append(out, key)
					}
				}
				return out
			},
		},
	}
	for _, c := range contradictions {
		c := c
		rules = append(rules, Rule{
			Reason: "contradictions",
			Eval: func(r *model.StageResult) []string {
				if !hasLabel(r.Category(c.categoryA).Labels, c.labelA) {
					return nil
				}
				labelsB := r.Category(c.categoryB).Labels
				for _, l := range c.labelsB {
					if hasLabel(labelsB, l) {
						return []string{c.categoryA, c.categoryB}
					}
				}
				return nil
			},
		})
	}
	return &Gate{rules: rules}
}

// Decide evaluates every rule and unions the results. Escalate is true iff
// at least one rule fired.
func (g *Gate) Decide(r *model.StageResult) Decision {
	uncertainSet := make(map[string]struct{})
	reasonSet := make(map[string]struct{})

	for _, rule := range g.rules {
		cats := rule.Eval(r)
		if cats == nil {
			continue
		}
		reasonSet[rule.Reason] = struct{}{}
		for _, c := range cats {
			uncertainSet[c] = struct{}{}
		}
	}

	d := Decision{Escalate: len(reasonSet) > 0}
	for c := range uncertainSet {
		d.Uncertain = append(d.Uncertain, c)
	}
	for r := range reasonSet {
		d.Reasons = append(d.Reasons, r)
	}
	sort.Strings(d.Uncertain)
	sort.Strings(d.Reasons)
	return d
}

func hasLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}
