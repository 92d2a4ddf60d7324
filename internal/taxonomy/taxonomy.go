// Package taxonomy holds the fixed vibe vocabulary and its validators.
//
// The registry is built once from the embedded YAML file and handed out as a
// read-only value; classifier output is filtered against it so only known
// labels ever reach a persisted profile.
package taxonomy

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var taxonomyYAML []byte

// Category is one facet of the fixed taxonomy.
type Category struct {
	Key    string   `yaml:"key"`
	Name   string   `yaml:"name"`
	Labels []string `yaml:"labels"`
}

// Registry is the immutable category→vocabulary mapping. Build it once at
// process start via Load or Default; it must never be mutated afterwards.
type Registry struct {
	categories []Category
	labelSets  map[string]map[string]struct{}
	allLabels  map[string]struct{}
}

// Load parses a YAML vocabulary into a Registry.
func Load(data []byte) (*Registry, error) {
	var doc struct {
		Categories []Category `yaml:"categories"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "taxonomy: unmarshal vocabulary")
	}
	if len(doc.Categories) == 0 {
		return nil, eris.New("taxonomy: vocabulary has no categories")
	}

	r := &Registry{
		categories: doc.Categories,
		labelSets:  make(map[string]map[string]struct{}, len(doc.Categories)),
		allLabels:  make(map[string]struct{}),
	}
	for _, c := range doc.Categories {
		if c.Key == "" {
			return nil, eris.New("taxonomy: category with empty key")
		}
		if _, dup := r.labelSets[c.Key]; dup {
			return nil, eris.Errorf("taxonomy: duplicate category key %q", c.Key)
		}
		set := make(map[string]struct{}, len(c.Labels))
		for _, l := range c.Labels {
			set[l] = struct{}{}
			r.allLabels[l] = struct{}{}
		}
		r.labelSets[c.Key] = set
	}
	return r, nil
}

// Default builds the registry from the embedded vocabulary. The embedded file
// is part of the build, so a parse failure is a programming error.
func Default() *Registry {
	r, err := Load(taxonomyYAML)
	if err != nil {
		panic(err)
	}
	return r
}

// Categories returns the category keys in vocabulary order.
func (r *Registry) Categories() []string {
	keys := make([]string, len(r.categories))
	for i, c := range r.categories {
		keys[i] = c.Key
	}
	return keys
}

// LabelsFor returns the permitted labels for a category in vocabulary order.
// Unknown categories return nil.
func (r *Registry) LabelsFor(key string) []string {
	for _, c := range r.categories {
		if c.Key == key {
			return append([]string(nil), c.Labels...)
		}
	}
	return nil
}

// Has reports whether a label belongs to a category's vocabulary.
func (r *Registry) Has(key, label string) bool {
	_, ok := r.labelSets[key][label]
	return ok
}

// Validate filters candidate labels down to the category's vocabulary,
// preserving input order. Unknown categories yield an empty result.
func (r *Registry) Validate(key string, candidates []string) []string {
	set := r.labelSets[key]
	var out []string
	for _, label := range candidates {
		if _, ok := set[label]; ok {
			out = append(out, label)
		}
	}
	return out
}

// ValidateTopVibes filters candidates against the union of all category
// vocabularies, preserving input order.
func (r *Registry) ValidateTopVibes(candidates []string) []string {
	var out []string
	for _, label := range candidates {
		if _, ok := r.allLabels[label]; ok {
			out = append(out, label)
		}
	}
	return out
}

// PromptBlock renders the vocabulary as a prompt section so the classifier
// prompts always match the registry.
func (r *Registry) PromptBlock() string {
	var b strings.Builder
	for _, c := range r.categories {
		b.WriteString("### ")
		b.WriteString(c.Name)
		b.WriteString(" (")
		b.WriteString(c.Key)
		b.WriteString(")\n")
		b.WriteString(strings.Join(c.Labels, ", "))
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
