package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_HasEightCategories(t *testing.T) {
	r := Default()

	assert.Equal(t, []string{
		"publico", "musica", "music_format", "estilo_do_lugar",
		"estetica", "intencao", "dress_code", "clima_social",
	}, r.Categories())
}

func TestValidate_DropsUnknownLabelsPreservingOrder(t *testing.T) {
	r := Default()

	got := r.Validate("estetica", []string{"Neon", "Underground", "Cyberpunk", "Retrô"})

	assert.Equal(t, []string{"Neon", "Underground", "Retrô"}, got)
}

func TestValidate_LabelFromAnotherCategoryIsDropped(t *testing.T) {
	r := Default()

	// "Underground" is estetica vocabulary, not estilo_do_lugar.
	got := r.Validate("estilo_do_lugar", []string{"Underground"})

	assert.Empty(t, got)
}

func TestValidate_UnknownCategory(t *testing.T) {
	r := Default()

	assert.Empty(t, r.Validate("nope", []string{"Neon"}))
}

func TestValidateTopVibes_UnionOfAllCategories(t *testing.T) {
	r := Default()

	got := r.ValidateTopVibes([]string{"Pra dançar", "Balada", "Made Up", "Neon"})

	assert.Equal(t, []string{"Pra dançar", "Balada", "Neon"}, got)
}

func TestLabelsFor(t *testing.T) {
	r := Default()

	labels := r.LabelsFor("clima_social")

	require.Len(t, labels, 6)
	assert.Contains(t, labels, "Tranquilo")
	assert.Nil(t, r.LabelsFor("missing"))
}

func TestLoad_RejectsDuplicateKeys(t *testing.T) {
	_, err := Load([]byte(`
categories:
  - key: a
    labels: [x]
  - key: a
    labels: [y]
`))
	assert.Error(t, err)
}

func TestLoad_RejectsEmptyVocabulary(t *testing.T) {
	_, err := Load([]byte(`categories: []`))
	assert.Error(t, err)
}

func TestPromptBlock_ListsEveryCategory(t *testing.T) {
	r := Default()

	block := r.PromptBlock()

	for _, key := range r.Categories() {
		assert.Contains(t, block, "("+key+")")
	}
	assert.Contains(t, block, "Boteco raiz")
}
