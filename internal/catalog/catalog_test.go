package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	require.Equal(t, 7, c.Len())

	for i, q := range c.Questions() {
		assert.Equal(t, i, q.ID, "ids are positions")
	}

	assert.Equal(t, 1, c.EmailQuestion())

	phone, ok := c.Question(2)
	require.True(t, ok)
	assert.Equal(t, ValidationNumeric, phone.Validation)

	appliance, _ := c.Question(5)
	assert.Equal(t, KindSingleChoice, appliance.Kind)
	assert.Len(t, appliance.Choices, 4)

	photos, _ := c.Question(6)
	assert.Equal(t, KindMultiImage, photos.Kind)
	assert.Contains(t, photos.AuxiliaryMarkdown(), "![Front teeth example](")
}

func TestQuestionOutOfRange(t *testing.T) {
	c := Default()
	_, ok := c.Question(-1)
	assert.False(t, ok)
	_, ok = c.Question(c.Len())
	assert.False(t, ok)
}

func TestQuestionsReturnsCopies(t *testing.T) {
	c := Default()
	qs := c.Questions()
	qs[5].Choices[0].Value = "mutated"
	qs[0].Prompt = "mutated"

	again, _ := c.Question(5)
	assert.Equal(t, "Invisalign/Clear Aligners", again.Choices[0].Value)
	first, _ := c.Question(0)
	assert.NotEqual(t, "mutated", first.Prompt)
}

func TestParseDefaultsValidation(t *testing.T) {
	c, err := Parse([]byte(`
questions:
  - prompt: "Name?"
    kind: short-text
`))
	require.NoError(t, err)
	q, _ := c.Question(0)
	assert.Equal(t, ValidationText, q.Validation)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "questions: []"},
		{"unknown kind", "questions:\n  - {prompt: x, kind: slider}"},
		{"missing prompt", "questions:\n  - {kind: short-text}"},
		{"choice without choices", "questions:\n  - {prompt: x, kind: single-choice}"},
		{"text with choices", "questions:\n  - {prompt: x, kind: short-text, choices: [{label: a, value: a}]}"},
		{"comma in multi value", "questions:\n  - {prompt: x, kind: multi-choice, choices: [{label: a, value: 'a,b'}]}"},
		{"duplicate choice", "questions:\n  - {prompt: x, kind: single-choice, choices: [{label: a, value: a}, {label: b, value: a}]}"},
		{"bad validation", "questions:\n  - {prompt: x, kind: short-text, validation: alpha}"},
		{"email on choice", "questions:\n  - {prompt: x, kind: single-choice, email: true, choices: [{label: a, value: a}]}"},
		{"two emails", "questions:\n  - {prompt: x, kind: short-text, email: true}\n  - {prompt: y, kind: short-text, email: true}"},
		{"not yaml", "questions: [:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("empty path uses embedded", func(t *testing.T) {
		c, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 7, c.Len())
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "q.yaml")
		require.NoError(t, os.WriteFile(path, []byte("questions:\n  - {prompt: Ready?, kind: instruction}\n"), 0644))
		c, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 1, c.Len())
		assert.Equal(t, -1, c.EmailQuestion())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestKindPredicates(t *testing.T) {
	assert.True(t, KindSingleImage.IsImage())
	assert.True(t, KindMultiImage.IsImage())
	assert.False(t, KindShortText.IsImage())
	assert.True(t, KindMultiChoice.IsChoice())
	assert.True(t, KindLongText.HasTextEntry())
	assert.False(t, KindInstruction.HasTextEntry())

	for _, k := range Kinds {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
}
