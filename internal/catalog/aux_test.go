package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLToMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "image",
			in:   `<div><img src="https://example.com/t1.jpg" alt="Front teeth example"></div>`,
			want: "![Front teeth example](https://example.com/t1.jpg)",
		},
		{
			name: "heading and paragraph",
			in:   `<h2>Tips</h2><p>Use   natural light.</p>`,
			want: "## Tips\n\nUse natural light.",
		},
		{
			name: "list",
			in:   `<ul><li>Front</li><li>Left</li></ul>`,
			want: "- Front\n- Left",
		},
		{
			name: "link",
			in:   `<p>See <a href="https://example.com/about/">about us</a></p>`,
			want: "See [about us](https://example.com/about/)",
		},
		{
			name: "script dropped",
			in:   `<p>Hi</p><script>alert(1)</script>`,
			want: "Hi",
		},
		{
			name: "emphasis",
			in:   `<p><strong>Optional</strong> step</p>`,
			want: "**Optional** step",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HTMLToMarkdown(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuxiliaryMarkdownPrefersMarkdown(t *testing.T) {
	q := Question{Auxiliary: "plain", AuxiliaryHTML: "<p>html</p>"}
	assert.Equal(t, "plain", q.AuxiliaryMarkdown())
	assert.Empty(t, Question{}.AuxiliaryMarkdown())
}
