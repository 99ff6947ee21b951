// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/nbutils/pkg/types"
)

func TestMarkdownDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *types.Document
	}{
		{
			name:  "title, paragraph and fenced code",
			input: "# Title\n\nSome text\n\n```python\nprint(1)\n```\n",
			want: types.NewDocument(
				types.NarrativeCell{Source: "# Title"},
				types.NarrativeCell{Source: "Some text"},
				types.CodeCell{Source: "print(1)"},
			),
		},
		{
			name:  "consecutive lines stay in one cell",
			input: "## Notes\nline one\nline two\n",
			want:  types.NewDocument(types.NarrativeCell{Source: "## Notes\nline one\nline two"}),
		},
		{
			name:  "fence without language and blank lines inside code",
			input: "```\na = 1\n\nb = 2\n```",
			want:  types.NewDocument(types.CodeCell{Source: "a = 1\n\nb = 2"}),
		},
		{
			name:  "tilde fence containing backticks",
			input: "~~~~\n```\nnested\n```\n~~~~\nafter\n",
			want: types.NewDocument(
				types.CodeCell{Source: "```\nnested\n```"},
				types.NarrativeCell{Source: "after"},
			),
		},
		{
			name:  "indented fence strips its indentation",
			input: "  ```py\n  x\n    y\n  ```\n",
			want:  types.NewDocument(types.CodeCell{Source: "x\n  y"}),
		},
		{
			name:  "frontmatter is dropped",
			input: "---\ntitle: Demo\n---\n# Heading\n",
			want:  types.NewDocument(types.NarrativeCell{Source: "# Heading"}),
		},
		{
			name:  "leading thematic break is body",
			input: "---\n# Title\n\nText\n\n---\n\nMore\n",
			want: types.NewDocument(
				types.NarrativeCell{Source: "---\n# Title"},
				types.NarrativeCell{Source: "Text"},
				types.NarrativeCell{Source: "---"},
				types.NarrativeCell{Source: "More"},
			),
		},
		{
			name:  "unclosed leading rule is body",
			input: "---\ntext\n",
			want:  types.NewDocument(types.NarrativeCell{Source: "---\ntext"}),
		},
		{
			name:  "CRLF line endings",
			input: "text\r\n\r\n```\r\ncode\r\n```\r\n",
			want: types.NewDocument(
				types.NarrativeCell{Source: "text"},
				types.CodeCell{Source: "code"},
			),
		},
		{
			name:  "empty input",
			input: "",
			want:  types.NewDocument(),
		},
	}

	c := &MarkdownCodec{FenceLanguage: "python"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Decode("doc.md", []byte(tt.input))
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %+v, want %+v", got.Cells, tt.want.Cells)
		})
	}
}

func TestSplitFrontmatter(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantBody  string
		wantLines int
	}{
		{name: "yaml block", input: "---\ntitle: x\n# comment\n---\n\n# Body\n", wantBody: "\n# Body\n", wantLines: 4},
		{name: "no block", input: "# Body\n", wantBody: "# Body\n"},
		{name: "not at top", input: "\n---\na: 1\n---\n", wantBody: "\n---\na: 1\n---\n"},
		{name: "not a mapping", input: "---\n# Title\n\nText\n\n---\n", wantBody: "---\n# Title\n\nText\n\n---\n"},
		{name: "never closed", input: "---\na: 1\n", wantBody: "---\na: 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, lines := SplitFrontmatter([]byte(tt.input))
			assert.Equal(t, tt.wantBody, string(body))
			assert.Equal(t, tt.wantLines, lines)
		})
	}
}

func TestMarkdownDecodeUnterminatedFence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
	}{
		{name: "plain", input: "intro\n\n```python\nprint(1)\n", wantLine: 3},
		{name: "shorter closing fence", input: "````\ncode\n```\n", wantLine: 1},
		{name: "after frontmatter", input: "---\na: 1\n---\n```\nx\n", wantLine: 4},
	}

	c := &MarkdownCodec{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decode("broken.md", []byte(tt.input))
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, FormatMarkdown, pe.Format)
			assert.Equal(t, "broken.md", pe.Path)
			assert.Equal(t, tt.wantLine, pe.Line)
			assert.Contains(t, pe.Reason, "unterminated code fence")
		})
	}
}

func TestMarkdownEncode(t *testing.T) {
	tests := []struct {
		name string
		doc  *types.Document
		want string
	}{
		{
			name: "narrative and code",
			doc: types.NewDocument(
				types.NarrativeCell{Source: "# Title\n"},
				types.CodeCell{Source: "print(1)"},
				types.NarrativeCell{Source: "Done."},
			),
			want: "# Title\n\n```python\nprint(1)\n```\n\nDone.\n",
		},
		{
			name: "empty code cell",
			doc:  types.NewDocument(types.CodeCell{Source: ""}),
			want: "```python\n```\n",
		},
		{
			name: "code containing a fence gets a longer fence",
			doc:  types.NewDocument(types.CodeCell{Source: "s = '''\n```\n'''"}),
			want: "````python\ns = '''\n```\n'''\n````\n",
		},
		{
			name: "blank narrative cells are dropped",
			doc:  types.NewDocument(types.NarrativeCell{Source: "\n\n"}, types.NarrativeCell{Source: "x"}),
			want: "x\n",
		},
		{
			name: "empty document",
			doc:  types.NewDocument(),
			want: "",
		},
	}

	c := &MarkdownCodec{FenceLanguage: "python"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Encode(tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarkdownEncodedCodeDecodesBack(t *testing.T) {
	c := &MarkdownCodec{FenceLanguage: "python"}
	doc := types.NewDocument(types.CodeCell{Source: "```\ninner\n```"})

	data, err := c.Encode(doc)
	require.NoError(t, err)
	got, err := c.Decode("x.md", data)
	require.NoError(t, err)
	assert.True(t, doc.Equal(got))
}
