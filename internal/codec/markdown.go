// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codec

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/nbutils/pkg/types"
)

// MarkdownCodec reads and writes Markdown with fenced code blocks.
//
// Text inside a fence becomes a code cell; text outside is split at blank
// lines into narrative cells. Fence info strings are not kept.
type MarkdownCodec struct {
	// FenceLanguage is written after the opening fence of every code cell.
	FenceLanguage string
}

func (c *MarkdownCodec) Format() Format { return FormatMarkdown }

var yamlFrontmatter = frontmatter.NewFormat("---", "---", yaml.Unmarshal)

// Decode splits Markdown into cells. A leading YAML frontmatter block is
// dropped. An unterminated fence is a ParseError naming its opening line.
func (c *MarkdownCodec) Decode(name string, data []byte) (*types.Document, error) {
	body, skipped := SplitFrontmatter(data)

	lines := splitLines(string(body))
	doc := types.NewDocument()
	var para []string
	flush := func() {
		if text := trimBlankLines(para); text != "" {
			doc.Append(types.NarrativeCell{Source: text})
		}
		para = nil
	}

	for i := 0; i < len(lines); i++ {
		open, ok := parseOpeningFence(lines[i])
		if !ok {
			if isBlank(lines[i]) {
				flush()
				continue
			}
			para = append(para, lines[i])
			continue
		}

		flush()
		start := i
		closed := false
		var code []string
		for i++; i < len(lines); i++ {
			if open.closedBy(lines[i]) {
				closed = true
				break
			}
			code = append(code, open.unindent(lines[i]))
		}
		if !closed {
			return nil, &ParseError{
				Path:   name,
				Format: FormatMarkdown,
				Line:   start + 1 + skipped,
				Reason: fmt.Sprintf("unterminated code fence %q", strings.TrimSpace(lines[start])),
			}
		}
		doc.Append(types.CodeCell{Source: strings.Join(code, "\n")})
	}
	flush()
	return doc, nil
}

// SplitFrontmatter separates a leading YAML frontmatter block from the
// Markdown body and reports how many lines the block occupied. The block
// must open with a "---" line at the very top and close with another; when
// it is missing or is not a YAML mapping, as with a document opening on a
// thematic break, all of data is body.
func SplitFrontmatter(data []byte) ([]byte, int) {
	if !hasFrontmatter(data) {
		return data, 0
	}
	var meta map[string]any
	rest, err := frontmatter.Parse(bytes.NewReader(data), &meta, yamlFrontmatter)
	if err != nil || len(rest) >= len(data) {
		return data, 0
	}
	return rest, bytes.Count(data[:len(data)-len(rest)], []byte("\n"))
}

func hasFrontmatter(data []byte) bool {
	lines := splitLines(string(data))
	if len(lines) < 2 || strings.TrimRight(lines[0], " \t") != "---" {
		return false
	}
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "---" {
			return true
		}
	}
	return false
}

// Encode renders narrative cells verbatim and code cells as fenced blocks,
// separated by blank lines.
func (c *MarkdownCodec) Encode(doc *types.Document) ([]byte, error) {
	blocks := make([]string, 0, doc.Len())
	for _, cell := range doc.Cells {
		switch cell := cell.(type) {
		case types.NarrativeCell:
			text := strings.TrimRight(cell.Source, "\n")
			if strings.TrimSpace(text) == "" {
				continue
			}
			blocks = append(blocks, text)
		case types.CodeCell:
			code := strings.TrimRight(cell.Source, "\n")
			fence := fenceFor(code)
			var b strings.Builder
			b.WriteString(fence)
			b.WriteString(c.FenceLanguage)
			b.WriteByte('\n')
			if code != "" {
				b.WriteString(code)
				b.WriteByte('\n')
			}
			b.WriteString(fence)
			blocks = append(blocks, b.String())
		default:
			return nil, fmt.Errorf("encoding markdown: unexpected cell %T", cell)
		}
	}
	if len(blocks) == 0 {
		return []byte{}, nil
	}
	return []byte(strings.Join(blocks, "\n\n") + "\n"), nil
}

// fenceFor returns a backtick fence longer than any backtick run that
// starts a line of code.
func fenceFor(code string) string {
	n := 3
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimLeft(line, " ")
		run := len(trimmed) - len(strings.TrimLeft(trimmed, "`"))
		if run >= n {
			n = run + 1
		}
	}
	return strings.Repeat("`", n)
}

// fence is an opening code fence.
type fence struct {
	char   byte
	length int
	indent int
}

// parseOpeningFence recognises a CommonMark fence opener: up to three
// spaces, then at least three backticks or tildes, then an optional info
// string. Backtick info strings may not contain backticks.
func parseOpeningFence(line string) (fence, bool) {
	indent := len(line) - len(strings.TrimLeft(line, " "))
	if indent > 3 {
		return fence{}, false
	}
	rest := line[indent:]
	if rest == "" || (rest[0] != '`' && rest[0] != '~') {
		return fence{}, false
	}
	ch := rest[0]
	n := len(rest) - len(strings.TrimLeft(rest, string(ch)))
	if n < 3 {
		return fence{}, false
	}
	if ch == '`' && strings.Contains(rest[n:], "`") {
		return fence{}, false
	}
	return fence{char: ch, length: n, indent: indent}, true
}

// closedBy reports whether line closes the fence: up to three spaces, a
// run of the same character at least as long, then only whitespace.
func (f fence) closedBy(line string) bool {
	indent := len(line) - len(strings.TrimLeft(line, " "))
	if indent > 3 {
		return false
	}
	rest := line[indent:]
	n := len(rest) - len(strings.TrimLeft(rest, string(f.char)))
	return n >= f.length && strings.TrimSpace(rest[n:]) == ""
}

// unindent removes up to the fence's own indentation from a content line.
func (f fence) unindent(line string) string {
	for i := 0; i < f.indent && strings.HasPrefix(line, " "); i++ {
		line = line[1:]
	}
	return line
}
