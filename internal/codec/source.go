// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codec

import (
	"fmt"
	"strings"

	"github.com/pdiddy/nbutils/pkg/types"
)

// SourceCodec reads and writes source files whose narrative is carried in
// full-line comments.
//
// A run of lines starting with the comment marker at column 0 is a
// narrative cell; a run of any other lines is a code cell. Blank lines
// belong to the run they appear in and never start a new one. Indented
// comments are code, and a shebang on the first line is code.
type SourceCodec struct {
	Language Language
}

func (c *SourceCodec) Format() Format { return FormatSource }

func (c *SourceCodec) marker() string {
	if c.Language.CommentMarker == "" {
		return "#"
	}
	return c.Language.CommentMarker
}

// Decode splits source text into alternating narrative and code cells.
func (c *SourceCodec) Decode(name string, data []byte) (*types.Document, error) {
	marker := c.marker()
	doc := types.NewDocument()

	var run []string
	var runKind types.CellKind
	flush := func() {
		text := trimBlankLines(run)
		run = nil
		if text == "" {
			return
		}
		if runKind == types.KindNarrative {
			doc.Append(types.NarrativeCell{Source: c.uncomment(text)})
		} else {
			doc.Append(types.CodeCell{Source: text})
		}
	}

	for i, line := range splitLines(string(data)) {
		if isBlank(line) {
			if len(run) > 0 {
				run = append(run, line)
			}
			continue
		}
		kind := types.KindCode
		if strings.HasPrefix(line, marker) && !(i == 0 && strings.HasPrefix(line, "#!")) {
			kind = types.KindNarrative
		}
		if len(run) > 0 && kind != runKind {
			flush()
		}
		runKind = kind
		run = append(run, line)
	}
	flush()
	return doc, nil
}

// uncomment strips the marker, and one space after it, from each line.
// Blank lines left at either end are dropped, so a run of bare markers
// yields an empty narrative cell.
func (c *SourceCodec) uncomment(text string) string {
	marker := c.marker()
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, marker+" "):
			lines[i] = line[len(marker)+1:]
		case strings.HasPrefix(line, marker):
			lines[i] = line[len(marker):]
		default:
			lines[i] = ""
		}
	}
	return trimBlankLines(lines)
}

// Encode writes narrative cells as comment blocks and code cells verbatim,
// with a blank line between cells. An empty narrative cell is a lone
// marker line, which keeps the code on either side in separate cells.
func (c *SourceCodec) Encode(doc *types.Document) ([]byte, error) {
	marker := c.marker()
	blocks := make([]string, 0, doc.Len())
	for _, cell := range doc.Cells {
		switch cell := cell.(type) {
		case types.NarrativeCell:
			text := strings.TrimRight(cell.Source, "\n")
			if strings.TrimSpace(text) == "" {
				blocks = append(blocks, marker)
				continue
			}
			lines := strings.Split(text, "\n")
			for i, line := range lines {
				switch {
				case line == "":
					lines[i] = marker
				case strings.HasPrefix(line, marker):
					lines[i] = marker + line
				default:
					lines[i] = marker + " " + line
				}
			}
			blocks = append(blocks, strings.Join(lines, "\n"))
		case types.CodeCell:
			code := strings.TrimRight(cell.Source, "\n")
			if strings.TrimSpace(code) == "" {
				continue
			}
			blocks = append(blocks, code)
		default:
			return nil, fmt.Errorf("encoding %s source: unexpected cell %T", c.Language.Name, cell)
		}
	}
	if len(blocks) == 0 {
		return []byte{}, nil
	}
	return []byte(strings.Join(blocks, "\n\n") + "\n"), nil
}
