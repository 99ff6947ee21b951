// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package headings renumbers Markdown heading levels in narrative text.
//
// A heading is a line starting at column 0 with one to six '#' characters,
// whitespace, and title text. Detection runs through a CommonMark parser,
// so '#' lines inside fenced or indented code are left alone. Levels stay
// within [1,6]: a shift that would leave that range keeps the heading where
// it is and reports it as clamped.
package headings

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/pdiddy/nbutils/internal/codec"
	"github.com/pdiddy/nbutils/pkg/types"
)

const (
	minLevel = 1
	maxLevel = 6
)

// Location identifies one heading line.
type Location struct {
	// Cell is the 1-based position of the narrative cell holding the
	// heading among the document's narrative cells; 0 for plain text.
	Cell  int    `json:"cell,omitempty" yaml:"cell,omitempty"`
	Line  int    `json:"line" yaml:"line"`
	Level int    `json:"level" yaml:"level"`
	Text  string `json:"text" yaml:"text"`
}

func (l Location) String() string {
	if l.Cell > 0 {
		return fmt.Sprintf("cell %d line %d", l.Cell, l.Line)
	}
	return fmt.Sprintf("line %d", l.Line)
}

// Result summarises a shift.
type Result struct {
	// Shifted counts headings whose level changed.
	Shifted int
	// Clamped lists headings left at level 1 or 6 because the shift would
	// have pushed them out of range.
	Clamped []Location
}

var (
	atxLine  = regexp.MustCompile(`^(#{1,6})[ \t]+\S`)
	mdParser = goldmark.New().Parser()
)

// Find returns the headings in src in line order. A leading frontmatter
// block is not searched; line numbers still count from the top of src.
func Find(src string) []Location {
	if !strings.Contains(src, "#") {
		return nil
	}
	body, skipped := codec.SplitFrontmatter([]byte(src))
	root := mdParser.Parse(text.NewReader(body))
	lines := strings.Split(src, "\n")

	var found []Location
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if h.Lines().Len() == 0 {
			return ast.WalkSkipChildren, nil
		}
		start := h.Lines().At(0).Start
		lineStart := bytes.LastIndexByte(body[:start], '\n') + 1
		idx := bytes.Count(body[:lineStart], []byte("\n")) + skipped
		m := atxLine.FindStringSubmatch(lines[idx])
		if m == nil || len(m[1]) != h.Level {
			return ast.WalkSkipChildren, nil
		}
		found = append(found, Location{
			Line:  idx + 1,
			Level: h.Level,
			Text:  strings.TrimSpace(lines[idx]),
		})
		return ast.WalkSkipChildren, nil
	})
	return found
}

// Shift moves every heading in the document's narrative cells by delta
// levels, editing the document in place.
//
// When delta is -1 and force is false, a level-1 heading anywhere in the
// document rejects the whole edit with a *RejectedError and the document
// is left unchanged. With force, level-1 headings stay at level 1 and the
// other headings are still shifted.
func Shift(doc *types.Document, delta int, force bool) (Result, error) {
	if err := checkDelta(delta); err != nil {
		return Result{}, err
	}
	if delta < 0 && !force {
		if locs := documentLevelOne(doc); len(locs) > 0 {
			return Result{}, &RejectedError{Locations: locs}
		}
	}

	var res Result
	cell := 0
	doc.MapNarrative(func(src string) string {
		cell++
		return shiftSource(src, cell, delta, &res)
	})
	return res, nil
}

// ShiftText applies Shift to a whole Markdown text.
func ShiftText(src string, delta int, force bool) (string, Result, error) {
	if err := checkDelta(delta); err != nil {
		return "", Result{}, err
	}
	if delta < 0 && !force {
		if locs := levelOne(src, 0); len(locs) > 0 {
			return src, Result{}, &RejectedError{Locations: locs}
		}
	}
	var res Result
	return shiftSource(src, 0, delta, &res), res, nil
}

func checkDelta(delta int) error {
	if delta != 1 && delta != -1 {
		return fmt.Errorf("%w: got %d", ErrInvalidDelta, delta)
	}
	return nil
}

// documentLevelOne collects the level-1 headings of every narrative cell.
func documentLevelOne(doc *types.Document) []Location {
	var locs []Location
	cell := 0
	for _, c := range doc.Cells {
		n, ok := c.(types.NarrativeCell)
		if !ok {
			continue
		}
		cell++
		locs = append(locs, levelOne(n.Source, cell)...)
	}
	return locs
}

func levelOne(src string, cell int) []Location {
	var locs []Location
	for _, h := range Find(src) {
		if h.Level == minLevel {
			h.Cell = cell
			locs = append(locs, h)
		}
	}
	return locs
}

// shiftSource rewrites the '#' run of each heading in src. Bytes outside
// the runs are kept as they are.
func shiftSource(src string, cell, delta int, res *Result) string {
	found := Find(src)
	if len(found) == 0 {
		return src
	}
	lines := strings.Split(src, "\n")
	for _, h := range found {
		h.Cell = cell
		next := h.Level + delta
		if next < minLevel || next > maxLevel {
			res.Clamped = append(res.Clamped, h)
			continue
		}
		line := lines[h.Line-1]
		lines[h.Line-1] = strings.Repeat("#", next) + line[h.Level:]
		res.Shifted++
	}
	return strings.Join(lines, "\n")
}
