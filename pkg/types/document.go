// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data structures of nbutils: the
// in-memory Document every codec decodes into and encodes from, and the
// configuration structs loaded by the CLI.
package types

// CellKind names the variant of a Cell.
type CellKind string

const (
	KindCode      CellKind = "code"
	KindNarrative CellKind = "narrative"
)

// Cell is one unit of a Document. The set of implementations is closed:
// only CodeCell and NarrativeCell satisfy it, so a switch over both is
// exhaustive.
type Cell interface {
	// Kind reports which variant the cell is.
	Kind() CellKind

	// Text returns the cell's source text.
	Text() string

	cell()
}

// CodeCell holds executable source text.
type CodeCell struct {
	Source string `json:"source" yaml:"source"`
}

func (CodeCell) Kind() CellKind { return KindCode }
func (c CodeCell) Text() string { return c.Source }
func (CodeCell) cell() {}

// NarrativeCell holds Markdown prose: headings, paragraphs, lists.
type NarrativeCell struct {
	Source string `json:"source" yaml:"source"`
}

func (NarrativeCell) Kind() CellKind { return KindNarrative }
func (n NarrativeCell) Text() string { return n.Source }
func (NarrativeCell) cell() {}

// Document is an ordered sequence of cells. Codecs preserve the order on
// every decode and encode.
type Document struct {
	Cells []Cell
}

// NewDocument returns a document holding the given cells in order.
func NewDocument(cells ...Cell) *Document {
	return &Document{Cells: cells}
}

// Append adds cells to the end of the document.
func (d *Document) Append(cells ...Cell) {
	d.Cells = append(d.Cells, cells...)
}

// Len returns the number of cells.
func (d *Document) Len() int {
	return len(d.Cells)
}

// Count returns the number of cells of the given kind.
func (d *Document) Count(kind CellKind) int {
	n := 0
	for _, c := range d.Cells {
		if c.Kind() == kind {
			n++
		}
	}
	return n
}

// MapNarrative replaces the source of every narrative cell with fn applied
// to it. Code cells are left untouched.
func (d *Document) MapNarrative(fn func(string) string) {
	for i, c := range d.Cells {
		if n, ok := c.(NarrativeCell); ok {
			d.Cells[i] = NarrativeCell{Source: fn(n.Source)}
		}
	}
}

// Equal reports whether two documents hold the same cell kinds and sources
// in the same order.
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	if len(d.Cells) != len(other.Cells) {
		return false
	}
	for i := range d.Cells {
		if d.Cells[i].Kind() != other.Cells[i].Kind() || d.Cells[i].Text() != other.Cells[i].Text() {
			return false
		}
	}
	return true
}
