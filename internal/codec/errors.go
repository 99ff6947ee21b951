// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codec

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the typed errors below through errors.Is.
var (
	ErrMalformed   = errors.New("malformed document")
	ErrUnsupported = errors.New("unsupported conversion")
)

// ParseError reports a source document that does not follow its format.
type ParseError struct {
	Path   string
	Format Format
	// Line and Column are 1-based; zero means unknown.
	Line   int
	Column int
	Reason string
}

func (e *ParseError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "<input>"
	}
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Line)
		if e.Column > 0 {
			loc = fmt.Sprintf("%s:%d", loc, e.Column)
		}
	}
	return fmt.Sprintf("parsing %s %s: %s", e.Format, loc, e.Reason)
}

// Is makes errors.Is(err, ErrMalformed) true for every ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformed
}

// UnsupportedConversionError reports a pair of formats with no conversion
// path between them.
type UnsupportedConversionError struct {
	From Format
	To   Format
}

func (e *UnsupportedConversionError) Error() string {
	return fmt.Sprintf("unsupported conversion from %s to %s", e.From, e.To)
}

// Is makes errors.Is(err, ErrUnsupported) true for every
// UnsupportedConversionError.
func (e *UnsupportedConversionError) Is(target error) bool {
	return target == ErrUnsupported
}

// lineCol converts a byte offset in data to a 1-based line and column.
func lineCol(data []byte, offset int64) (line, col int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	line, col = 1, 1
	for _, b := range data[:offset] {
		if b == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
