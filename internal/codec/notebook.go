// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/nbutils/pkg/types"
)

const (
	nbformatMajor    = 4
	cellTypeCode     = "code"
	cellTypeMarkdown = "markdown"
)

// NotebookCodec reads and writes Jupyter notebooks (nbformat 4).
//
// Decoding keeps only code and markdown cells; raw cells and unknown cell
// types are skipped. Encoding writes a minimal notebook: no outputs, no
// execution counts, and kernel metadata for Language.
type NotebookCodec struct {
	Language Language
	// Minor is the nbformat minor version written. From 5 on, cells get ids.
	Minor int
	// NewID generates cell ids. Nil disables ids.
	NewID func() string
}

func (c *NotebookCodec) Format() Format { return FormatNotebook }

type rawNotebook struct {
	Cells    []json.RawMessage `json:"cells"`
	NBFormat int               `json:"nbformat"`
}

type rawCell struct {
	CellType *string        `json:"cell_type"`
	Source   json.RawMessage `json:"source"`
}

// Decode parses notebook JSON into a Document.
func (c *NotebookCodec) Decode(name string, data []byte) (*types.Document, error) {
	var nb rawNotebook
	if err := json.Unmarshal(data, &nb); err != nil {
		return nil, c.jsonError(name, data, err)
	}
	if nb.NBFormat != 0 && nb.NBFormat < nbformatMajor {
		return nil, c.parseError(name, fmt.Sprintf("nbformat %d is not supported (need %d)", nb.NBFormat, nbformatMajor))
	}
	if nb.Cells == nil {
		return nil, c.parseError(name, `missing "cells" array`)
	}

	doc := types.NewDocument()
	for i, raw := range nb.Cells {
		var cell rawCell
		if err := json.Unmarshal(raw, &cell); err != nil {
			return nil, c.parseError(name, fmt.Sprintf("cell %d: %v", i+1, err))
		}
		if cell.CellType == nil {
			return nil, c.parseError(name, fmt.Sprintf(`cell %d: missing "cell_type"`, i+1))
		}
		if *cell.CellType != cellTypeCode && *cell.CellType != cellTypeMarkdown {
			continue
		}
		src, _, err := decodeSource(cell.Source)
		if err != nil {
			return nil, c.parseError(name, fmt.Sprintf("cell %d: %v", i+1, err))
		}
		if *cell.CellType == cellTypeCode {
			doc.Append(types.CodeCell{Source: src})
		} else {
			doc.Append(types.NarrativeCell{Source: src})
		}
	}
	return doc, nil
}

// decodeSource accepts either a JSON string or an array of strings, which
// are concatenated. isList reports which form was found.
func decodeSource(raw json.RawMessage) (src string, isList bool, err error) {
	if len(raw) == 0 {
		return "", false, errors.New(`missing "source"`)
	}
	if err := json.Unmarshal(raw, &src); err == nil {
		return src, false, nil
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err != nil {
		return "", false, errors.New(`"source" must be a string or a list of strings`)
	}
	return strings.Join(lines, ""), true, nil
}

type kernelSpec struct {
	DisplayName string `json:"display_name"`
	Language    string `json:"language"`
	Name        string `json:"name"`
}

type languageInfo struct {
	FileExtension string `json:"file_extension"`
	MIMEType      string `json:"mimetype"`
	Name          string `json:"name"`
}

type notebookMetadata struct {
	KernelSpec   *kernelSpec   `json:"kernelspec,omitempty"`
	LanguageInfo *languageInfo `json:"language_info,omitempty"`
}

type notebookFile struct {
	Cells         []map[string]any `json:"cells"`
	Metadata      notebookMetadata `json:"metadata"`
	NBFormat      int              `json:"nbformat"`
	NBFormatMinor int              `json:"nbformat_minor"`
}

// Encode renders doc as notebook JSON with one-space indentation, the
// layout Jupyter itself writes.
func (c *NotebookCodec) Encode(doc *types.Document) ([]byte, error) {
	nb := notebookFile{
		Cells:         make([]map[string]any, 0, doc.Len()),
		Metadata:      c.metadata(),
		NBFormat:      nbformatMajor,
		NBFormatMinor: c.Minor,
	}
	for _, cell := range doc.Cells {
		out := map[string]any{
			"metadata": map[string]any{},
			"source":   sourceLines(cell.Text()),
		}
		switch cell := cell.(type) {
		case types.CodeCell:
			out["cell_type"] = cellTypeCode
			out["execution_count"] = nil
			out["outputs"] = []any{}
		case types.NarrativeCell:
			out["cell_type"] = cellTypeMarkdown
		default:
			return nil, fmt.Errorf("encoding notebook: unexpected cell %T", cell)
		}
		if c.Minor >= 5 && c.NewID != nil {
			out["id"] = c.NewID()
		}
		nb.Cells = append(nb.Cells, out)
	}
	return marshalNotebook(nb)
}

func (c *NotebookCodec) metadata() notebookMetadata {
	if c.Language.Name == "" {
		return notebookMetadata{}
	}
	return notebookMetadata{
		KernelSpec: &kernelSpec{
			DisplayName: c.Language.DisplayName,
			Language:    c.Language.Name,
			Name:        c.Language.KernelName,
		},
		LanguageInfo: &languageInfo{
			FileExtension: c.Language.Extension,
			MIMEType:      c.Language.MIMEType,
			Name:          c.Language.Name,
		},
	}
}

// sourceLines splits text the way nbformat stores it: every line keeps its
// newline except the last.
func sourceLines(text string) []string {
	lines := []string{}
	for text != "" {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			lines = append(lines, text)
			break
		}
		lines = append(lines, text[:i+1])
		text = text[i+1:]
	}
	return lines
}

func marshalNotebook(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", " ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("marshaling notebook: %w", err)
	}
	return buf.Bytes(), nil
}

// marshalCompact encodes v without HTML escaping so raw messages keep the
// characters Jupyter wrote.
func marshalCompact(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// RewriteNarrative applies fn to the source of every markdown cell of the
// notebook in data and returns the updated JSON. Outputs, metadata, ids
// and unknown cell types are kept as they were, and each source keeps its
// string or list form.
func (c *NotebookCodec) RewriteNarrative(name string, data []byte, fn func(string) string) ([]byte, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, c.jsonError(name, data, err)
	}
	rawCells, ok := top["cells"]
	if !ok {
		return nil, c.parseError(name, `missing "cells" array`)
	}
	var cells []map[string]json.RawMessage
	if err := json.Unmarshal(rawCells, &cells); err != nil {
		return nil, c.parseError(name, fmt.Sprintf(`"cells": %v`, err))
	}

	for i, cell := range cells {
		var cellType string
		if err := json.Unmarshal(cell["cell_type"], &cellType); err != nil || cellType != cellTypeMarkdown {
			continue
		}
		src, isList, err := decodeSource(cell["source"])
		if err != nil {
			return nil, c.parseError(name, fmt.Sprintf("cell %d: %v", i+1, err))
		}
		updated := fn(src)
		if updated == src {
			continue
		}
		var encoded []byte
		if isList {
			encoded, err = marshalCompact(sourceLines(updated))
		} else {
			encoded, err = marshalCompact(updated)
		}
		if err != nil {
			return nil, fmt.Errorf("encoding cell %d source: %w", i+1, err)
		}
		cell["source"] = encoded
	}

	encodedCells, err := marshalCompact(cells)
	if err != nil {
		return nil, fmt.Errorf("encoding cells: %w", err)
	}
	top["cells"] = encodedCells
	return marshalNotebook(top)
}

func (c *NotebookCodec) parseError(name, reason string) error {
	return &ParseError{Path: name, Format: FormatNotebook, Reason: reason}
}

func (c *NotebookCodec) jsonError(name string, data []byte, err error) error {
	pe := &ParseError{Path: name, Format: FormatNotebook, Reason: err.Error()}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		pe.Line, pe.Column = lineCol(data, syntaxErr.Offset)
		pe.Reason = "invalid JSON: " + syntaxErr.Error()
	case errors.As(err, &typeErr):
		pe.Line, pe.Column = lineCol(data, typeErr.Offset)
		if typeErr.Field == "" {
			pe.Reason = "notebook must be a JSON object, found " + typeErr.Value
		} else {
			pe.Reason = fmt.Sprintf("unexpected JSON %s for %q", typeErr.Value, typeErr.Field)
		}
	}
	return pe
}
