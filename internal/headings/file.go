// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package headings

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/pdiddy/nbutils/internal/codec"
	"github.com/pdiddy/nbutils/internal/fsutil"
)

// ShiftFile shifts the headings of the Markdown or notebook file at path
// and writes it back in place. Markdown files are edited as raw text;
// notebooks are edited cell by cell inside their JSON so outputs and
// metadata survive. A rejected file, or one with nothing to shift, is not
// written.
func ShiftFile(fs afero.Fs, path string, delta int, force bool) (Result, error) {
	if err := checkDelta(delta); err != nil {
		return Result{}, err
	}

	var shift func(data []byte) ([]byte, Result, error)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		shift = func(data []byte) ([]byte, Result, error) {
			out, res, err := ShiftText(string(data), delta, force)
			return []byte(out), res, err
		}
	case ".ipynb":
		shift = func(data []byte) ([]byte, Result, error) {
			return shiftNotebook(path, data, delta, force)
		}
	default:
		return Result{}, fmt.Errorf("%s: %w", path, ErrUnsupportedFile)
	}

	info, err := fs.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("reading %s: %w", path, err)
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Result{}, fmt.Errorf("reading %s: %w", path, err)
	}

	out, res, err := shift(data)
	if err != nil {
		var rej *RejectedError
		if errors.As(err, &rej) {
			rej.Path = path
		}
		return Result{}, err
	}
	if res.Shifted == 0 {
		return res, nil
	}
	if err := fsutil.WriteFileAtomic(fs, path, out, info.Mode().Perm()); err != nil {
		return Result{}, err
	}
	return res, nil
}

// CheckFile reports the level-1 headings a decrease of the file at path
// would have to clamp, without modifying it.
func CheckFile(fs afero.Fs, path string) ([]Location, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return levelOne(string(data), 0), nil
	case ".ipynb":
		doc, err := (&codec.NotebookCodec{}).Decode(path, data)
		if err != nil {
			return nil, err
		}
		return documentLevelOne(doc), nil
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFile)
	}
}

// shiftNotebook decodes the notebook to apply the level-1 guard over all
// narrative cells, then rewrites the markdown cells in the original JSON.
func shiftNotebook(path string, data []byte, delta int, force bool) ([]byte, Result, error) {
	nb := &codec.NotebookCodec{}
	doc, err := nb.Decode(path, data)
	if err != nil {
		return nil, Result{}, err
	}
	if delta < 0 && !force {
		if locs := documentLevelOne(doc); len(locs) > 0 {
			return nil, Result{}, &RejectedError{Locations: locs}
		}
	}

	var res Result
	cell := 0
	out, err := nb.RewriteNarrative(path, data, func(src string) string {
		cell++
		return shiftSource(src, cell, delta, &res)
	})
	if err != nil {
		return nil, Result{}, err
	}
	return out, res, nil
}
