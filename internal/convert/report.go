// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/nbutils/internal/fsutil"
)

// Failure is a source file that could not be converted.
type Failure struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
}

// Report holds the outcome of a batch conversion. Each list is sorted by
// source path.
type Report struct {
	Converted []string  `json:"converted" yaml:"converted"`
	Skipped   []string  `json:"skipped" yaml:"skipped"`
	Failed    []Failure `json:"failed" yaml:"failed"`
}

// Total returns the number of files processed.
func (r Report) Total() int {
	return len(r.Converted) + len(r.Skipped) + len(r.Failed)
}

// HasFailures reports whether any file failed conversion.
func (r Report) HasFailures() bool {
	return len(r.Failed) > 0
}

// Export writes the report to path as YAML (.yaml, .yml) or JSON (.json).
func (r Report) Export(fs afero.Fs, path string) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
	case ".json":
		data, err = json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		data = append(data, '\n')
	default:
		return fmt.Errorf("report %s: extension must be .yaml, .yml or .json", path)
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	return fsutil.WriteFileAtomic(fs, path, data, 0o644)
}
