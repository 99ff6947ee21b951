// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fsutil holds filesystem helpers shared by the converter and the
// heading shifter.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, so readers see either the old content or the new content
// and never a partial file. The parent directory must exist.
func WriteFileAtomic(fs afero.Fs, path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		fs.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		fs.Remove(tmpPath)
		return fmt.Errorf("closing temp file for %s: %w", path, err)
	}
	if err := fs.Chmod(tmpPath, perm); err != nil {
		fs.Remove(tmpPath)
		return fmt.Errorf("setting mode on %s: %w", path, err)
	}
	if err := fs.Rename(tmpPath, path); err != nil {
		fs.Remove(tmpPath)
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}

// Exists reports whether path names an existing file or directory.
func Exists(fs afero.Fs, path string) bool {
	_, err := fs.Stat(path)
	return err == nil
}
