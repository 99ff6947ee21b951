//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Samples converts the notebooks in NBU_SAMPLES (default: samples) to
// Markdown and Python with a freshly built binary, writing the batch
// reports next to the outputs.
func Samples() error {
	mg.Deps(Build)

	dir := os.Getenv("NBU_SAMPLES")
	if dir == "" {
		dir = "samples"
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("samples directory %s: %w", dir, err)
	}

	bin := filepath.Join(binDir, binName)
	for _, target := range []string{"batch-md", "batch-py"} {
		report := filepath.Join(dir, target+"-report.yaml")
		if err := sh.RunV(bin, target, dir, "--incremental", "--report", report); err != nil {
			return fmt.Errorf("%s: %w", target, err)
		}
	}
	return nil
}
