// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/nbutils/internal/convert"
	"github.com/pdiddy/nbutils/pkg/types"
)

const cliNotebook = `{
 "cells": [
  {"cell_type": "markdown", "metadata": {}, "source": ["# Title\n", "Intro"]},
  {"cell_type": "code", "execution_count": null, "metadata": {}, "outputs": [], "source": ["print(1)"]}
 ],
 "metadata": {},
 "nbformat": 4,
 "nbformat_minor": 5
}
`

// execute runs the root command with args and stdin, returning everything
// written to stdout and stderr. Flag values are reset afterwards because
// cobra keeps them between executions.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(resetFlags)

	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags() {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(reset)
	}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "nbu dev\n", out)
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	nb := filepath.Join(dir, "nb.ipynb")
	write(t, nb, cliNotebook)

	out, err := execute(t, "", "convert", nb, filepath.Join(dir, "nb.md"))
	require.NoError(t, err)
	assert.Contains(t, out, "converted: ")
	assert.Equal(t, "# Title\nIntro\n\n```python\nprint(1)\n```\n", read(t, filepath.Join(dir, "nb.md")))
}

func TestConvertCommandUnsupported(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "a.md")
	write(t, md, "# Title\n")

	_, err := execute(t, "", "convert", md, filepath.Join(dir, "a.ipynb"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported conversion from markdown to notebook")
	assert.NoFileExists(t, filepath.Join(dir, "a.ipynb"))
}

func TestBatchIpynbCommand(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.py"), "# hello\nx = 1\n")

	out, err := execute(t, "", "batch-ipynb", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Batch summary: 1 converted, 0 skipped, 0 failed (total: 1)")

	var nb struct {
		Cells []struct {
			CellType string   `json:"cell_type"`
			Source   []string `json:"source"`
		} `json:"cells"`
	}
	require.NoError(t, json.Unmarshal([]byte(read(t, filepath.Join(dir, "notebooks", "a.ipynb"))), &nb))
	require.Len(t, nb.Cells, 2)
	assert.Equal(t, "markdown", nb.Cells[0].CellType)
	assert.Equal(t, []string{"hello"}, nb.Cells[0].Source)
	assert.Equal(t, "code", nb.Cells[1].CellType)
	assert.Equal(t, []string{"x = 1"}, nb.Cells[1].Source)
}

func TestBatchMdCommandFailuresAndReport(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "good.ipynb"), cliNotebook)
	write(t, filepath.Join(dir, "bad.ipynb"), "{")
	outDir := filepath.Join(dir, "out")
	reportPath := filepath.Join(dir, "report.yaml")

	out, err := execute(t, "", "batch-md", dir, "-o", outDir, "--report", reportPath, "--workers", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 file(s) failed conversion")
	assert.Contains(t, out, "Batch summary: 1 converted, 0 skipped, 1 failed (total: 2)")
	assert.FileExists(t, filepath.Join(outDir, "good.md"))

	var rep convert.Report
	require.NoError(t, yaml.Unmarshal([]byte(read(t, reportPath)), &rep))
	assert.Equal(t, []string{filepath.Join(dir, "good.ipynb")}, rep.Converted)
	require.Len(t, rep.Failed, 1)
	assert.Equal(t, filepath.Join(dir, "bad.ipynb"), rep.Failed[0].Path)
}

func TestBatchPyIncremental(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "nb.ipynb"), cliNotebook)

	_, err := execute(t, "", "batch-py", dir, "--incremental")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "python", "nb.py"))
	assert.FileExists(t, filepath.Join(dir, "python", ".nbu-state.db"))

	out, err := execute(t, "", "batch-py", dir, "--incremental")
	require.NoError(t, err)
	assert.Contains(t, out, "(unchanged)")
	assert.Contains(t, out, "Batch summary: 0 converted, 1 skipped")
}

func TestIncHeadsCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	write(t, path, "## Sub\n\n###### Deep\n")

	out, err := execute(t, "", "inc-heads", path)
	require.NoError(t, err)
	assert.Equal(t, "### Sub\n\n###### Deep\n", read(t, path))
	assert.Contains(t, out, "1 heading(s) shifted")
	assert.Contains(t, out, `"###### Deep" kept at level 6`)
}

func TestDecHeadsCommand(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
		out   string
	}{
		{name: "declined", stdin: "n\n", want: "# Top\n## Sub\n", out: "cancelled: no files modified"},
		{name: "end of input", stdin: "", want: "# Top\n## Sub\n", out: "cancelled: no files modified"},
		{name: "confirmed", stdin: "yes\n", want: "# Top\n# Sub\n", out: "kept at level 1"},
		{name: "forced", args: []string{"-f"}, want: "# Top\n# Sub\n", out: "updated: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			top := filepath.Join(dir, "top.md")
			plain := filepath.Join(dir, "plain.md")
			write(t, top, "# Top\n## Sub\n")
			write(t, plain, "### Three\n")

			args := append([]string{"dec-heads", top, plain}, tt.args...)
			out, err := execute(t, tt.stdin, args...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.out)
			assert.Equal(t, tt.want, read(t, top))
			if tt.want == "# Top\n## Sub\n" {
				assert.Equal(t, "### Three\n", read(t, plain), "a cancelled run modifies no file")
			} else {
				assert.Equal(t, "## Three\n", read(t, plain))
			}
		})
	}
}

func TestDecHeadsReportsBadFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.md")
	write(t, good, "## Sub\n")

	out, err := execute(t, "", "dec-heads", good, filepath.Join(dir, "missing.md"), filepath.Join(dir, "x.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 file(s) failed")
	assert.Contains(t, out, "failed:  ")
	assert.Equal(t, "# Sub\n", read(t, good))
}

func TestInspectCommand(t *testing.T) {
	dir := t.TempDir()
	nb := filepath.Join(dir, "nb.ipynb")
	write(t, nb, cliNotebook)

	out, err := execute(t, "", "inspect", nb)
	require.NoError(t, err)
	assert.Contains(t, out, "notebook, 2 cell(s) (1 code, 1 narrative)")
	assert.Contains(t, out, "heading: cell 1 line 1 level 1  # Title")

	out, err = execute(t, "", "inspect", nb, "--json")
	require.NoError(t, err)
	var views []cellView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 2)
	assert.Equal(t, types.KindNarrative, views[0].Kind)
	assert.Equal(t, "print(1)", views[1].Source)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "short", input: "x = 1", want: "x = 1"},
		{name: "exact width", input: strings.Repeat("a", 60), want: strings.Repeat("a", 60)},
		{name: "long ascii", input: strings.Repeat("a", 61), want: strings.Repeat("a", 57) + "..."},
		{name: "multibyte", input: strings.Repeat("é", 70), want: strings.Repeat("é", 57) + "..."},
		{name: "multibyte at width", input: strings.Repeat("日本", 30), want: strings.Repeat("日本", 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.input, 60)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{in: "y\n", want: true},
		{in: "YES\n", want: true},
		{in: " y ", want: true},
		{in: "n\n", want: false},
		{in: "\n", want: false},
		{in: "", want: false},
		{in: "yep\n", want: false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		assert.Equal(t, tt.want, confirm(strings.NewReader(tt.in), &out, "? "), "input %q", tt.in)
		assert.True(t, strings.HasPrefix(out.String(), "? "))
	}
}

func TestLoadConfig(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	c, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultConfig(), c)

	v.Set("notebook.nbformat_minor", 4)
	v.Set("batch.workers", 3)
	v.Set("source.language", "julia")
	c, err = loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Notebook.NBFormatMinor)
	assert.Equal(t, 3, c.Batch.Workers)
	assert.Equal(t, "julia", c.Source.Language)

	v.Set("notebook.nbformat_minor", 9)
	_, err = loadConfig(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("NBUTILS_MARKDOWN_FENCE_LANGUAGE", "py3")

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("NBUTILS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	c, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "py3", c.Markdown.FenceLanguage)
}
