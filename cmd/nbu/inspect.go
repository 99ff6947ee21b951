// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pdiddy/nbutils/internal/codec"
	"github.com/pdiddy/nbutils/internal/headings"
	"github.com/pdiddy/nbutils/pkg/types"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "List the cells nbu reads from a notebook, Markdown or source file",
	Long: `Inspect decodes a file the way convert would and prints its cells:
index, kind, line count and first line, followed by the headings found in
its narrative cells. With --json the cells are printed as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().Bool("json", false, "print cells as JSON")

	rootCmd.AddCommand(inspectCmd)
}

// cellView is the JSON shape of one inspected cell.
type cellView struct {
	Index  int              `json:"index"`
	Kind   types.CellKind   `json:"kind"`
	Source string           `json:"source"`
	Heads  []headingSummary `json:"headings,omitempty"`
}

type headingSummary struct {
	Line  int    `json:"line"`
	Level int    `json:"level"`
	Text  string `json:"text"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]
	c, err := codec.NewRegistry(cfg).ForPath(path)
	if err != nil {
		return err
	}
	data, err := afero.ReadFile(afero.NewOsFs(), path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := c.Decode(path, data)
	if err != nil {
		return err
	}

	views := make([]cellView, doc.Len())
	for i, cell := range doc.Cells {
		views[i] = cellView{Index: i + 1, Kind: cell.Kind(), Source: cell.Text()}
		if cell.Kind() == types.KindNarrative {
			for _, h := range headings.Find(cell.Text()) {
				views[i].Heads = append(views[i].Heads, headingSummary{Line: h.Line, Level: h.Level, Text: h.Text})
			}
		}
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}
	printCells(cmd.OutOrStdout(), path, c.Format(), doc, views)
	return nil
}

func printCells(w io.Writer, path string, format codec.Format, doc *types.Document, views []cellView) {
	fmt.Fprintf(w, "%s: %s, %d cell(s) (%d code, %d narrative)\n",
		path, format, doc.Len(), doc.Count(types.KindCode), doc.Count(types.KindNarrative))
	for _, v := range views {
		lines := strings.Split(v.Source, "\n")
		fmt.Fprintf(w, "%4d  %-9s  %3d line(s)  %s\n", v.Index, v.Kind, len(lines), truncate(lines[0], 60))
	}
	for _, v := range views {
		for _, h := range v.Heads {
			fmt.Fprintf(w, "heading: cell %d line %d level %d  %s\n", v.Index, h.Line, h.Level, h.Text)
		}
	}
}

// truncate shortens s to at most n characters, ending it with "..." when
// anything was cut.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
