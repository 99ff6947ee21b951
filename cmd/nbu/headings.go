// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pdiddy/nbutils/internal/headings"
)

var incHeadsCmd = &cobra.Command{
	Use:   "inc-heads <file...>",
	Short: "Increase the level of every Markdown heading (# -> ##)",
	Long: `inc-heads adds one '#' to every heading in the given Markdown files and
notebook text cells. Headings already at level 6 stay at level 6 and are
reported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShift(cmd, args, 1, false)
	},
}

var decHeadsCmd = &cobra.Command{
	Use:   "dec-heads <file...>",
	Short: "Decrease the level of every Markdown heading (## -> #)",
	Long: `dec-heads removes one '#' from every heading in the given Markdown files
and notebook text cells.

A level-1 heading cannot go lower. When any file has one, dec-heads lists
them and asks for confirmation before changing anything; -f skips the
question. Confirmed or forced, level-1 headings stay at level 1 and the
other headings are still decreased.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		return runShift(cmd, args, -1, force)
	},
}

func init() {
	decHeadsCmd.Flags().BoolP("force", "f", false, "decrease without asking when level-1 headings are present")

	rootCmd.AddCommand(incHeadsCmd)
	rootCmd.AddCommand(decHeadsCmd)
}

func runShift(cmd *cobra.Command, paths []string, delta int, force bool) error {
	fs := afero.NewOsFs()
	out := cmd.OutOrStdout()

	if delta < 0 && !force {
		blocked := 0
		for _, path := range paths {
			locs, err := headings.CheckFile(fs, path)
			if err != nil {
				// Reported again by the shift pass below.
				continue
			}
			for _, loc := range locs {
				fmt.Fprintf(out, "warning: %s %s: %q is already level 1\n", path, loc, loc.Text)
				blocked++
			}
		}
		if blocked > 0 {
			if !confirm(cmd.InOrStdin(), out, "Level-1 headings will stay at level 1. Decrease the other headings anyway? [y/N] ") {
				fmt.Fprintln(out, "cancelled: no files modified")
				return nil
			}
			force = true
		}
	}

	failed := 0
	for _, path := range paths {
		res, err := headings.ShiftFile(fs, path, delta, force)
		if err != nil {
			fmt.Fprintf(out, "failed:  %s (%v)\n", path, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "updated: %s (%d heading(s) shifted)\n", path, res.Shifted)
		for _, loc := range res.Clamped {
			fmt.Fprintf(out, "warning: %s %s: %q kept at level %d\n", path, loc, loc.Text, loc.Level)
		}
		logger.Debug("shifted headings", "path", path, "delta", delta, "shifted", res.Shifted, "clamped", len(res.Clamped))
	}

	if failed > 0 {
		return fmt.Errorf("%d file(s) failed", failed)
	}
	return nil
}

// confirm prints prompt and reports whether the next input line is y or
// yes. End of input counts as no.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
