// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert <source> <target>",
	Short: "Convert one file between notebook, Markdown and source formats",
	Long: `Convert reads source and writes target, choosing both formats from the
file extensions. Supported conversions:

  .ipynb -> .md, .py/.r/.jl
  .py/.r/.jl -> .ipynb, .md

Markdown cannot yet be converted back to a notebook or source file. The
target is written only when the conversion succeeds.`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	src, dst := args[0], args[1]
	if err := newConverter().ConvertFile(cmd.Context(), src, dst); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "converted: %s -> %s\n", src, dst)
	return nil
}
