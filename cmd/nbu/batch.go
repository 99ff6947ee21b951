// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pdiddy/nbutils/internal/convert"
	"github.com/pdiddy/nbutils/internal/state"
)

// batchKind describes one batch subcommand.
type batchKind struct {
	use       string
	short     string
	sourceExt string
	targetExt string
	outputDir string
}

var batchKinds = []batchKind{
	{use: "batch-md", short: "Convert every notebook in a directory to Markdown", sourceExt: ".ipynb", targetExt: ".md", outputDir: "markdown"},
	{use: "batch-py", short: "Convert every notebook in a directory to a Python source file", sourceExt: ".ipynb", targetExt: ".py", outputDir: "python"},
	{use: "batch-ipynb", short: "Convert every Python source file in a directory to a notebook", sourceExt: ".py", targetExt: ".ipynb", outputDir: "notebooks"},
}

func init() {
	for _, kind := range batchKinds {
		rootCmd.AddCommand(newBatchCmd(kind))
	}
}

func newBatchCmd(kind batchKind) *cobra.Command {
	cmd := &cobra.Command{
		Use:   kind.use + " [dir]",
		Short: kind.short,
		Long: fmt.Sprintf(`%s converts every %s file directly inside dir (default: the current
directory) into a %s file under the output directory, which is created if
needed. Subdirectories are not visited. A file that fails is reported and
the rest of the batch continues; the command exits non-zero if any file
failed.`, kind.use, kind.sourceExt, kind.targetExt),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args, kind)
		},
	}
	cmd.Flags().StringP("output-dir", "o", "", fmt.Sprintf("output directory (default: <dir>/%s)", kind.outputDir))
	cmd.Flags().Int("workers", 0, "files converted at once (default: batch.workers, 0 = number of CPUs)")
	cmd.Flags().Bool("skip-existing", false, "leave existing output files untouched")
	cmd.Flags().Bool("incremental", false, "skip sources unchanged since their last conversion (ledger in <output>/"+state.FileName+")")
	cmd.Flags().String("report", "", "write the batch report to this .yaml or .json file")
	return cmd
}

func runBatch(cmd *cobra.Command, args []string, kind batchKind) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	outDir, _ := cmd.Flags().GetString("output-dir")
	if outDir == "" {
		outDir = filepath.Join(dir, kind.outputDir)
	}

	batch := convert.Batch{
		SourceDir:    dir,
		TargetDir:    outDir,
		SourceExt:    kind.sourceExt,
		TargetExt:    kind.targetExt,
		Workers:      cfg.Batch.Workers,
		SkipExisting: cfg.Batch.SkipExisting,
	}
	if cmd.Flags().Changed("workers") {
		batch.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if skip, _ := cmd.Flags().GetBool("skip-existing"); skip {
		batch.SkipExisting = true
	}

	var opts []convert.Option
	incremental, _ := cmd.Flags().GetBool("incremental")
	if incremental || cfg.Batch.StatePath != "" {
		path := cfg.Batch.StatePath
		if path == "" {
			path = filepath.Join(outDir, state.FileName)
		}
		ledger, err := state.Open(path)
		if err != nil {
			return err
		}
		defer ledger.Close()
		opts = append(opts, convert.WithLedger(ledger))
		logger.Debug("incremental batch", "ledger", path)
	}

	report, err := newConverter(opts...).ConvertBatch(cmd.Context(), batch, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	if reportPath, _ := cmd.Flags().GetString("report"); reportPath != "" {
		if err := report.Export(afero.NewOsFs(), reportPath); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}

	if report.HasFailures() {
		return fmt.Errorf("%d file(s) failed conversion", len(report.Failed))
	}
	return nil
}
