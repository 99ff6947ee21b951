// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the nbu CLI.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/pdiddy/nbutils/internal/convert"
	"github.com/pdiddy/nbutils/internal/logging"
	"github.com/pdiddy/nbutils/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the configuration resolved from defaults, file and environment.
	cfg = types.DefaultConfig()
	// logger carries diagnostics to stderr.
	logger = logging.Discard()
	// configErr holds a config file that exists but could not be read.
	configErr error
)

// rootCmd is the base command for the nbu CLI.
var rootCmd = &cobra.Command{
	Use:   "nbu",
	Short: "Convert between notebooks, Markdown and annotated source files",
	Long: `nbu converts literate documents between Jupyter notebooks (.ipynb),
Markdown (.md) and source files whose narrative lives in line comments
(.py, .r, .jl). It also renumbers Markdown heading levels in Markdown
files and notebook text cells.

Single files are converted with convert; whole directories with batch-md,
batch-py and batch-ipynb.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogger(cmd); err != nil {
			return err
		}
		if configErr != nil {
			return configErr
		}
		loaded, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		cfg = loaded
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug("using config file", "path", used)
		}

		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}))
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./nbutils.yaml or ~/.config/nbutils/nbutils.yaml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
}

func initConfig() {
	configErr = nil
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("nbutils")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "nbutils"))
		}
	}

	setDefaults(viper.GetViper())
	viper.SetEnvPrefix("NBUTILS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			configErr = fmt.Errorf("reading config: %w", err)
		}
	}
}

// setDefaults registers every config key so environment variables bind
// even when no config file sets them.
func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()
	v.SetDefault("markdown.fence_language", d.Markdown.FenceLanguage)
	v.SetDefault("markdown.frontmatter", d.Markdown.Frontmatter)
	v.SetDefault("notebook.nbformat_minor", d.Notebook.NBFormatMinor)
	v.SetDefault("source.language", d.Source.Language)
	v.SetDefault("source.comment_marker", d.Source.CommentMarker)
	v.SetDefault("batch.workers", d.Batch.Workers)
	v.SetDefault("batch.skip_existing", d.Batch.SkipExisting)
	v.SetDefault("batch.state_path", d.Batch.StatePath)
}

// loadConfig decodes v into a validated Config.
func loadConfig(v *viper.Viper) (types.Config, error) {
	c := types.DefaultConfig()
	if err := v.Unmarshal(&c); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

func setupLogger(cmd *cobra.Command) error {
	levelName, _ := cmd.Flags().GetString("log-level")
	formatName, _ := cmd.Flags().GetString("log-format")
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(formatName)
	if err != nil {
		return err
	}
	logger = logging.New(cmd.ErrOrStderr(), level, format)
	slog.SetDefault(logger)
	return nil
}

// newConverter builds a Converter from the resolved configuration.
func newConverter(opts ...convert.Option) *convert.Converter {
	return convert.New(cfg, append([]convert.Option{convert.WithLogger(logger)}, opts...)...)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
