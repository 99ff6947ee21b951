// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MarkdownConfig holds settings for Markdown output.
type MarkdownConfig struct {
	// FenceLanguage is the info string written on code fences (default "python").
	FenceLanguage string `json:"fence_language" yaml:"fence_language" mapstructure:"fence_language"`

	// Frontmatter adds a YAML frontmatter block recording the source file
	// and conversion time to converted Markdown.
	Frontmatter bool `json:"frontmatter" yaml:"frontmatter" mapstructure:"frontmatter"`
}

// NotebookConfig holds settings for notebook output.
type NotebookConfig struct {
	// NBFormatMinor is the nbformat 4 minor version written (default 5).
	// Minor versions 5 and above carry cell ids.
	NBFormatMinor int `json:"nbformat_minor" yaml:"nbformat_minor" mapstructure:"nbformat_minor"`
}

// SourceConfig holds settings for annotated source files.
type SourceConfig struct {
	// Language is the default language for source files whose extension
	// does not identify one (default "python").
	Language string `json:"language" yaml:"language" mapstructure:"language"`

	// CommentMarker overrides the line-comment marker of every language.
	// Empty keeps each language's own marker.
	CommentMarker string `json:"comment_marker,omitempty" yaml:"comment_marker,omitempty" mapstructure:"comment_marker"`
}

// BatchConfig holds settings for batch conversion.
type BatchConfig struct {
	// Workers bounds the number of files converted at once (0 = GOMAXPROCS).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// SkipExisting leaves targets that already exist untouched.
	SkipExisting bool `json:"skip_existing" yaml:"skip_existing" mapstructure:"skip_existing"`

	// StatePath is the SQLite ledger used for incremental batches. Setting
	// it turns incremental mode on for every batch; when empty, --incremental
	// keeps the ledger in the output directory.
	StatePath string `json:"state_path,omitempty" yaml:"state_path,omitempty" mapstructure:"state_path"`
}

// Config groups all nbutils settings.
type Config struct {
	Markdown MarkdownConfig `json:"markdown" yaml:"markdown" mapstructure:"markdown"`
	Notebook NotebookConfig `json:"notebook" yaml:"notebook" mapstructure:"notebook"`
	Source   SourceConfig   `json:"source" yaml:"source" mapstructure:"source"`
	Batch    BatchConfig    `json:"batch" yaml:"batch" mapstructure:"batch"`
}

// Defaults used when a setting is absent from every config source.
const (
	DefaultFenceLanguage = "python"
	DefaultNBFormatMinor = 5
	DefaultLanguage      = "python"
	MaxNBFormatMinor     = 5
)

// DefaultConfig returns the configuration used when no file or flag
// overrides a setting.
func DefaultConfig() Config {
	return Config{
		Markdown: MarkdownConfig{FenceLanguage: DefaultFenceLanguage},
		Notebook: NotebookConfig{NBFormatMinor: DefaultNBFormatMinor},
		Source:   SourceConfig{Language: DefaultLanguage},
	}
}

// knownLanguages lists the language names accepted in SourceConfig.
// Kept in step with codec.Languages.
var knownLanguages = []any{"python", "r", "julia"}

var noWhitespace = validation.By(func(v any) error {
	s, _ := v.(string)
	if strings.ContainsAny(s, " \t\r\n") {
		return fmt.Errorf("must not contain whitespace")
	}
	return nil
})

// Validate reports the first invalid setting in each section.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Markdown),
		validation.Field(&c.Notebook),
		validation.Field(&c.Source),
		validation.Field(&c.Batch),
	)
}

// Validate checks the Markdown settings.
func (m MarkdownConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.FenceLanguage, noWhitespace, validation.Length(0, 32)),
	)
}

// Validate checks the notebook settings.
func (n NotebookConfig) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.NBFormatMinor, validation.Min(0), validation.Max(MaxNBFormatMinor)),
	)
}

// Validate checks the source-file settings.
func (s SourceConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Language, validation.Required, validation.In(knownLanguages...)),
		validation.Field(&s.CommentMarker, noWhitespace, validation.Length(0, 8)),
	)
}

// Validate checks the batch settings.
func (b BatchConfig) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Workers, validation.Min(0)),
	)
}
