// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "older nbformat minor", mutate: func(c *Config) { c.Notebook.NBFormatMinor = 4 }},
		{name: "r language", mutate: func(c *Config) { c.Source.Language = "r" }},
		{name: "custom marker", mutate: func(c *Config) { c.Source.CommentMarker = "#'" }},
		{name: "fence language with space", mutate: func(c *Config) { c.Markdown.FenceLanguage = "py thon" }, wantErr: "fence_language"},
		{name: "nbformat minor too high", mutate: func(c *Config) { c.Notebook.NBFormatMinor = 6 }, wantErr: "nbformat_minor"},
		{name: "negative nbformat minor", mutate: func(c *Config) { c.Notebook.NBFormatMinor = -1 }, wantErr: "nbformat_minor"},
		{name: "unknown language", mutate: func(c *Config) { c.Source.Language = "cobol" }, wantErr: "language"},
		{name: "empty language", mutate: func(c *Config) { c.Source.Language = "" }, wantErr: "language"},
		{name: "marker with whitespace", mutate: func(c *Config) { c.Source.CommentMarker = "# " }, wantErr: "comment_marker"},
		{name: "negative workers", mutate: func(c *Config) { c.Batch.Workers = -2 }, wantErr: "workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
