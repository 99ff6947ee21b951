// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert runs single-file and batch conversions between notebook,
// Markdown, and source formats.
package convert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/nbutils/internal/codec"
	"github.com/pdiddy/nbutils/internal/fsutil"
	"github.com/pdiddy/nbutils/internal/logging"
	"github.com/pdiddy/nbutils/internal/state"
	"github.com/pdiddy/nbutils/pkg/types"
)

// Ledger remembers which sources a batch already converted. The
// state.Ledger type implements it.
type Ledger interface {
	// Unchanged reports whether source was last converted to target from
	// content with the given hash.
	Unchanged(ctx context.Context, source, target, hash string) (bool, error)
	// Record stores a successful conversion.
	Record(ctx context.Context, source, target, hash string) error
}

// Converter converts files on a filesystem using codecs configured from a
// types.Config.
type Converter struct {
	fs       afero.Fs
	cfg      types.Config
	registry *codec.Registry
	ledger   Ledger
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Converter.
type Option func(*Converter)

// WithFs replaces the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(c *Converter) { c.fs = fs }
}

// WithLedger enables incremental batches.
func WithLedger(l Ledger) Option {
	return func(c *Converter) { c.ledger = l }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) { c.logger = l }
}

// New returns a Converter for cfg.
func New(cfg types.Config, opts ...Option) *Converter {
	c := &Converter{
		fs:       afero.NewOsFs(),
		cfg:      cfg,
		registry: codec.NewRegistry(cfg),
		logger:   logging.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the codec registry the converter uses.
func (c *Converter) Registry() *codec.Registry {
	return c.registry
}

// ConvertFile converts src into dst, inferring both formats from their
// extensions. An unsupported pair fails before anything is read or
// written, and dst is only replaced once the conversion has succeeded.
func (c *Converter) ConvertFile(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dec, enc, err := c.registry.Pair(src, dst)
	if err != nil {
		return err
	}
	data, err := afero.ReadFile(c.fs, src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	return c.convert(src, dst, data, dec, enc)
}

func (c *Converter) convert(src, dst string, data []byte, dec, enc codec.Codec) error {
	doc, err := dec.Decode(src, data)
	if err != nil {
		return err
	}
	out, err := enc.Encode(doc)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", dst, err)
	}
	if enc.Format() == codec.FormatMarkdown && c.cfg.Markdown.Frontmatter {
		if out, err = c.addFrontmatter(src, out); err != nil {
			return err
		}
	}
	if err := c.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating output directory for %s: %w", dst, err)
	}
	if err := fsutil.WriteFileAtomic(c.fs, dst, out, 0o644); err != nil {
		return err
	}
	c.logger.Debug("converted file", "source", src, "target", dst, "cells", doc.Len())
	return nil
}

type frontmatter struct {
	Source      string `yaml:"source"`
	ConvertedAt string `yaml:"converted_at"`
}

// addFrontmatter prepends YAML frontmatter naming the source file.
func (c *Converter) addFrontmatter(src string, body []byte) ([]byte, error) {
	meta, err := yaml.Marshal(frontmatter{
		Source:      src,
		ConvertedAt: c.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling frontmatter: %w", err)
	}
	var b strings.Builder
	b.WriteString("---\n")
	b.Write(meta)
	b.WriteString("---\n\n")
	b.Write(body)
	return []byte(b.String()), nil
}

// Batch describes a directory conversion.
type Batch struct {
	SourceDir string
	TargetDir string
	// SourceExt and TargetExt include the leading dot, e.g. ".ipynb".
	SourceExt string
	TargetExt string
	// Workers bounds concurrent conversions; zero means GOMAXPROCS.
	Workers int
	// SkipExisting leaves targets that already exist untouched.
	SkipExisting bool
}

// ConvertBatch converts every file directly inside b.SourceDir whose
// extension matches b.SourceExt into b.TargetDir, printing per-file status
// to w. Per-file failures are collected in the Report; only an unsupported
// pair, an unreadable source directory, or an uncreatable target directory
// fail the whole batch.
func (c *Converter) ConvertBatch(ctx context.Context, b Batch, w io.Writer) (Report, error) {
	from, _ := c.registry.Detect("x" + b.SourceExt)
	to, _ := c.registry.Detect("x" + b.TargetExt)
	if err := codec.CheckConversion(from, to); err != nil {
		return Report{}, err
	}

	names, err := c.matchingFiles(b.SourceDir, b.SourceExt)
	if err != nil {
		return Report{}, err
	}
	if err := c.fs.MkdirAll(b.TargetDir, 0o755); err != nil {
		return Report{}, fmt.Errorf("creating target directory %s: %w", b.TargetDir, err)
	}

	workers := b.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	c.logger.Debug("starting batch", "source_dir", b.SourceDir, "target_dir", b.TargetDir, "files", len(names), "workers", workers)

	col := &collector{w: w}
	var g errgroup.Group
	g.SetLimit(workers)
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			c.batchFile(ctx, b, name, col)
			return nil
		})
	}
	g.Wait()

	rep := col.report()
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		len(rep.Converted), len(rep.Skipped), len(rep.Failed), rep.Total())
	return rep, ctx.Err()
}

// matchingFiles lists the regular files in dir with extension ext, sorted
// by name.
func (c *Converter) matchingFiles(dir, ext string) ([]string, error) {
	entries, err := afero.ReadDir(c.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("reading source directory %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.Mode().IsRegular() || !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (c *Converter) batchFile(ctx context.Context, b Batch, name string, col *collector) {
	src := filepath.Join(b.SourceDir, name)
	dst := filepath.Join(b.TargetDir, strings.TrimSuffix(name, filepath.Ext(name))+b.TargetExt)

	if b.SkipExisting && fsutil.Exists(c.fs, dst) {
		col.skipped(src, "already exists")
		return
	}

	dec, enc, err := c.registry.Pair(src, dst)
	if err != nil {
		col.failed(src, err)
		return
	}
	data, err := afero.ReadFile(c.fs, src)
	if err != nil {
		col.failed(src, fmt.Errorf("reading %s: %w", src, err))
		return
	}

	var hash string
	if c.ledger != nil {
		hash = state.Hash(data)
		unchanged, err := c.ledger.Unchanged(ctx, src, dst, hash)
		if err != nil {
			c.logger.Warn("ledger lookup failed", "source", src, "error", err)
		}
		if unchanged && fsutil.Exists(c.fs, dst) {
			col.skipped(src, "unchanged")
			return
		}
	}

	if err := c.convert(src, dst, data, dec, enc); err != nil {
		col.failed(src, err)
		return
	}
	if c.ledger != nil {
		if err := c.ledger.Record(ctx, src, dst, hash); err != nil {
			c.logger.Warn("ledger update failed", "source", src, "error", err)
		}
	}
	col.converted(src, dst)
}

// collector accumulates a Report from concurrent workers and serializes
// their status lines.
type collector struct {
	mu  sync.Mutex
	w   io.Writer
	rep Report
}

func (c *collector) converted(src, dst string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rep.Converted = append(c.rep.Converted, src)
	fmt.Fprintf(c.w, "converted: %s -> %s\n", src, dst)
}

func (c *collector) skipped(src, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rep.Skipped = append(c.rep.Skipped, src)
	fmt.Fprintf(c.w, "skipped: %s (%s)\n", src, reason)
}

func (c *collector) failed(src string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rep.Failed = append(c.rep.Failed, Failure{Path: src, Error: err.Error()})
	fmt.Fprintf(c.w, "failed:  %s (%v)\n", src, err)
}

func (c *collector) report() Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	rep := c.rep
	if rep.Converted == nil {
		rep.Converted = []string{}
	}
	if rep.Skipped == nil {
		rep.Skipped = []string{}
	}
	if rep.Failed == nil {
		rep.Failed = []Failure{}
	}
	sort.Strings(rep.Converted)
	sort.Strings(rep.Skipped)
	sort.Slice(rep.Failed, func(i, j int) bool { return rep.Failed[i].Path < rep.Failed[j].Path })
	return rep
}
