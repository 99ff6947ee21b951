// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package codec converts between the in-memory Document and the on-disk
// formats nbutils understands: Jupyter notebooks, Markdown, and source
// files annotated with line comments.
package codec

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/pdiddy/nbutils/pkg/types"
)

// Format names an on-disk document format. Unknown extensions are carried
// as a Format holding the extension itself so errors can name them.
type Format string

const (
	FormatNotebook Format = "notebook"
	FormatMarkdown Format = "markdown"
	FormatSource   Format = "source"
)

// Known reports whether f is one of the formats with a codec.
func (f Format) Known() bool {
	switch f {
	case FormatNotebook, FormatMarkdown, FormatSource:
		return true
	}
	return false
}

// Codec converts between a Document and one textual format.
type Codec interface {
	// Format returns the format the codec reads and writes.
	Format() Format

	// Decode parses data into a Document. name is used in error messages.
	Decode(name string, data []byte) (*types.Document, error)

	// Encode renders doc in the codec's format.
	Encode(doc *types.Document) ([]byte, error)
}

// Language describes a source-file flavour.
type Language struct {
	Name          string
	Extension     string
	CommentMarker string
	KernelName    string
	DisplayName   string
	MIMEType      string
}

// Languages lists the source-file languages nbutils recognises.
var Languages = []Language{
	{Name: "python", Extension: ".py", CommentMarker: "#", KernelName: "python3", DisplayName: "Python 3", MIMEType: "text/x-python"},
	{Name: "r", Extension: ".r", CommentMarker: "#", KernelName: "ir", DisplayName: "R", MIMEType: "text/x-r-source"},
	{Name: "julia", Extension: ".jl", CommentMarker: "#", KernelName: "julia", DisplayName: "Julia", MIMEType: "application/julia"},
}

// LanguageByName returns the language called name.
func LanguageByName(name string) (Language, bool) {
	for _, l := range Languages {
		if l.Name == name {
			return l, true
		}
	}
	return Language{}, false
}

// LanguageByExtension returns the language whose files carry ext.
func LanguageByExtension(ext string) (Language, bool) {
	ext = strings.ToLower(ext)
	for _, l := range Languages {
		if l.Extension == ext {
			return l, true
		}
	}
	return Language{}, false
}

// conversions lists the supported (from, to) pairs. Markdown is never a
// conversion source: its fences drop the information a notebook needs.
var conversions = map[[2]Format]bool{
	{FormatNotebook, FormatMarkdown}: true,
	{FormatNotebook, FormatSource}:   true,
	{FormatSource, FormatNotebook}:   true,
	{FormatSource, FormatMarkdown}:   true,
}

// CheckConversion returns an UnsupportedConversionError unless documents
// in format from can be converted to format to.
func CheckConversion(from, to Format) error {
	if !conversions[[2]Format{from, to}] {
		return &UnsupportedConversionError{From: from, To: to}
	}
	return nil
}

// Registry builds codecs configured from a types.Config.
type Registry struct {
	cfg   types.Config
	newID func() string
}

// NewRegistry returns a registry using cfg for codec settings.
func NewRegistry(cfg types.Config) *Registry {
	return &Registry{cfg: cfg, newID: newCellID}
}

func newCellID() string {
	return uuid.NewString()[:8]
}

// Detect infers the format of path from its extension. For source files
// it also returns the language, with the configured comment marker
// applied.
func (r *Registry) Detect(path string) (Format, Language) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".ipynb":
		return FormatNotebook, r.defaultLanguage()
	case ".md", ".markdown":
		return FormatMarkdown, r.defaultLanguage()
	}
	if lang, ok := LanguageByExtension(ext); ok {
		return FormatSource, r.withMarker(lang)
	}
	if ext == "" {
		ext = filepath.Base(path)
	}
	return Format(ext), Language{}
}

// ForPath returns a codec able to read and write the file at path on its
// own, as used by inspection and heading edits.
func (r *Registry) ForPath(path string) (Codec, error) {
	format, lang := r.Detect(path)
	if !format.Known() {
		return nil, &UnsupportedConversionError{From: format, To: format}
	}
	return r.codec(format, lang), nil
}

// Pair returns the decoder for src and the encoder for dst after checking
// that the conversion is supported. The language of a source-file side is
// carried to the other side: a .py file becomes a Python notebook and
// Python-tagged fences.
func (r *Registry) Pair(src, dst string) (Codec, Codec, error) {
	from, srcLang := r.Detect(src)
	to, dstLang := r.Detect(dst)
	if err := CheckConversion(from, to); err != nil {
		return nil, nil, err
	}
	if from == FormatSource {
		dstLang = srcLang
	}
	dec := r.codec(from, srcLang)
	enc := r.codec(to, dstLang)
	if md, ok := enc.(*MarkdownCodec); ok && from == FormatSource {
		md.FenceLanguage = srcLang.Name
	}
	return dec, enc, nil
}

func (r *Registry) codec(f Format, lang Language) Codec {
	switch f {
	case FormatNotebook:
		return &NotebookCodec{Language: lang, Minor: r.cfg.Notebook.NBFormatMinor, NewID: r.newID}
	case FormatMarkdown:
		return &MarkdownCodec{FenceLanguage: r.cfg.Markdown.FenceLanguage}
	default:
		return &SourceCodec{Language: lang}
	}
}

func (r *Registry) defaultLanguage() Language {
	lang, ok := LanguageByName(r.cfg.Source.Language)
	if !ok {
		lang = Languages[0]
	}
	return r.withMarker(lang)
}

func (r *Registry) withMarker(lang Language) Language {
	if r.cfg.Source.CommentMarker != "" {
		lang.CommentMarker = r.cfg.Source.CommentMarker
	}
	return lang
}

// splitLines splits text into lines, normalising CRLF endings. A final
// newline does not produce a trailing empty line.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// trimBlankLines drops leading and trailing blank lines and joins the rest.
func trimBlankLines(lines []string) string {
	start, end := 0, len(lines)
	for start < end && isBlank(lines[start]) {
		start++
	}
	for end > start && isBlank(lines[end-1]) {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}
