// Package render turns Documentation into a bundle of markdown or JSON files,
// either combined into one file or split into one file per page plus an index.
package render

import (
	"fmt"

	"github.com/dtnitsch/docbundle/models"
)

// Layouts.
const (
	LayoutCombined = "combined"
	LayoutSplit    = "split"
)

// Bundle file names.
const (
	CombinedMarkdown = "documentation.md"
	CombinedJSON     = "documentation.json"
	IndexMarkdown    = "index.md"
	IndexJSON        = "index.json"
	PagesDir         = "docs"
)

// Options selects the output shape.
type Options struct {
	Format          string // models.FormatMarkdown or models.FormatJSON
	Layout          string // LayoutCombined or LayoutSplit
	CreateIndex     bool
	IncludeTOC      bool
	IncludeSnippets bool
}

// File is one output file; Path is slash-separated and relative to the bundle root.
type File struct {
	Path string
	Data []byte
}

// Bundle is the complete rendered output of one Documentation.
type Bundle struct {
	Files []File
}

func (b *Bundle) add(path string, data []byte) {
	b.Files = append(b.Files, File{Path: path, Data: data})
}

// OptionsFromConfig maps run configuration onto render options.
func OptionsFromConfig(cfg *models.Config) Options {
	layout := LayoutCombined
	if cfg.SplitPages {
		layout = LayoutSplit
	}
	return Options{
		Format:          cfg.OutputFormat,
		Layout:          layout,
		CreateIndex:     cfg.CreateIndex,
		IncludeTOC:      cfg.IncludeTOC,
		IncludeSnippets: cfg.IncludeSnippets,
	}
}

// Render produces the bundle for doc. doc is only read.
func Render(doc *models.Documentation, opts Options) (*Bundle, error) {
	if doc == nil {
		return nil, fmt.Errorf("nothing to render")
	}
	if opts.Layout == "" {
		opts.Layout = LayoutCombined
	}
	if opts.Layout != LayoutCombined && opts.Layout != LayoutSplit {
		return nil, fmt.Errorf("unknown layout %q", opts.Layout)
	}

	switch opts.Format {
	case models.FormatJSON:
		return renderJSON(doc, opts)
	case models.FormatMarkdown, "":
		return renderMarkdown(doc, opts)
	default:
		return nil, fmt.Errorf("unknown output format %q", opts.Format)
	}
}
