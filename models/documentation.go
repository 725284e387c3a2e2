package models

import (
	"strings"
	"time"
)

// SourceKind identifies which pipeline produced a Documentation.
type SourceKind string

const (
	SourceWeb        SourceKind = "web"
	SourceRepository SourceKind = "repository"
)

// Documentation is the aggregate of all pages produced by one run.
type Documentation struct {
	BaseURL     string         `json:"base_url" yaml:"base_url"`
	GeneratedAt time.Time      `json:"generated_at" yaml:"generated_at"`
	Pages       []Page         `json:"pages" yaml:"pages"`
	Metadata    map[string]any `json:"metadata" yaml:"metadata"`

	index map[string]int
}

// NewDocumentation creates an empty Documentation for baseURL.
func NewDocumentation(baseURL string) *Documentation {
	return &Documentation{
		BaseURL:     baseURL,
		GeneratedAt: time.Now(),
		Pages:       []Page{},
		Metadata:    map[string]any{},
		index:       map[string]int{},
	}
}

// AddPage appends p unless a page with the same URL is already present.
// It reports whether the page was added.
func (d *Documentation) AddPage(p Page) bool {
	d.ensureIndex()
	if _, ok := d.index[p.URL]; ok {
		return false
	}
	d.index[p.URL] = len(d.Pages)
	d.Pages = append(d.Pages, p)
	return true
}

// Page looks up a page by URL.
func (d *Documentation) Page(url string) (Page, bool) {
	d.ensureIndex()
	i, ok := d.index[url]
	if !ok {
		return Page{}, false
	}
	return d.Pages[i], true
}

// Depth returns the hierarchy depth of p.
// The depth is the length of the ParentURL chain inside this Documentation.
// Pages without a known parent use the number of "/" in metadata["path"]
// (repository pages), otherwise 0.
func (d *Documentation) Depth(p Page) int {
	d.ensureIndex()
	depth := 0
	seen := map[string]bool{p.URL: true}
	parent := p.ParentURL
	for parent != "" && !seen[parent] {
		i, ok := d.index[parent]
		if !ok {
			break
		}
		seen[parent] = true
		depth++
		parent = d.Pages[i].ParentURL
	}
	if depth > 0 {
		return depth
	}
	if path, ok := p.Metadata["path"].(string); ok {
		return strings.Count(strings.Trim(path, "/"), "/")
	}
	return 0
}

func (d *Documentation) ensureIndex() {
	if d.index != nil && len(d.index) == len(d.Pages) {
		return
	}
	d.index = make(map[string]int, len(d.Pages))
	for i, p := range d.Pages {
		if _, ok := d.index[p.URL]; !ok {
			d.index[p.URL] = i
		}
	}
}
