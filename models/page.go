package models

import "time"

// Heading is a single h1..h6 heading of a page.
//
// Headings stored on a Page are a flat list in document order and never carry
// Children. Children is only populated by analyzer.Outline when a nested view is
// needed (tables of contents).
type Heading struct {
	Level    int       `json:"level" yaml:"level"`
	Text     string    `json:"text" yaml:"text"`
	ID       string    `json:"id" yaml:"id"`
	Children []Heading `json:"children,omitempty" yaml:"children,omitempty"`
}

// Snippet types.
const (
	SnippetExample       = "example"
	SnippetUnknown       = "unknown"
	SnippetSource        = "source"
	SnippetDocumentation = "documentation"
)

// CodeSnippet is a block of code found on a page or a whole source file.
type CodeSnippet struct {
	Language string         `json:"language" yaml:"language"`
	Code     string         `json:"code" yaml:"code"`
	Context  string         `json:"context" yaml:"context"` // first line of the enclosing block, <= 100 chars
	Type     string         `json:"type" yaml:"type"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Page represents the structured content of a single documentation page.
type Page struct {
	URL          string         `json:"url" yaml:"url"`
	Title        string         `json:"title" yaml:"title"`
	Content      string         `json:"content" yaml:"content"` // serialized HTML of the extracted region
	CodeSnippets []CodeSnippet  `json:"code_snippets" yaml:"code_snippets"`
	Headings     []Heading      `json:"headings" yaml:"headings"`
	Metadata     map[string]any `json:"metadata" yaml:"metadata"`
	LastUpdated  *time.Time     `json:"last_updated" yaml:"last_updated,omitempty"`
	ParentURL    string         `json:"parent_url,omitempty" yaml:"parent_url,omitempty"`
}

// DisplayTitle returns the title, or the last URL segment when the title is empty.
func (p *Page) DisplayTitle() string {
	if p.Title != "" {
		return p.Title
	}
	trimmed := p.URL
	for len(trimmed) > 0 && trimmed[len(trimmed)-1] == '/' {
		trimmed = trimmed[:len(trimmed)-1]
	}
	for i := len(trimmed) - 1; i >= 0; i-- {
		if trimmed[i] == '/' {
			return trimmed[i+1:]
		}
	}
	return trimmed
}
