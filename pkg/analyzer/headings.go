// Package analyzer derives structure from extracted content: headings, code
// snippets, outbound links and a nested outline for tables of contents.
package analyzer

import (
	"bufio"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/docbundle/models"
)

const maxHeadingLevel = 6

// HeadingExtractor returns the headings of a source document in document order.
// Returned headings are flat: Children is always empty.
type HeadingExtractor interface {
	ExtractHeadings(source string) []models.Heading
}

// HTMLHeadings reads h1..h6 elements from an HTML fragment or document.
type HTMLHeadings struct{}

// MarkdownHeadings reads ATX ("#"-prefixed) headings from markdown text,
// ignoring lines inside fenced code blocks.
type MarkdownHeadings struct{}

// ForSource picks the heading extractor for the kind of content a page holds.
func ForSource(kind string) HeadingExtractor {
	switch strings.ToLower(kind) {
	case "markdown", "md", ".md":
		return MarkdownHeadings{}
	default:
		return HTMLHeadings{}
	}
}

// NewHeading builds a flat heading with its slug id.
func NewHeading(level int, text string) models.Heading {
	return models.Heading{Level: level, Text: text, ID: Slug(text)}
}

// Slug lowercases text and replaces spaces with hyphens.
// Equal texts produce equal ids; nothing is disambiguated.
func Slug(text string) string {
	return strings.ReplaceAll(strings.ToLower(text), " ", "-")
}

func (HTMLHeadings) ExtractHeadings(source string) []models.Heading {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return []models.Heading{}
	}
	return HeadingsFromSelection(doc.Selection)
}

// HeadingsFromSelection walks an already parsed tree, avoiding a reparse.
func HeadingsFromSelection(sel *goquery.Selection) []models.Heading {
	headings := []models.Heading{}
	if sel == nil {
		return headings
	}
	sel.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		level := int(goquery.NodeName(s)[1] - '0')
		headings = append(headings, NewHeading(level, strings.TrimSpace(s.Text())))
	})
	return headings
}

func (MarkdownHeadings) ExtractHeadings(source string) []models.Heading {
	headings := []models.Heading{}
	var fence string

	scanner := bufio.NewScanner(strings.NewReader(source))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		trimmed := strings.TrimLeft(line, " ")

		if marker := fenceMarker(trimmed); marker != "" {
			switch {
			case fence == "":
				fence = marker
			case strings.HasPrefix(trimmed, fence) && strings.Trim(trimmed, string(fence[0])) == "":
				fence = ""
			}
			continue
		}
		if fence != "" || len(line)-len(trimmed) > 3 {
			continue
		}

		level := 0
		for level < len(trimmed) && trimmed[level] == '#' {
			level++
		}
		if level == 0 || level > maxHeadingLevel {
			continue
		}
		rest := trimmed[level:]
		if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
			continue // "#tag", not a heading
		}
		text := strings.TrimSpace(closingHashes(strings.TrimSpace(rest)))
		if text == "" {
			continue
		}
		headings = append(headings, NewHeading(level, text))
	}
	return headings
}

// fenceMarker returns the opening run of ``` or ~~~ when line starts a fence.
func fenceMarker(line string) string {
	for _, c := range []byte{'`', '~'} {
		n := 0
		for n < len(line) && line[n] == c {
			n++
		}
		if n >= 3 {
			return line[:n]
		}
	}
	return ""
}

// closingHashes strips an optional closing sequence: "Title ##" -> "Title".
func closingHashes(text string) string {
	stripped := strings.TrimRight(text, "#")
	if stripped == text {
		return text
	}
	if stripped == "" || strings.HasSuffix(stripped, " ") || strings.HasSuffix(stripped, "\t") {
		return stripped
	}
	return text
}
