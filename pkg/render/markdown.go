package render

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/dtnitsch/docbundle/models"
	"github.com/dtnitsch/docbundle/pkg/analyzer"
)

const backToIndex = "[Back to Index](../" + IndexMarkdown + ")"

func newConverter() *md.Converter {
	return md.NewConverter("", true, &md.Options{
		HeadingStyle:     "atx",
		BulletListMarker: "-",
		CodeBlockStyle:   "fenced",
	})
}

func renderMarkdown(doc *models.Documentation, opts Options) (*Bundle, error) {
	conv := newConverter()
	b := &Bundle{}

	if opts.Layout == LayoutSplit {
		names := pageFiles(doc.Pages)
		if opts.CreateIndex {
			b.add(IndexMarkdown, []byte(markdownIndex(doc, names)))
		}
		for i := range doc.Pages {
			var sb strings.Builder
			writeSplitPage(&sb, conv, &doc.Pages[i], opts)
			b.add(PagesDir+"/"+names[i]+".md", []byte(sb.String()))
		}
		return b, nil
	}

	var sb strings.Builder
	sb.WriteString("# Documentation\n\n")
	fmt.Fprintf(&sb, "Generated from: %s\n\n", doc.BaseURL)
	if len(doc.Pages) > 0 {
		sb.WriteString("## Table of Contents\n\n")
		for i := range doc.Pages {
			p := &doc.Pages[i]
			fmt.Fprintf(&sb, "%s- [%s](#%s)\n", indent(doc.Depth(*p)), escapeLinkText(p.DisplayTitle()), anchor(p.DisplayTitle()))
		}
		sb.WriteString("\n")
	}
	for i := range doc.Pages {
		p := &doc.Pages[i]
		fmt.Fprintf(&sb, "## %s\n\n", p.DisplayTitle())
		fmt.Fprintf(&sb, "Source: %s\n\n", p.URL)
		writePageBody(&sb, conv, p, opts, "###")
		sb.WriteString("---\n\n")
	}
	b.add(CombinedMarkdown, []byte(sb.String()))
	return b, nil
}

func markdownIndex(doc *models.Documentation, names []string) string {
	var sb strings.Builder
	sb.WriteString("# Documentation\n\n")
	fmt.Fprintf(&sb, "Generated from: %s\n\n", doc.BaseURL)
	sb.WriteString("## Pages\n\n")
	for i := range doc.Pages {
		p := &doc.Pages[i]
		fmt.Fprintf(&sb, "%s- [%s](%s/%s.md)\n", indent(doc.Depth(*p)), escapeLinkText(p.DisplayTitle()), PagesDir, names[i])
	}
	return sb.String()
}

func writeSplitPage(sb *strings.Builder, conv *md.Converter, p *models.Page, opts Options) {
	fmt.Fprintf(sb, "# %s\n\n", p.DisplayTitle())
	fmt.Fprintf(sb, "Source: %s\n\n", p.URL)
	if opts.CreateIndex {
		sb.WriteString(backToIndex + "\n\n")
	}
	writePageBody(sb, conv, p, opts, "##")
	if opts.CreateIndex {
		sb.WriteString("---\n\n" + backToIndex + "\n")
	}
}

// writePageBody writes the optional page TOC, the converted content and the
// optional snippet appendix. section is the heading prefix for appendix titles.
func writePageBody(sb *strings.Builder, conv *md.Converter, p *models.Page, opts Options, section string) {
	if opts.IncludeTOC && len(p.Headings) > 0 {
		fmt.Fprintf(sb, "%s Contents\n\n", section)
		writeOutline(sb, analyzer.Outline(p.Headings), 0)
		sb.WriteString("\n")
	}

	if content := strings.TrimSpace(convert(conv, p.Content)); content != "" {
		sb.WriteString(content)
		sb.WriteString("\n\n")
	}

	if opts.IncludeSnippets && len(p.CodeSnippets) > 0 {
		fmt.Fprintf(sb, "%s Code Snippets\n\n", section)
		for _, s := range p.CodeSnippets {
			if s.Context != "" {
				fmt.Fprintf(sb, "Context: %s\n\n", s.Context)
			}
			writeFence(sb, s)
		}
	}
}

func writeOutline(sb *strings.Builder, headings []models.Heading, level int) {
	for _, h := range headings {
		fmt.Fprintf(sb, "%s- [%s](#%s)\n", indent(level), escapeLinkText(h.Text), h.ID)
		writeOutline(sb, h.Children, level+1)
	}
}

func writeFence(sb *strings.Builder, s models.CodeSnippet) {
	fence := strings.Repeat("`", max(3, longestRun(s.Code, '`')+1))
	lang := s.Language
	if lang == "text" {
		lang = ""
	}
	fmt.Fprintf(sb, "%s%s\n%s\n%s\n\n", fence, lang, strings.TrimRight(s.Code, "\n"), fence)
}

// convert turns page HTML into markdown, keeping the raw HTML if conversion fails.
func convert(conv *md.Converter, html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	out, err := conv.ConvertString(html)
	if err != nil {
		return html
	}
	return out
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}

// anchor mirrors the heading ids markdown hosts generate: lowercase, spaces to
// hyphens, punctuation dropped.
func anchor(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r == ' ':
			b.WriteByte('-')
		case r == '-' || r == '_' || ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') || r > 127:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// escapeLinkText keeps link text on one line and escapes brackets.
func escapeLinkText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(s)
}

func longestRun(s string, c rune) int {
	longest, run := 0, 0
	for _, r := range s {
		if r == c {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return longest
}
