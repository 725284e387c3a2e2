package analyzer

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/docbundle/models"
)

const (
	defaultLanguage = "text"
	maxContextLen   = 100
)

// CodeSnippets returns one snippet per pre block under sel, in document order.
// Blocks with only whitespace are skipped.
func CodeSnippets(sel *goquery.Selection) []models.CodeSnippet {
	snippets := []models.CodeSnippet{}
	if sel == nil {
		return snippets
	}

	sel.Find("pre").Each(func(_ int, pre *goquery.Selection) {
		codeSel := pre.Find("code").First()
		if codeSel.Length() == 0 {
			codeSel = pre
		}

		code := codeSel.Text()
		if strings.TrimSpace(code) == "" {
			return
		}

		lang := languageOf(codeSel)
		if lang == "" {
			lang = languageOf(pre)
		}
		if lang == "" {
			lang = defaultLanguage
		}

		parentText := pre.Parent().Text()
		snippetType := models.SnippetUnknown
		if strings.Contains(strings.ToLower(parentText), "example") {
			snippetType = models.SnippetExample
		}

		snippets = append(snippets, models.CodeSnippet{
			Language: lang,
			Code:     code,
			Context:  contextLine(parentText),
			Type:     snippetType,
		})
	})
	return snippets
}

// languageOf returns X from the first "language-X" class token, case preserved.
func languageOf(s *goquery.Selection) string {
	class, _ := s.Attr("class")
	for _, token := range strings.Fields(class) {
		if lang, ok := strings.CutPrefix(token, "language-"); ok && lang != "" {
			return lang
		}
	}
	return ""
}

// contextLine takes the first line of the first 100 characters of text.
func contextLine(text string) string {
	runes := []rune(text)
	if len(runes) > maxContextLen {
		runes = runes[:maxContextLen]
	}
	first, _, _ := strings.Cut(string(runes), "\n")
	return strings.TrimSpace(first)
}
