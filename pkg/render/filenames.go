package render

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/dtnitsch/docbundle/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSlugLen = 80

var lower = cases.Lower(language.Und)

// Slugify folds accents, lowercases, and replaces anything outside [a-z0-9]
// with single hyphens. An empty result becomes "page".
func Slugify(title string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}
	folded = lower.String(folded)

	var b strings.Builder
	hyphen := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			hyphen = false
			continue
		}
		if !hyphen && b.Len() > 0 {
			b.WriteByte('-')
			hyphen = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	if slug == "" {
		return "page"
	}
	return slug
}

// pageFiles assigns each page a unique slug in page order; collisions get
// "-2", "-3", ... suffixes.
func pageFiles(pages []models.Page) []string {
	used := make(map[string]bool, len(pages))
	names := make([]string, len(pages))
	for i := range pages {
		base := Slugify(pages[i].DisplayTitle())
		name := base
		for n := 2; used[name]; n++ {
			name = base + "-" + strconv.Itoa(n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}
