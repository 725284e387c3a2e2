// Package language detects the natural language of page text.
package language

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

// minTextLength is the shortest text worth classifying.
const minTextLength = 40

// maxSample bounds how much text is classified per page.
const maxSample = 4000

// supported keeps the detector small; documentation is rarely in anything else.
var supported = []lingua.Language{
	lingua.English,
	lingua.German,
	lingua.French,
	lingua.Spanish,
	lingua.Portuguese,
	lingua.Italian,
	lingua.Dutch,
	lingua.Russian,
	lingua.Chinese,
	lingua.Japanese,
	lingua.Korean,
}

var (
	once     sync.Once
	detector lingua.LanguageDetector
)

func get() lingua.LanguageDetector {
	once.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(supported...).
			WithMinimumRelativeDistance(0.1).
			Build()
	})
	return detector
}

// Detect returns the lowercase ISO 639-1 code of text's language, or "" when
// the text is too short or the language is not reliably one of the supported set.
func Detect(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) < minTextLength {
		return ""
	}
	if runes := []rune(text); len(runes) > maxSample {
		text = string(runes[:maxSample])
	}
	lang, ok := get().DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
