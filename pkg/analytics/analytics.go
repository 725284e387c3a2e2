// Package analytics computes simple word statistics for page metadata.
package analytics

import (
	"sort"
	"strings"
	"unicode"
)

// stopwords are ignored by Keywords.
var stopwords = toSet(`a about above after again against all also am an and any are as at
be because been before being below between both but by can cannot could
did do does doing done down during each either else enough etc even ever every
few for from further get gets had has have having he her here hers him his how however
i if in into is it its itself just like made make many may me might more most much must my
no nor not now of off on once only or other our ours out over own
same she should so some such than that the their them then there these they this those through to too
under until up upon us use used using very was we were what when where which while who whom why will with would
you your yours
click copy edit menu next page previous search skip toggle`)

func toSet(words string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(words) {
		set[w] = struct{}{}
	}
	return set
}

// IsStopword checks if a word is a common stopword that should be filtered out.
func IsStopword(word string) bool {
	_, exists := stopwords[strings.ToLower(word)]
	return exists
}

// WordCount returns the number of whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// WordFrequency counts lowercase words of text, punctuation trimmed,
// stopwords and pure numbers skipped.
func WordFrequency(text string) map[string]int {
	frequencies := make(map[string]int)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len([]rune(word)) < 2 || isNumber(word) {
			continue
		}
		if _, skip := stopwords[word]; skip {
			continue
		}
		frequencies[word]++
	}
	return frequencies
}

// Keywords returns up to n most frequent words of text. Ties are broken
// alphabetically.
func Keywords(text string, n int) []string {
	type wordCount struct {
		Word  string
		Count int
	}

	frequencies := WordFrequency(text)
	counts := make([]wordCount, 0, len(frequencies))
	for k, v := range frequencies {
		counts = append(counts, wordCount{k, v})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Word < counts[j].Word
	})

	limit := min(n, len(counts))
	top := make([]string, limit)
	for i := 0; i < limit; i++ {
		top[i] = counts[i].Word
	}
	return top
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' && r != ',' {
			return false
		}
	}
	return true
}
