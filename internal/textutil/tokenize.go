package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// MinIndexTokenLength is the shortest token stored in the index.
const MinIndexTokenLength = 2

// tokenSplitPattern matches runs of characters that are neither letters nor digits.
var tokenSplitPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Fold lowercases text with Unicode case folding rules. A Caser keeps state,
// so each call builds its own.
func Fold(text string) string {
	return cases.Fold().String(text)
}

// Tokenize splits text into folded tokens, dropping tokens shorter than
// MinIndexTokenLength runes.
func Tokenize(text string) []string {
	raw := tokenSplitPattern.Split(Fold(text), -1)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		if RuneLen(token) < MinIndexTokenLength {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// TrimPunct removes leading and trailing runes that are neither letters nor
// digits.
func TrimPunct(token string) string {
	return strings.TrimFunc(token, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// RuneLen returns the number of code points in s.
func RuneLen(s string) int {
	return len([]rune(s))
}
