package analysis

import (
	"regexp"
	"strings"

	"github.com/kljensen/snowball/english"
)

var nonWordRe = regexp.MustCompile(`[^\w\s]`)

// Normalize lowercases text, blanks out punctuation, and stems each token.
// The result is the space-joined stem sequence used for substring matching.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	lowered := strings.ToLower(text)
	// Each punctuation rune becomes one space so token boundaries survive.
	spaced := nonWordRe.ReplaceAllString(lowered, " ")

	tokens := strings.Fields(spaced)
	for i, tok := range tokens {
		tokens[i] = english.Stem(tok, true)
	}
	return strings.Join(tokens, " ")
}
