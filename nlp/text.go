package nlp

import (
	"strings"
	"unicode"
)

// tokenize lowercases the text and splits it into word tokens. Apostrophes
// stay inside tokens so contractions survive as one word.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}
