package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const minFingerprintRunes = 3

// Words splits text into lowercase tokens of letters and digits. Each Han
// ideograph is its own token.
func Words(text string) []string {
	words := make([]string, 0, len(text)/5)
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			words = append(words, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			current.WriteRune(unicode.ToLower(r))
		default:
			flush()
		}
	}
	flush()
	return words
}

// Tokenize returns Words with Latin-style tokens shorter than three runes
// removed. Han tokens are always kept.
func Tokenize(text string) []string {
	words := Words(text)
	terms := words[:0]
	for _, word := range words {
		if utf8.RuneCountInString(word) >= minFingerprintRunes || isHan(word) {
			terms = append(terms, word)
		}
	}
	return terms
}

func isHan(word string) bool {
	r, _ := utf8.DecodeRuneInString(word)
	return unicode.Is(unicode.Han, r)
}
