package textutil

import (
	"strings"
	"unicode"
)

const maxFileNameRunes = 80

var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName makes name safe as a single path segment. Separators
// become dashes, reserved characters are dropped, whitespace runs collapse
// to underscores, and the result is capped at 80 runes. Empty input yields
// fallback.
func SanitizeFileName(name, fallback string) string {
	cleaned := fileNameReplacer.Replace(strings.TrimSpace(name))
	cleaned = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, cleaned)
	cleaned = strings.Join(strings.Fields(cleaned), "_")
	cleaned = strings.Trim(cleaned, "._-")
	if runes := []rune(cleaned); len(runes) > maxFileNameRunes {
		cleaned = strings.TrimRight(string(runes[:maxFileNameRunes]), "._-")
	}
	if cleaned == "" {
		return fallback
	}
	return cleaned
}
