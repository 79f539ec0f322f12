package upstream

import (
	"html"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// CleanText strips markup from upstream titles and bodies and normalizes them
// to NFC so that prompts and persisted metadata are stable across the mixed
// encodings the platform emits.
func CleanText(text string) string {
	cleaned := htmlTagRegex.ReplaceAllString(text, " ")
	cleaned = html.UnescapeString(cleaned)
	cleaned = norm.NFC.String(cleaned)
	cleaned = whitespaceRegex.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// Truncate limits text to max runes; used to keep LLM prompts bounded.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
