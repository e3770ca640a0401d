// internal/service/aggregator/normalize.go

package aggregator

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns the canonical merge key for a topic name: NFKC folded,
// lowercased, punctuation and symbols removed, whitespace collapsed and trimmed.
// Precomposed and decomposed spellings of the same word share a key.
func Normalize(name string) string {
	name = norm.NFKC.String(name)
	var b strings.Builder
	b.Grow(len(name))

	pendingSpace := false
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			pendingSpace = true
		}
	}
	return b.String()
}

// articleKey is the dedup key for article titles. Unlike Normalize it keeps
// inner whitespace as-is, so only titles that differ in case or punctuation collapse.
func articleKey(title string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '_' {
			return r
		}
		return -1
	}, strings.ToLower(norm.NFKC.String(title))))
}
