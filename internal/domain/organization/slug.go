package organization

import (
	"strings"
	"unicode"
)

// Slugify lowercases name, turns spaces into hyphens and drops anything
// that is not a letter, digit or hyphen.
func Slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r == ' ':
			b.WriteRune('-')
		case r == '-', unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}
