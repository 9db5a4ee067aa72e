package util

import (
	"strings"
	"unicode"
)

// Slugify lowercases input and collapses every run of other characters
// into a single dash. Empty results fall back to "run".
func Slugify(input string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(input) {
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			pendingDash = b.Len() > 0
			continue
		}
		if pendingDash {
			b.WriteByte('-')
			pendingDash = false
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "run"
	}
	return b.String()
}
