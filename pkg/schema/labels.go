package schema

import (
	"strings"
	"unicode"
)

// DefaultLabeler converts a field key into a header: "startDate" and
// "start_date" both become "Start Date". Dotted paths keep their last segment.
func DefaultLabeler(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 && idx < len(name)-1 {
		name = name[idx+1:]
	}
	words := labelWords(name)
	for i, w := range words {
		lower := []rune(strings.ToLower(w))
		lower[0] = unicode.ToUpper(lower[0])
		words[i] = string(lower)
	}
	return strings.Join(words, " ")
}

// labelWords splits on separators, lower-to-upper case changes and
// letter/digit changes.
func labelWords(s string) []string {
	var (
		words []string
		cur   []rune
		prev  rune
	)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	for _, r := range s {
		switch {
		case r == '_' || r == '-' || r == '.' || unicode.IsSpace(r):
			flush()
			prev = 0
			continue
		case prev != 0 && unicode.IsLower(prev) && unicode.IsUpper(r),
			prev != 0 && unicode.IsLetter(prev) && unicode.IsDigit(r),
			prev != 0 && unicode.IsDigit(prev) && unicode.IsLetter(r):
			flush()
		}
		cur = append(cur, r)
		prev = r
	}
	flush()
	return words
}
