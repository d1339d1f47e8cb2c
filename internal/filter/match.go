package filter

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// term is a configured phrase paired with its lower-cased search form
type term struct {
	name   string
	needle string
}

func newTerms(names []string) []term {
	terms := make([]term, 0, len(names))
	for _, n := range names {
		needle := strings.ToLower(strings.TrimSpace(n))
		if needle == "" {
			continue
		}
		terms = append(terms, term{name: n, needle: needle})
	}
	return terms
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

// containsToken reports whether needle occurs in text with no word character glued to
// either end. Both arguments must already be lower-cased. An edge of the needle that is
// itself punctuation (the "#" in "c#", the "." in ".net") needs no boundary on that side.
func containsToken(text, needle string) bool {
	if needle == "" || len(needle) > len(text) {
		return false
	}

	first, _ := utf8.DecodeRuneInString(needle)
	last, _ := utf8.DecodeLastRuneInString(needle)
	checkBefore := isWordRune(first)
	checkAfter := isWordRune(last)

	for offset := 0; offset <= len(text)-len(needle); {
		idx := strings.Index(text[offset:], needle)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(needle)

		ok := true
		if checkBefore && start > 0 {
			r, _ := utf8.DecodeLastRuneInString(text[:start])
			ok = !isWordRune(r)
		}
		if ok && checkAfter && end < len(text) {
			r, _ := utf8.DecodeRuneInString(text[end:])
			ok = !isWordRune(r)
		}
		if ok {
			return true
		}

		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return false
}
