package merchant

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FindMatch returns the first merchant, in directory order, whose name or
// alias appears in description bounded by non-alphanumeric characters or the
// string edges. Comparison is case-insensitive. It returns nil when nothing
// matches.
func FindMatch(description string, merchants []*Merchant) *Merchant {
	if strings.TrimSpace(description) == "" {
		return nil
	}

	for _, m := range merchants {
		if m.Matches(description) {
			return m
		}
	}

	return nil
}

// ContainsBounded reports whether needle occurs in haystack as a whole token.
// Every occurrence is tried, so "BELL" is found in "BELLE BELL" but not in
// "BELLE INTERNET".
func ContainsBounded(haystack, needle string) bool {
	h := strings.ToLower(haystack)
	n := strings.ToLower(strings.TrimSpace(needle))

	if n == "" {
		return false
	}

	for start := 0; start < len(h); {
		i := strings.Index(h[start:], n)
		if i < 0 {
			return false
		}

		i += start

		if boundaryBefore(h, i) && boundaryAfter(h, i+len(n)) {
			return true
		}

		_, size := utf8.DecodeRuneInString(h[i:])
		start = i + size
	}

	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}

	r, _ := utf8.DecodeLastRuneInString(s[:i])

	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}

	r, _ := utf8.DecodeRuneInString(s[i:])

	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

var (
	storeNumberSuffix = regexp.MustCompile(`(?i)\s*[#W]\d+\s*$`)
	referenceSuffix   = regexp.MustCompile(`\s*#\d+$`)
	trailingNumber    = regexp.MustCompile(`\s+\d+$`)
	whitespace        = regexp.MustCompile(`\s+`)
)

// NormalizeAlias strips trailing store numbers and reference suffixes
// ("#010", "W526", " 4411") from a raw description, turns card-processor
// asterisks into spaces, and collapses whitespace. Case is preserved.
func NormalizeAlias(raw string) string {
	s := strings.TrimSpace(raw)

	for {
		prev := s
		s = storeNumberSuffix.ReplaceAllString(s, "")
		s = referenceSuffix.ReplaceAllString(s, "")
		s = trailingNumber.ReplaceAllString(s, "")
		s = strings.TrimSpace(s)

		if s == prev {
			break
		}
	}

	s = strings.ReplaceAll(s, "*", " ")

	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

var titleCaser = cases.Title(language.Und)

// CanonicalName derives a display name for a merchant created from a
// free-typed or raw name: normalized and title-cased.
func CanonicalName(raw string) string {
	return titleCaser.String(strings.ToLower(NormalizeAlias(raw)))
}
