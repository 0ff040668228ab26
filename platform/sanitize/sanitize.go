// Package sanitize cleans user-supplied free text before it is stored.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&quot;", "\"",
	"&#39;", "'",
)

// StripHTML removes HTML tags, including tags hidden behind encoded entities.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = entityReplacer.Replace(result)
	return htmlTagRegex.ReplaceAllString(result, "")
}

// Name trims a short identifier such as a state name and composes it to NFC,
// so visually equal names compare equal byte for byte.
func Name(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Text strips HTML and control characters, composes to NFC and trims
// surrounding space. Newlines and tabs survive.
func Text(s string) string {
	s = norm.NFC.String(StripHTML(s))
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// OptionalText sanitizes s and returns nil when nothing is left.
func OptionalText(s *string) *string {
	if s == nil {
		return nil
	}
	result := Text(*s)
	if result == "" {
		return nil
	}
	return &result
}
