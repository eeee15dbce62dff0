// Package sanitize cleans free-text input fields before they reach storage:
// whitespace trimming, control-character stripping, and HTML entity escaping.
package sanitize

import (
	"html"
	"strings"
)

// Text sanitizes a single-line field (title, location, display name).
// Newlines and tabs are stripped along with other control characters.
func Text(s string) string {
	return html.EscapeString(strings.TrimSpace(strip(s, false)))
}

// Multiline sanitizes multi-line text (descriptions), preserving newlines,
// carriage returns, and tabs.
func Multiline(s string) string {
	return html.EscapeString(strings.TrimSpace(strip(s, true)))
}

func strip(s string, keepNewlines bool) string {
	return strings.Map(func(r rune) rune {
		if keepNewlines && (r == '\n' || r == '\r' || r == '\t') {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
