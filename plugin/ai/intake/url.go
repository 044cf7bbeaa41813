package intake

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var urlPattern = regexp.MustCompile(`(?i)\bhttps?://[^\s<>"'，。！？、）)】]+`)

// FindURL returns the first http(s) URL in text.
func FindURL(text string) (string, bool) {
	u := urlPattern.FindString(text)
	return u, u != ""
}

// IsMainlyURL reports whether text is a link with at most a short comment:
// the first URL, wherever it appears, must make up more than half of the
// trimmed text.
func IsMainlyURL(text string) bool {
	trimmed := strings.TrimSpace(text)
	loc := urlPattern.FindStringIndex(trimmed)
	if loc == nil {
		return false
	}
	urlLen := utf8.RuneCountInString(trimmed[loc[0]:loc[1]])
	return urlLen*2 > utf8.RuneCountInString(trimmed)
}
