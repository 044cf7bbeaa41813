// Package tags provides deterministic tag and keyword extraction.
// Nothing here calls a model and no function panics on any input.
package tags

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// "/tag" or "@tag" at the start of the text or after whitespace.
	tagPhrasePattern = regexp.MustCompile(`(^|\s)[/@]([^\s/@#，。,.;；:：!！?？]+)`)
	hashTagPattern   = regexp.MustCompile(`(^|\s)#([^\s#，。,.;；:：!！?？]+)`)
	spacesPattern    = regexp.MustCompile(`\s+`)
)

// ExtractTagPhrases pulls "/token" and "@token" phrases out of text as tags.
// Tokens for which reserved returns true stay in the text. The remaining
// text has its whitespace collapsed and trimmed.
func ExtractTagPhrases(text string, reserved func(token string) bool) (tags []string, rest string) {
	tags = []string{}
	seen := map[string]bool{}

	rest = tagPhrasePattern.ReplaceAllStringFunc(text, func(match string) string {
		sub := tagPhrasePattern.FindStringSubmatch(match)
		if len(sub) != 3 {
			return match
		}
		token := sub[2]
		if strings.TrimSpace(token) == "" || (reserved != nil && reserved(token)) {
			return match
		}
		if !seen[token] {
			seen[token] = true
			tags = append(tags, token)
		}
		return sub[1]
	})
	rest = strings.TrimSpace(spacesPattern.ReplaceAllString(rest, " "))
	return tags, rest
}

// ExtractHashTags returns the "#tag" tokens in text, in order, without
// modifying it.
func ExtractHashTags(text string) []string {
	result := []string{}
	seen := map[string]bool{}
	for _, m := range hashTagPattern.FindAllStringSubmatch(text, -1) {
		if len(m) != 3 || seen[m[2]] {
			continue
		}
		seen[m[2]] = true
		result = append(result, m[2])
	}
	return result
}

// Merge concatenates tag lists, dropping blanks and duplicates while
// keeping first-seen order.
func Merge(lists ...[]string) []string {
	result := []string{}
	seen := map[string]bool{}
	for _, list := range lists {
		for _, tag := range list {
			tag = strings.TrimSpace(strings.TrimLeft(tag, "#/@"))
			if tag == "" {
				continue
			}
			key := strings.ToLower(tag)
			if seen[key] {
				continue
			}
			seen[key] = true
			result = append(result, tag)
		}
	}
	return result
}

// isWordRune reports whether r can be part of a keyword.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Han, r)
}

func isHan(s string) bool {
	for _, r := range s {
		if !unicode.Is(unicode.Han, r) {
			return false
		}
	}
	return s != ""
}
