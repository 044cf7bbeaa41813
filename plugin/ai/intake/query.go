package intake

import (
	"regexp"
	"strings"
)

var (
	queryPrefixPattern = regexp.MustCompile(`(?i)^(?:[?？]+|/q(?:\s+|$)|(?:查找|搜索|查询|查一下|找一下|找找|搜一下)\s*[:：]?|(?:find|search|show me|list)\s+)`)
	queryMarkerPattern = regexp.MustCompile(`(?i)(有哪些|哪些|多少|几个|有没有|which|how many)`)
	trailingQuestion   = regexp.MustCompile(`[?？]+$`)
)

// DetectQuery reports whether text asks about stored items and returns the
// query with its trigger removed.
func DetectQuery(text string) (query string, ok bool) {
	text = strings.TrimSpace(text)
	if loc := queryPrefixPattern.FindStringIndex(text); loc != nil {
		return strings.TrimSpace(text[loc[1]:]), true
	}
	if trailingQuestion.MatchString(text) && queryMarkerPattern.MatchString(text) {
		return strings.TrimSpace(trailingQuestion.ReplaceAllString(text, "")), true
	}
	return "", false
}
