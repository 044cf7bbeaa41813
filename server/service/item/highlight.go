package item

import (
	"sort"
	"strings"
	"unicode"
)

// Highlight is a matched span in a snippet, in rune offsets.
type Highlight struct {
	Start       int    `json:"start"`
	End         int    `json:"end"`
	MatchedText string `json:"matched_text"`
}

const (
	defaultContextRunes = 40
	maxBoundaryScan     = 10
	snippetEllipsis     = "..."
)

// findMatches returns the non-overlapping case-insensitive occurrences of
// terms in content, sorted by position.
func findMatches(content string, terms []string) []Highlight {
	runes := []rune(content)
	var matches []Highlight
	for _, term := range terms {
		termRunes := []rune(strings.ToLower(term))
		n := len(termRunes)
		if n == 0 {
			continue
		}
		// Compare windows of the original runes so offsets never drift
		// between the original and lower-cased text.
		for i := 0; i+n <= len(runes); i++ {
			if strings.ToLower(string(runes[i:i+n])) == string(termRunes) {
				matches = append(matches, Highlight{Start: i, End: i + n, MatchedText: string(runes[i : i+n])})
			}
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Start != matches[j].Start {
			return matches[i].Start < matches[j].Start
		}
		return matches[i].End > matches[j].End
	})

	kept := make([]Highlight, 0, len(matches))
	for _, m := range matches {
		if len(kept) > 0 && m.Start < kept[len(kept)-1].End {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

// extractSnippet cuts a window of content around the first match, widened
// to nearby separators, and shifts the highlights into snippet offsets.
func extractSnippet(content string, matches []Highlight, contextRunes int) (string, []Highlight) {
	runes := []rune(content)
	if len(runes) == 0 {
		return "", []Highlight{}
	}
	if contextRunes <= 0 {
		contextRunes = defaultContextRunes
	}

	center := 0
	if len(matches) > 0 {
		center = matches[0].Start
	}
	start, end := center-contextRunes, center+contextRunes
	if start < 0 {
		end -= start
		start = 0
	}
	if end > len(runes) {
		start = max(0, start-(end-len(runes)))
		end = len(runes)
	}
	start = boundaryBefore(runes, start)
	end = boundaryAfter(runes, end)

	var sb strings.Builder
	prefix := 0
	if start > 0 {
		sb.WriteString(snippetEllipsis)
		prefix = len([]rune(snippetEllipsis))
	}
	sb.WriteString(string(runes[start:end]))
	if end < len(runes) {
		sb.WriteString(snippetEllipsis)
	}

	shifted := make([]Highlight, 0, len(matches))
	for _, m := range matches {
		if m.Start >= start && m.End <= end {
			shifted = append(shifted, Highlight{
				Start:       m.Start - start + prefix,
				End:         m.End - start + prefix,
				MatchedText: m.MatchedText,
			})
		}
	}
	return sb.String(), shifted
}

func boundaryBefore(runes []rune, pos int) int {
	if pos <= 0 {
		return 0
	}
	for i := pos - 1; i >= 0 && i >= pos-maxBoundaryScan; i-- {
		if isSeparator(runes[i]) {
			return i + 1
		}
	}
	return pos
}

func boundaryAfter(runes []rune, pos int) int {
	if pos >= len(runes) {
		return len(runes)
	}
	for i := pos; i < len(runes) && i < pos+maxBoundaryScan; i++ {
		if isSeparator(runes[i]) {
			return i
		}
	}
	return pos
}

func isSeparator(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	return strings.ContainsRune("。，、；：！？….,!?;:", r)
}
