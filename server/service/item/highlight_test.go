package item

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindMatches(t *testing.T) {
	matches := findMatches("Go 并发，GO 语言", []string{"go", "并发"})
	assert.Equal(t, []Highlight{
		{Start: 0, End: 2, MatchedText: "Go"},
		{Start: 3, End: 5, MatchedText: "并发"},
		{Start: 6, End: 8, MatchedText: "GO"},
	}, matches)

	// Overlaps keep the longer match starting first.
	matches = findMatches("golang", []string{"go", "golang"})
	assert.Equal(t, []Highlight{{Start: 0, End: 6, MatchedText: "golang"}}, matches)

	assert.Empty(t, findMatches("abc", nil))
}

func TestExtractSnippet(t *testing.T) {
	content := strings.Repeat("前文内容。", 20) + "关键词在这里" + strings.Repeat("。后文内容", 20)
	matches := findMatches(content, []string{"关键词"})
	snippet, highlights := extractSnippet(content, matches, 20)

	assert.True(t, strings.HasPrefix(snippet, snippetEllipsis))
	assert.True(t, strings.HasSuffix(snippet, snippetEllipsis))
	assert.Len(t, highlights, 1)
	h := highlights[0]
	assert.Equal(t, "关键词", string([]rune(snippet)[h.Start:h.End]))

	snippet, highlights = extractSnippet("短文本", nil, 20)
	assert.Equal(t, "短文本", snippet)
	assert.Empty(t, highlights)

	snippet, _ = extractSnippet("", nil, 20)
	assert.Empty(t, snippet)
}
