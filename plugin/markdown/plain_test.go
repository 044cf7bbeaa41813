package markdown

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"heading and emphasis", "# 标题\n\n这是 **重点** 和 *强调*", "标题\n这是 重点 和 强调"},
		{"link", "参考 [Go 文档](https://go.dev) 即可", "参考 Go 文档 即可"},
		{"list", "- 第一\n- 第二", "第一\n第二"},
		{"inline code", "运行 `go test`", "运行 go test"},
		{"autolink", "<https://go.dev>", "https://go.dev"},
		{"plain", "no markup", "no markup"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PlainText(tt.input))
		})
	}
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "标题 正文", Summary("# 标题\n\n正文", 100))

	long := strings.Repeat("字", 150)
	got := Summary(long, 100)
	assert.Equal(t, 100, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
}
