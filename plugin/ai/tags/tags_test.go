package tags

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestExtractTagPhrases(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		reserved func(string) bool
		tags     []string
		rest     string
	}{
		{
			name:  "slash and at",
			input: "/报告 @整理 这是内容",
			tags:  []string{"报告", "整理"},
			rest:  "这是内容",
		},
		{
			name:  "tags in the middle",
			input: "  准备 /周报 材料 @工作  ",
			tags:  []string{"周报", "工作"},
			rest:  "准备 材料",
		},
		{
			name:     "reserved tokens stay",
			input:    "/note 今天的想法 @灵感",
			reserved: func(s string) bool { return s == "note" },
			tags:     []string{"灵感"},
			rest:     "/note 今天的想法",
		},
		{
			name:  "urls and emails untouched",
			input: "看 https://example.com/a/b 发给 bob@example.com",
			tags:  []string{},
			rest:  "看 https://example.com/a/b 发给 bob@example.com",
		},
		{
			name:  "duplicates collapse",
			input: "/a /a 内容",
			tags:  []string{"a"},
			rest:  "内容",
		},
		{
			name:  "empty",
			input: "",
			tags:  []string{},
			rest:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tags, rest := ExtractTagPhrases(tt.input, tt.reserved)
			assert.Equal(t, tt.tags, tags)
			assert.Equal(t, tt.rest, rest)
		})
	}
}

func TestExtractHashTags(t *testing.T) {
	assert.Equal(t, []string{"go", "并发"}, ExtractHashTags("学习 #go 的 #并发 模型 #go"))
	assert.Empty(t, ExtractHashTags("# 标题"))
}

func TestMerge(t *testing.T) {
	assert.Equal(t, []string{"工作", "Go", "会议"}, Merge([]string{"工作", "#Go"}, []string{"go", " ", "会议", "工作"}))
	assert.Equal(t, []string{}, Merge(nil))
}

func TestExtractSearchKeywords(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"明天写一份关于Go并发的报告", "Go并发的报告"},
		{"帮我研究一下量子计算", "量子计算"},
		{"下午3点 分析 竞品定价策略", "竞品定价策略"},
		{"周五总结本周工作", "工作"},
		{"Research the history of Unix", "the history of Unix"},
		{"写", "写"},
		{"学习", "学习"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ExtractSearchKeywords(tt.input), tt.input)
	}
}

func TestExtractTopicKeywords(t *testing.T) {
	assert.Equal(t, []string{"机器学习", "应用"}, ExtractTopicKeywords("机器学习的应用"))
	assert.Equal(t, []string{"react", "性能优化"}, ExtractTopicKeywords("如何进行 React 性能优化"))
	assert.Equal(t, []string{"设计"}, ExtractTopicKeywords("的设计"))
	assert.Empty(t, ExtractTopicKeywords("的了吗"))
	assert.Empty(t, ExtractTopicKeywords(""))

	long := ExtractTopicKeywords("一 二三 四五六 七八九十 甲乙丙丁戊 己庚 辛壬 癸子")
	assert.Len(t, long, MaxTopicKeywords)
}

func TestExtractQueryKeywords(t *testing.T) {
	assert.Equal(t, []string{"会议"}, ExtractQueryKeywords("明天有哪些会议"))
	assert.Equal(t, []string{"笔记"}, ExtractQueryKeywords("#Go 笔记 下周"))
	assert.Equal(t, []string{"react", "性能优化"}, ExtractQueryKeywords("React 性能优化"))
	assert.Empty(t, ExtractQueryKeywords("今天"))
}

func TestUtilitiesNeverPanic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		input := rapid.String().Draw(t, "input")
		tags, rest := ExtractTagPhrases(input, nil)
		for _, tag := range tags {
			if strings.TrimSpace(tag) == "" {
				t.Fatalf("blank tag from %q", input)
			}
		}
		if strings.TrimSpace(rest) != rest {
			t.Fatalf("untrimmed rest %q", rest)
		}
		_ = ExtractHashTags(input)
		_ = ExtractSearchKeywords(input)
		_ = ExtractQueryKeywords(input)
		if got := ExtractTopicKeywords(input); len(got) > MaxTopicKeywords {
			t.Fatalf("too many keywords: %v", got)
		}
	})
}
