package assist

import "strings"

// triggerKeywords mark text that asks for research-style work. Matching is
// a plain case-insensitive substring test, so "不要写" still triggers.
var triggerKeywords = []string{
	"写", "研究", "学习", "分析", "总结", "计划", "设计", "开发", "实现", "评估", "讨论",
	"write", "research", "study", "analyze", "summarize", "plan", "design",
	"develop", "implement", "evaluate", "discuss",
}

// ShouldTrigger reports whether an item created from text gets an assist
// task.
func ShouldTrigger(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range triggerKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
