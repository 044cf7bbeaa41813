package assist

import (
	"fmt"
	"strings"

	"github.com/hrygo/cogniflow/plugin/ai/search"
)

const assistSystemPrompt = `你是一个知识助理。用户给出一项待完成的任务，你需要帮助他快速了解相关背景。
只返回 JSON，不要任何解释：
{"knowledge_points": ["...", "..."], "reference": "..."}

要求：
- knowledge_points: 3 到 5 条与任务直接相关的关键知识点，每条不超过 60 字
- reference: 一段 100 到 200 字的参考摘要，优先依据给出的搜索结果
- 使用与任务相同的语言`

// maxPromptResults bounds how many search hits are quoted to the model.
const maxPromptResults = 5

func buildAssistPrompt(text string, results []search.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "任务：%s\n", text)
	if len(results) == 0 {
		sb.WriteString("\n没有可用的搜索结果，请依据常识回答。\n")
		return sb.String()
	}
	sb.WriteString("\n搜索结果：\n")
	for i, r := range results {
		if i >= maxPromptResults {
			break
		}
		fmt.Fprintf(&sb, "%d. %s\n%s\n", i+1, r.Title, truncate(r.Content, 300))
	}
	return sb.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
