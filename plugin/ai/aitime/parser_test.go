package aitime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// 2025-06-10 is a Tuesday.
var fixedNow = time.Date(2025, 6, 10, 15, 20, 0, 0, time.Local)

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"today evening ten", "今天晚上十点开会", "2025-06-10T22:00:00"},
		{"friday evening", "周五晚上汇报", "2025-06-13T19:00:00"},
		{"tonight at 10", "tonight at 10", "2025-06-10T22:00:00"},
		{"tomorrow morning", "明天上午交报告", "2025-06-11T09:00:00"},
		{"tomorrow afternoon 3", "明天下午3点", "2025-06-11T15:00:00"},
		{"half past", "明天9点半", "2025-06-11T09:30:00"},
		{"quarter", "后天十点一刻", "2025-06-12T10:15:00"},
		{"clock", "今天 14:45 电话", "2025-06-10T14:45:00"},
		{"day after tomorrow", "大后天中午吃饭", "2025-06-13T12:00:00"},
		{"dawn", "凌晨发布", "2025-06-10T01:00:00"},
		{"noon only", "中午", "2025-06-10T12:00:00"},
		{"today is tuesday", "周二下午", "2025-06-10T14:00:00"},
		{"weekday rolls forward", "周一早上例会", "2025-06-16T09:00:00"},
		{"next week monday", "下周一开会", "2025-06-16T09:00:00"},
		{"next week friday", "下周五晚上", "2025-06-20T19:00:00"},
		{"xingqi", "星期日上午", "2025-06-15T09:00:00"},
		{"english friday", "friday evening review", "2025-06-13T19:00:00"},
		{"english next monday", "next monday 10am", "2025-06-16T10:00:00"},
		{"english pm", "tomorrow 3pm", "2025-06-11T15:00:00"},
		{"ambiguous 3 is afternoon", "3点开会", "2025-06-10T15:00:00"},
		{"full date", "2025年6月20日 8:30", "2025-06-20T08:30:00"},
		{"month day", "6月18日交付", "2025-06-18T09:00:00"},
		{"past month day rolls to next year", "1月2日", "2026-01-02T09:00:00"},
		{"relative hours", "2小时后提醒我", "2025-06-10T17:20:00"},
		{"relative days", "3天后", "2025-06-13T15:20:00"},
		{"24:00 is the next midnight", "会议 24:00", "2025-06-11T00:00:00"},
		{"evening 12 is midnight", "晚上12点", "2025-06-11T00:00:00"},
		{"tomorrow night 12", "明晚十二点上线", "2025-06-12T00:00:00"},
		{"noon 12 stays noon", "中午12点", "2025-06-10T12:00:00"},
		{"english 12pm", "tomorrow 12pm", "2025-06-11T12:00:00"},
		{"no time", "买牛奶", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeTime(tt.input, fixedNow))
		})
	}
}

func TestResolveFlags(t *testing.T) {
	p := NewParserAt(fixedNow)

	res, ok := p.Resolve("明天")
	require.True(t, ok)
	assert.True(t, res.HasDate)
	assert.False(t, res.HasTime)

	res, ok = p.Resolve("十点")
	require.True(t, ok)
	assert.False(t, res.HasDate)
	assert.True(t, res.HasTime)
	assert.Equal(t, "2025-06-10T10:00:00", FormatLocal(res.Time))
}

func TestParseNumber(t *testing.T) {
	tests := map[string]int{"十": 10, "十五": 15, "二十": 20, "二十三": 23, "五": 5, "两": 2, "12": 12}
	for input, want := range tests {
		got, ok := parseNumber(input)
		require.True(t, ok, input)
		assert.Equal(t, want, got, input)
	}
	for _, bad := range []string{"", "十十十", "三二", "abc"} {
		_, ok := parseNumber(bad)
		assert.False(t, ok, bad)
	}
}

func TestEventRange(t *testing.T) {
	p := NewParserAt(fixedNow)
	r, ok := p.EventRange("今天晚上十点开会")
	require.True(t, ok)
	assert.Equal(t, "2025-06-10T22:00:00", r.Start)
	assert.Equal(t, "2025-06-10T23:00:00", r.End)

	_, ok = p.EventRange("没有时间")
	assert.False(t, ok)
}

func TestNormalizeTimeNeverPanics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		input := rapid.String().Draw(t, "input")
		out := NormalizeTime(input, fixedNow)
		if out != "" {
			_, ok := ParseLocal(out)
			if !ok {
				t.Fatalf("normalized %q to unparseable %q", input, out)
			}
		}
	})
}
