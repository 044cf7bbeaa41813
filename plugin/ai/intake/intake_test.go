package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/cogniflow/store"
)

func TestIsMainlyURL(t *testing.T) {
	assert.False(t, IsMainlyURL("看看这个链接里关于内存模型的讨论 https://a.io/x"))
	assert.True(t, IsMainlyURL("读 https://example.com/very/long/path/that/dominates/the/whole/input"))
	assert.True(t, IsMainlyURL("看看这个 https://example.com/path"))
	assert.True(t, IsMainlyURL("https://example.com/very/long/path/that/dominates"))
	assert.True(t, IsMainlyURL("  https://example.com/very/long/path 好文  "))
	assert.False(t, IsMainlyURL("https://a.io 这是一段比链接长得多的说明文字，主要内容是文字而不是链接本身"))
	assert.False(t, IsMainlyURL("no link here"))
	assert.False(t, IsMainlyURL(""))
}

func TestMatchTypePrefix(t *testing.T) {
	tests := []struct {
		input string
		typ   store.ItemType
		body  string
		ok    bool
	}{
		{"note: 想法", store.ItemTypeNote, "想法", true},
		{"笔记：今天的想法", store.ItemTypeNote, "今天的想法", true},
		{"/task 买菜", store.ItemTypeTask, "买菜", true},
		{"@事件 周五聚餐", store.ItemTypeEvent, "周五聚餐", true},
		{"TODO: call mom", store.ItemTypeTask, "call mom", true},
		{"数据: 体重 70kg", store.ItemTypeData, "体重 70kg", true},
		{"/collect 好文章", store.ItemTypeCollection, "好文章", true},
		{"任务很多", "", "", false},
		{"/notebook 选购", "", "", false},
		{"note:", "", "", false},
		{"普通内容", "", "", false},
	}
	for _, tt := range tests {
		typ, body, ok := MatchTypePrefix(tt.input)
		assert.Equal(t, tt.ok, ok, tt.input)
		assert.Equal(t, tt.typ, typ, tt.input)
		assert.Equal(t, tt.body, body, tt.input)
	}
}

func TestIsTypeKeyword(t *testing.T) {
	assert.True(t, IsTypeKeyword("Note"))
	assert.True(t, IsTypeKeyword("日程"))
	assert.False(t, IsTypeKeyword("报告"))
}

func TestDetectQuery(t *testing.T) {
	tests := []struct {
		input string
		query string
		ok    bool
	}{
		{"?会议", "会议", true},
		{"？ 会议", "会议", true},
		{"/q 读书", "读书", true},
		{"/q", "", true},
		{"查找：上周的会议", "上周的会议", true},
		{"search golang notes", "golang notes", true},
		{"这周有哪些未完成的任务？", "这周有哪些未完成的任务", true},
		{"为什么天空是蓝色的?", "", false},
		{"明天开会", "", false},
		{"/quick 笔记", "", false},
	}
	for _, tt := range tests {
		query, ok := DetectQuery(tt.input)
		assert.Equal(t, tt.ok, ok, tt.input)
		assert.Equal(t, tt.query, query, tt.input)
	}
}

func TestTemplates(t *testing.T) {
	r := DefaultTemplates()
	meeting, ok := r.Lookup("会议")
	require.True(t, ok)

	_, err := meeting.Render(map[string]string{"time": "下午"})
	assert.ErrorIs(t, err, ErrMissingField)

	draft, err := meeting.Render(map[string]string{"topic": "Q3 规划", "conclusion": "下周定稿"})
	require.NoError(t, err)
	assert.Equal(t, store.ItemTypeNote, draft.Type)
	assert.Equal(t, "会议纪要：Q3 规划", draft.Title)
	assert.Equal(t, "结论：下周定稿", draft.Description)
	assert.Equal(t, []string{"会议"}, draft.Tags)

	appt, ok := r.Lookup("APPOINTMENT")
	require.True(t, ok)
	draft, err = appt.Render(map[string]string{"title": "牙医", "start": "2025-06-12 10:00"})
	require.NoError(t, err)
	assert.Equal(t, store.ItemTypeEvent, draft.Type)
	require.NotNil(t, draft.EndTime)
	assert.Equal(t, "2025-06-12T10:00:00", *draft.StartTime)
	assert.Equal(t, "2025-06-12T11:00:00", *draft.EndTime)
}

func TestLoadTemplatesRejectsDuplicates(t *testing.T) {
	_, err := LoadTemplates([]byte(`
templates:
  - trigger: a
    type: note
  - trigger: b
    aliases: [A]
    type: note
`))
	assert.Error(t, err)

	_, err = LoadTemplates([]byte(`templates: [{trigger: x, type: bogus}]`))
	assert.Error(t, err)
}

func TestFallbackDraft(t *testing.T) {
	d := FallbackDraft("short")
	assert.Equal(t, "short", d.Title)
	item := d.ToItem(9)
	assert.Equal(t, int32(9), item.UserID)
	assert.Equal(t, store.ItemTypeTask, item.Type)
	assert.Equal(t, store.ItemStatusPending, item.Status)
	assert.Equal(t, []store.SubItem{}, item.SubItems)
}
