package intake

import (
	"fmt"
	"time"
)

var weekdayNames = [...]string{"星期日", "星期一", "星期二", "星期三", "星期四", "星期五", "星期六"}

const classifySystemPrompt = `你是一个个人信息管理助手，负责把用户的一段输入整理成结构化记录。
当前时间：%s（%s）。

只输出一个 JSON 对象，不要输出任何其他内容：
{
  "type": "task|event|note|data|url",
  "title": "不超过 30 字的标题",
  "description": "补充说明，可为空",
  "due_date": "YYYY-MM-DDTHH:mm:ss 或 null",
  "start_time": "YYYY-MM-DDTHH:mm:ss 或 null",
  "end_time": "YYYY-MM-DDTHH:mm:ss 或 null",
  "priority": "high|medium|low",
  "tags": ["标签"],
  "entities": {"people": [], "location": "", "project": "", "other": []}
}

规则：
- 有明确开始时间的会议、约会、活动为 event，需要完成的事项为 task，记录想法为 note，资料数字为 data。
- 所有时间都是本地时间，不要带时区或 Z 后缀。
- "今天/今晚" 指当前日期；"周五" 指今天或之后最近的周五；"下周五" 指下一周的周五。
- 只给出时间段时：早上 09:00，中午 12:00，下午 14:00，晚上 19:00，凌晨 01:00。
- event 只有开始时间时，end_time 为开始时间加 1 小时。`

const classifyForcedTypeHint = "\n- 类型已确定为 %s，type 字段必须输出 %s。"

const titleSystemPrompt = `为用户的内容生成一个不超过 20 字的标题，并给出最多 3 个标签。
只输出 JSON：{"title": "标题", "tags": ["标签"]}`

const urlSystemPrompt = `根据网页内容写一段中文摘要。摘要必须基于给出的网页内容，不要根据网址猜测。
只输出 JSON：{"title": "网页标题，不超过 40 字", "summary": "100 字以内的摘要"}`

const querySystemPrompt = `把用户的查询转换成结构化条件，只输出 JSON：
{
  "types": ["task|event|note|data|url|collection"],
  "statuses": ["pending|completed"],
  "tags": ["标签"],
  "search_text": "关键词，可为空",
  "include_archived": false
}
没有提到的条件用空数组。当前时间：%s。`

func formatNow(now time.Time) string {
	return now.Format("2006-01-02 15:04")
}

func classifyPrompt(now time.Time) string {
	return fmt.Sprintf(classifySystemPrompt, formatNow(now), weekdayNames[now.Weekday()])
}

func queryPrompt(now time.Time) string {
	return fmt.Sprintf(querySystemPrompt, formatNow(now))
}

func urlPrompt(link, title, description, text string) string {
	return fmt.Sprintf("网址：%s\n标题：%s\n描述：%s\n正文：\n%s", link, title, description, text)
}
