package intake

// HelpText is shown for "@help".
const HelpText = `CogniFlow 使用说明

直接输入任何内容，系统会自动识别为任务、日程、笔记、资料或网页收藏。

类型前缀：
  笔记: / note:      记为笔记
  任务: / task:      记为任务
  日程: / event:     记为日程，自动检测时间冲突
  资料: / data:      记为资料
  收藏: / collect:   记为收藏

标签：/标签 或 @标签，例如 "/报告 @整理 整理季度数据"
查询：以 ? 或 /q 开头，或 "查找 上周的会议"
模板：输入 / 查看全部模板，或 /会议、/日报、/周报、/读书
网页：直接粘贴链接，自动抓取标题并生成摘要

包含 写、研究、学习、分析、总结、计划 等关键词的任务会自动获得 AI 辅助资料。`
