package digest

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/So-1ro/digest-agent/internal/logger"
)

// upstreamDigest 对应模型被要求输出的 JSON 对象。
// 字段保持 RawMessage，按各自允许的形状逐个解释
type upstreamDigest struct {
	KeyPoints   json.RawMessage `json:"key_points"`
	ActionItems json.RawMessage `json:"action_items"`
	Proposals   json.RawMessage `json:"proposals"`
}

// snippetLimit 错误信息中保留的原始输出前缀长度（按 rune 计）
const snippetLimit = 200

// 行动项中 assignee / due 标记的宽松匹配：标签后允许空格再接冒号，忽略大小写
var (
	assigneeMarker = regexp.MustCompile(`(?i)\bassignee\s*:`)
	dueMarker      = regexp.MustCompile(`(?i)\bdue\s*:`)
)

// 行动项对象的别名键，按优先级排列，匹配时忽略大小写
var (
	taskKeys     = []string{"task", "title", "content", "description", "item"}
	assigneeKeys = []string{"assignee", "owner", "assigned_to"}
	dueKeys      = []string{"due", "due_date", "deadline"}
	noteKeys     = []string{"note", "notes", "detail", "details"}
)

// Normalize 解析模型输出，把三个字段修复为干净的字符串列表并生成
// 格式化展示文本。输出无法解析时返回 MalformedOutputError，
// 单个字段缺失或类型不符不报错，按空列表处理
func Normalize(raw string) (*Result, error) {
	// json.Unmarshal 对顶层 null 不报错，需先排除
	if strings.TrimSpace(raw) == "null" {
		logger.Debugf("[Digest] 模型输出不是合法 JSON: %s", snippet(raw))
		return nil, &MalformedOutputError{Snippet: snippet(raw), Err: errors.New("model output is null")}
	}

	var upstream upstreamDigest
	if err := json.Unmarshal([]byte(raw), &upstream); err != nil {
		logger.Debugf("[Digest] 模型输出不是合法 JSON: %s", snippet(raw))
		return nil, &MalformedOutputError{Snippet: snippet(raw), Err: err}
	}

	result := &Result{
		KeyPoints:   stringList(upstream.KeyPoints),
		ActionItems: actionItemList(upstream.ActionItems),
		Proposals:   stringList(upstream.Proposals),
	}
	result.Formatted = renderFormatted(result)
	return result, nil
}

// stringList 解释一个本应是字符串列表的字段。
// 接受的形状：字符串（视为单元素列表）、数组（逐元素取标量文本，
// 跳过嵌套对象和数组）；其余形状一律得到空列表
func stringList(raw json.RawMessage) []string {
	items := make([]string, 0)
	if len(raw) == 0 {
		return items
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return appendTrimmed(items, single)
	}

	var array []json.RawMessage
	if err := json.Unmarshal(raw, &array); err != nil {
		return items
	}
	for _, element := range array {
		if text, ok := scalarText(element); ok {
			items = appendTrimmed(items, text)
		}
	}
	return items
}

// actionItemList 解释行动项字段。条目可以是普通字符串，也可以是
// 结构化对象，二者都折叠为一行展示文本
func actionItemList(raw json.RawMessage) []string {
	items := make([]string, 0)
	if len(raw) == 0 {
		return items
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if line := strings.TrimSpace(single); line != "" {
			items = append(items, ensureMarkers(line))
		}
		return items
	}

	var array []json.RawMessage
	if err := json.Unmarshal(raw, &array); err != nil {
		return items
	}
	for _, element := range array {
		if line := actionItemLine(element); line != "" {
			items = append(items, line)
		}
	}
	return items
}

// actionItemLine 把单个行动项条目折叠为一行文本，无法解释时返回空串
func actionItemLine(raw json.RawMessage) string {
	// json.Unmarshal 对 null 写入 map 不报错，需先排除
	var object map[string]json.RawMessage
	if err := json.Unmarshal(raw, &object); err == nil && object != nil {
		return objectLine(object)
	}

	text, ok := scalarText(raw)
	if !ok {
		return ""
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return ensureMarkers(text)
}

// objectLine 将结构化行动项渲染为
// "<task> / assignee: <who> / due: <date>"，缺失的段直接省略
func objectLine(object map[string]json.RawMessage) string {
	task := lookupAlias(object, taskKeys)
	assignee := lookupAlias(object, assigneeKeys)
	due := lookupAlias(object, dueKeys)

	if task == "" {
		task = fallbackTitle(object, assignee)
	}

	parts := []string{task}
	if assignee != "" {
		parts = append(parts, "assignee: "+assignee)
	}
	if due != "" {
		parts = append(parts, "due: "+due)
	}
	return strings.Join(parts, " / ")
}

// lookupAlias 按优先级取第一个非空的别名键值，键名忽略大小写
func lookupAlias(object map[string]json.RawMessage, aliases []string) string {
	for _, alias := range aliases {
		for key, value := range object {
			if !strings.EqualFold(key, alias) {
				continue
			}
			if text, ok := scalarText(value); ok {
				if text = strings.TrimSpace(text); text != "" {
					return text
				}
			}
		}
	}
	return ""
}

// fallbackTitle 在没有任务描述时合成标题：备注类字段拼接，
// 其次是负责人，最后落到字面量 "unspecified"
func fallbackTitle(object map[string]json.RawMessage, assignee string) string {
	var notes []string
	for _, alias := range noteKeys {
		for key, value := range object {
			if !strings.EqualFold(key, alias) {
				continue
			}
			if text, ok := scalarText(value); ok {
				if text = strings.TrimSpace(text); text != "" {
					notes = append(notes, text)
				}
			}
		}
	}
	if len(notes) > 0 {
		return strings.Join(notes, ", ")
	}
	if assignee != "" {
		return assignee
	}
	return "unspecified"
}

// ensureMarkers 为纯字符串行动项补齐显式标记，
// 文本里已出现对应标签时不再追加
func ensureMarkers(line string) string {
	if !assigneeMarker.MatchString(line) {
		line += " / assignee: unspecified"
	}
	if !dueMarker.MatchString(line) {
		line += " / due: unspecified"
	}
	return line
}

// scalarText 把 JSON 标量转为展示文本：字符串去引号，
// 数字和布尔保留字面形式；null、对象和数组不产生文本
func scalarText(raw json.RawMessage) (string, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", false
	}
	switch trimmed[0] {
	case '{', '[':
		return "", false
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	default:
		return trimmed, true
	}
}

func appendTrimmed(items []string, text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return items
	}
	return append(items, text)
}

// renderFormatted 由三个列表生成分节的项目符号文本
func renderFormatted(result *Result) string {
	var sb strings.Builder
	sb.WriteString("Key Points:\n")
	sb.WriteString(bullets(result.KeyPoints))
	sb.WriteString("\n\nAction Items:\n")
	sb.WriteString(bullets(result.ActionItems))
	sb.WriteString("\n\nProposals:\n")
	sb.WriteString(bullets(result.Proposals))
	return sb.String()
}

// bullets 将列表渲染为 "- 条目" 行，空列表渲染为占位行 "- none"
func bullets(items []string) string {
	if len(items) == 0 {
		return "- none"
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

// snippet 截断原始模型输出，用于错误信息与调试日志
func snippet(s string) string {
	runes := []rune(s)
	if len(runes) <= snippetLimit {
		return s
	}
	return string(runes[:snippetLimit]) + "..."
}
