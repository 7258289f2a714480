package digest

// Request /digest 接口的请求体
type Request struct {
	Text string `json:"text"`
}

// Result 规范化后的会议摘要。三个列表字段始终非 nil，
// 只含去除首尾空白的非空字符串；Formatted 为派生的展示文本，
// 不参与 raw 部分的序列化
type Result struct {
	KeyPoints   []string `json:"key_points"`
	ActionItems []string `json:"action_items"`
	Proposals   []string `json:"proposals"`
	Formatted   string   `json:"-"`
}
