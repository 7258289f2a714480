package digest

import (
	"errors"
	"fmt"
)

// MalformedOutputError 表示模型输出无法解析为约定的 JSON 对象，
// Snippet 保留原始文本的截断前缀用于排查
type MalformedOutputError struct {
	Snippet string
	Err     error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("model output is not valid JSON: %s", e.Snippet)
}

func (e *MalformedOutputError) Unwrap() error {
	return e.Err
}

// AsMalformedOutput 判断错误链中是否存在 MalformedOutputError，存在则返回它
func AsMalformedOutput(err error) (*MalformedOutputError, bool) {
	var malformed *MalformedOutputError
	if errors.As(err, &malformed) {
		return malformed, true
	}
	return nil, false
}
