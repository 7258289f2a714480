package digest

import (
	"context"
	"fmt"

	"github.com/So-1ro/digest-agent/internal/llm"
	"github.com/So-1ro/digest-agent/internal/logger"
)

// completer 调用模型获取原始输出（便于测试注入 mock）
type completer interface {
	Complete(ctx context.Context, text string) (string, error)
}

type Service struct {
	llmClient completer
}

func NewService(llmClient *llm.Client) *Service {
	return &Service{
		llmClient: llmClient,
	}
}

// Digest 将会议文本交给模型总结，并把回复规范化为 Result
func (s *Service) Digest(ctx context.Context, text string) (*Result, error) {
	logger.Infof("[Digest] 开始生成摘要，输入 %d 字节", len(text))

	raw, err := s.llmClient.Complete(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	result, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	logger.Infof("[Digest] 摘要完成：%d 条要点，%d 条行动项，%d 条提议",
		len(result.KeyPoints), len(result.ActionItems), len(result.Proposals))
	return result, nil
}
