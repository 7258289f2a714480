package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/So-1ro/digest-agent/internal/config"
	"github.com/sashabaranov/go-openai"
)

// ErrUnconfigured 表示补全端点缺少 API Key，任何外呼之前返回该错误
var ErrUnconfigured = errors.New("completion endpoint is not configured")

// IsUnconfigured 判断错误链中是否存在未配置错误
func IsUnconfigured(err error) bool {
	return errors.Is(err, ErrUnconfigured)
}

// openAIClientInterface 定义 OpenAI 客户端接口，便于测试
type openAIClientInterface interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// systemPrompt 要求模型严格输出仅含三个固定 key 的 JSON 对象
const systemPrompt = `You are an assistant that structures meeting notes.
Always answer with exactly one JSON object containing the keys key_points, action_items and proposals.
Each key holds a list of strings. Write every action item as "<task> / assignee: <name> / due: <date>".
Output JSON only, no other content.`

type Client struct {
	config       *config.LLM
	openaiClient openAIClientInterface
	configured   bool
}

// NewClient 创建补全客户端。APIKey 为空时不报错，而是返回未配置状态的
// 客户端，调用 Complete 时得到 ErrUnconfigured，服务照常启动。
// transport 可为 nil，非 nil 时出站请求走该代理传输层。
func NewClient(cfg *config.LLM, transport *http.Transport) *Client {
	if cfg.APIKey == "" {
		return &Client{config: cfg}
	}

	openaiConfig := openai.DefaultConfig(cfg.APIKey)
	openaiConfig.BaseURL = cfg.BaseURL
	if transport != nil {
		openaiConfig.HTTPClient = &http.Client{Transport: transport}
	}

	return &Client{
		config:       cfg,
		openaiClient: openai.NewClientWithConfig(openaiConfig),
		configured:   true,
	}
}

// Configured 报告客户端是否持有可用的 API Key
func (c *Client) Configured() bool {
	return c.configured
}

// Complete 将一段文本发给模型，返回去除 markdown 代码围栏后的原始回复
func (c *Client) Complete(ctx context.Context, text string) (string, error) {
	if !c.configured {
		return "", ErrUnconfigured
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.config.Timeout)*time.Second)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Text:\n" + text},
		},
		Temperature: 0.2,
		MaxTokens:   c.config.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.openaiClient.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion API returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)
	return content, nil
}
