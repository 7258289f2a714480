package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Sock5Proxy struct {
	Host   string `yaml:"Host"`
	Port   int32  `yaml:"Port"`
	Enable bool   `yaml:"Enable"`
}

type Server struct {
	Port           int `yaml:"Port"`           // HTTP 监听端口
	ReadTimeout    int `yaml:"ReadTimeout"`    // 读超时（秒）
	WriteTimeout   int `yaml:"WriteTimeout"`   // 写超时（秒）
	MaxRequestBody int `yaml:"MaxRequestBody"` // 请求体大小上限（字节）
}

type LLM struct {
	BaseURL   string `yaml:"BaseURL"` // 兼容 OpenAI API 的端点
	APIKey    string `yaml:"APIKey"`
	Model     string `yaml:"Model"`     // 如 gpt-4o-mini, deepseek-chat, qwen-plus
	MaxTokens int    `yaml:"MaxTokens"` // 单次补全的 token 上限
	Timeout   int    `yaml:"Timeout"`   // 单次补全调用超时（秒）
}

type Config struct {
	Sock5Proxy Sock5Proxy `yaml:"Sock5Proxy"`
	Server     Server     `yaml:"Server"`
	LLM        LLM        `yaml:"LLM"`
}

// envOverrides 允许通过环境变量覆盖配置文件中的 LLM 设置，
// 非空的环境变量优先于文件中的值。
type envOverrides struct {
	APIKey  string `env:"OPENAI_API_KEY"`
	BaseURL string `env:"OPENAI_BASE_URL"`
	Model   string `env:"OPENAI_MODEL"`
}

func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var c Config
	err = yaml.Unmarshal([]byte(data), &c)
	if err != nil {
		return nil, err
	}

	c.applyDefaults()

	if err := c.applyEnvOverrides(); err != nil {
		return nil, err
	}

	// 验证配置
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// applyDefaults 为未设置的配置项填充默认值
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30
	}
	if c.Server.MaxRequestBody == 0 {
		c.Server.MaxRequestBody = 1 << 20
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 1024
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 120
	}
}

func (c *Config) applyEnvOverrides() error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("解析环境变量失败: %w", err)
	}

	if overrides.APIKey != "" {
		c.LLM.APIKey = overrides.APIKey
	}
	if overrides.BaseURL != "" {
		c.LLM.BaseURL = overrides.BaseURL
	}
	if overrides.Model != "" {
		c.LLM.Model = overrides.Model
	}

	return nil
}

// Validate 验证配置的有效性。LLM.APIKey 允许为空，
// 服务正常启动，调用 /digest 时按未配置处理。
func (c *Config) Validate() error {
	// 验证 Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("Server.Port 必须在 1-65535 之间")
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("Server.ReadTimeout 必须 >= 0")
	}
	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("Server.WriteTimeout 必须 >= 0")
	}
	if c.Server.MaxRequestBody <= 0 {
		return fmt.Errorf("Server.MaxRequestBody 必须大于 0")
	}

	// 验证 LLM
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("LLM.BaseURL 不能为空")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("LLM.Model 不能为空")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("LLM.MaxTokens 必须大于 0")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("LLM.Timeout 必须大于 0")
	}

	// 验证 Sock5Proxy
	if c.Sock5Proxy.Enable {
		if c.Sock5Proxy.Host == "" {
			return fmt.Errorf("Sock5Proxy.Host 不能为空（当 Enable 为 true 时）")
		}
		if c.Sock5Proxy.Port <= 0 {
			return fmt.Errorf("Sock5Proxy.Port 必须大于 0（当 Enable 为 true 时）")
		}
	}

	return nil
}
