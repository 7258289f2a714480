package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// clearLLMEnv 清空可能影响测试的环境变量
func clearLLMEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")
	t.Setenv("OPENAI_MODEL", "")
}

func TestLoadFromFile_Defaults(t *testing.T) {
	clearLLMEnv(t)
	path := writeConfigFile(t, "Server:\n  Port: 9090\n")

	c, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, 30, c.Server.ReadTimeout)
	assert.Equal(t, 30, c.Server.WriteTimeout)
	assert.Equal(t, 1<<20, c.Server.MaxRequestBody)
	assert.Equal(t, "https://api.openai.com/v1", c.LLM.BaseURL)
	assert.Equal(t, "", c.LLM.APIKey)
	assert.Equal(t, "gpt-4o-mini", c.LLM.Model)
	assert.Equal(t, 1024, c.LLM.MaxTokens)
	assert.Equal(t, 120, c.LLM.Timeout)
	assert.False(t, c.Sock5Proxy.Enable)
}

func TestLoadFromFile_FullValues(t *testing.T) {
	clearLLMEnv(t)
	path := writeConfigFile(t, `
Server:
  Port: 8888
  ReadTimeout: 10
  WriteTimeout: 20
  MaxRequestBody: 2048
LLM:
  BaseURL: "https://api.deepseek.com/v1"
  APIKey: "sk-file"
  Model: "deepseek-chat"
  MaxTokens: 2000
  Timeout: 60
Sock5Proxy:
  Host: "127.0.0.1"
  Port: 1080
  Enable: true
`)

	c, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 8888, c.Server.Port)
	assert.Equal(t, 10, c.Server.ReadTimeout)
	assert.Equal(t, 20, c.Server.WriteTimeout)
	assert.Equal(t, 2048, c.Server.MaxRequestBody)
	assert.Equal(t, "https://api.deepseek.com/v1", c.LLM.BaseURL)
	assert.Equal(t, "sk-file", c.LLM.APIKey)
	assert.Equal(t, "deepseek-chat", c.LLM.Model)
	assert.Equal(t, 2000, c.LLM.MaxTokens)
	assert.Equal(t, 60, c.LLM.Timeout)
	assert.True(t, c.Sock5Proxy.Enable)
	assert.Equal(t, "127.0.0.1", c.Sock5Proxy.Host)
	assert.Equal(t, int32(1080), c.Sock5Proxy.Port)
}

func TestLoadFromFile_EnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("OPENAI_BASE_URL", "https://proxy.example.com/v1")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	path := writeConfigFile(t, `
LLM:
  BaseURL: "https://api.openai.com/v1"
  APIKey: "sk-file"
  Model: "gpt-4o-mini"
`)

	c, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-env", c.LLM.APIKey)
	assert.Equal(t, "https://proxy.example.com/v1", c.LLM.BaseURL)
	assert.Equal(t, "gpt-4o", c.LLM.Model)
}

func TestLoadFromFile_MissingAPIKeyAllowed(t *testing.T) {
	// APIKey 为空不是配置错误，服务以未配置状态启动
	clearLLMEnv(t)
	path := writeConfigFile(t, "LLM:\n  APIKey: \"\"\n")

	c, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Empty(t, c.LLM.APIKey)
}

func TestLoadFromFile_FileNotFound(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "Server: [not: valid\n")

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestLoadFromFile_ValidateErrors(t *testing.T) {
	clearLLMEnv(t)

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "端口为负数",
			content: "Server:\n  Port: -1\n",
			wantErr: "Server.Port",
		},
		{
			name:    "端口超出范围",
			content: "Server:\n  Port: 70000\n",
			wantErr: "Server.Port",
		},
		{
			name:    "读超时为负数",
			content: "Server:\n  ReadTimeout: -5\n",
			wantErr: "Server.ReadTimeout",
		},
		{
			name:    "请求体上限为负数",
			content: "Server:\n  MaxRequestBody: -1\n",
			wantErr: "Server.MaxRequestBody",
		},
		{
			name:    "MaxTokens 为负数",
			content: "LLM:\n  MaxTokens: -100\n",
			wantErr: "LLM.MaxTokens",
		},
		{
			name:    "Timeout 为负数",
			content: "LLM:\n  Timeout: -1\n",
			wantErr: "LLM.Timeout",
		},
		{
			name:    "代理开启但缺少 Host",
			content: "Sock5Proxy:\n  Enable: true\n  Port: 1080\n",
			wantErr: "Sock5Proxy.Host",
		},
		{
			name:    "代理开启但端口非法",
			content: "Sock5Proxy:\n  Enable: true\n  Host: \"127.0.0.1\"\n  Port: -1\n",
			wantErr: "Sock5Proxy.Port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.content)

			_, err := LoadFromFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
