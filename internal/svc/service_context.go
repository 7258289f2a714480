package svc

import (
	"fmt"
	"net/http"

	"github.com/So-1ro/digest-agent/internal/config"
	"github.com/So-1ro/digest-agent/internal/digest"
	"github.com/So-1ro/digest-agent/internal/llm"
	"github.com/So-1ro/digest-agent/internal/logger"
	"github.com/So-1ro/digest-agent/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/proxy"
)

type ServiceContext struct {
	Config         *config.Config
	TransportProxy *http.Transport
	Registry       *prometheus.Registry
	Metrics        *metrics.ServerMetrics
	LLMClient      *llm.Client
	DigestService  *digest.Service
}

func NewServiceContext(c *config.Config) *ServiceContext {
	// 创建SOCKS5代理
	var transportProxy *http.Transport
	if c.Sock5Proxy.Enable {
		socks5Proxy := fmt.Sprintf("%s:%d", c.Sock5Proxy.Host, c.Sock5Proxy.Port)
		dialer, err := proxy.SOCKS5("tcp", socks5Proxy, nil, proxy.Direct)
		if err != nil {
			logger.Fatalf("创建SOCKS5代理失败, %v", err)
		}

		transportProxy = &http.Transport{
			Dial: dialer.Dial,
		}
	}

	// 指标注册在服务自己的 Registry 上
	registry := prometheus.NewRegistry()

	llmClient := llm.NewClient(&c.LLM, transportProxy)
	if !llmClient.Configured() {
		logger.Warnf("[Svc] OPENAI_API_KEY 未设置，/digest 将返回配置错误直到补全配置")
	}

	svcCtx := &ServiceContext{
		Config:         c,
		TransportProxy: transportProxy,
		Registry:       registry,
		Metrics:        metrics.NewServerMetrics(registry),
		LLMClient:      llmClient,
		DigestService:  digest.NewService(llmClient),
	}
	return svcCtx
}
