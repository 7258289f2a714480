package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/So-1ro/digest-agent/internal/config"
	"github.com/So-1ro/digest-agent/internal/digest"
	"github.com/So-1ro/digest-agent/internal/llm"
	"github.com/So-1ro/digest-agent/internal/logger"
	"github.com/So-1ro/digest-agent/internal/metrics"
	"github.com/So-1ro/digest-agent/internal/svc"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	ServiceName    = "digest-agent"
	ServiceVersion = "0.1.0"
)

// digester 执行总结加规范化流程（便于测试注入 mock）
type digester interface {
	Digest(ctx context.Context, text string) (*digest.Result, error)
}

// Server 对外暴露摘要服务的 HTTP 接口
type Server struct {
	cfg            *config.Server
	digester       digester
	metrics        *metrics.ServerMetrics
	metricsHandler fasthttp.RequestHandler
	httpServer     *fasthttp.Server
}

// ErrorResponse 错误响应体
type ErrorResponse struct {
	Error string `json:"error"`
}

// DigestResponse /digest 的成功响应：raw 为三个规范化列表，
// formatted 为拼好的展示文本
type DigestResponse struct {
	Raw       *digest.Result `json:"raw"`
	Formatted string         `json:"formatted"`
}

// HealthResponse /health 的响应体
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	Version string `json:"version"`
}

func New(svcCtx *svc.ServiceContext) *Server {
	s := &Server{
		cfg:      &svcCtx.Config.Server,
		digester: svcCtx.DigestService,
		metrics:  svcCtx.Metrics,
		metricsHandler: fasthttpadaptor.NewFastHTTPHandler(
			promhttp.HandlerFor(svcCtx.Registry, promhttp.HandlerOpts{}),
		),
	}

	s.httpServer = &fasthttp.Server{
		Handler:            s.handleRequest,
		Name:               ServiceName,
		ReadTimeout:        time.Duration(s.cfg.ReadTimeout) * time.Second,
		WriteTimeout:       time.Duration(s.cfg.WriteTimeout) * time.Second,
		MaxRequestBodySize: s.cfg.MaxRequestBody,
		Logger:             logger.Std{},
	}
	return s
}

// Start 开始监听并阻塞服务，直到 Shutdown 被调用
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe(fmt.Sprintf(":%d", s.cfg.Port))
}

// Shutdown 优雅关闭服务，等待存量请求完成
func (s *Server) Shutdown() error {
	return s.httpServer.Shutdown()
}

// handleRequest 按路径分发请求，并统一记录日志与指标
func (s *Server) handleRequest(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	requestID := uuid.NewString()
	ctx.Response.Header.Set("X-Request-Id", requestID)

	path := string(ctx.Path())
	switch path {
	case "/":
		s.handleRoot(ctx)
	case "/health":
		s.handleHealth(ctx)
	case "/digest":
		s.handleDigest(ctx)
	case "/metrics":
		s.metricsHandler(ctx)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		writeJSONError(ctx, "Not found")
	}

	duration := time.Since(startTime)
	s.metrics.RecordRequest(metricsPath(path), string(ctx.Method()), ctx.Response.StatusCode(), duration.Seconds())
	logger.Infof("[Server] %s %s -> %d (%s) request_id=%s",
		ctx.Method(), path, ctx.Response.StatusCode(), duration, requestID)
}

// metricsPath 将未知路径折叠为固定标签，控制指标基数
func metricsPath(path string) string {
	switch path {
	case "/", "/health", "/digest", "/metrics":
		return path
	}
	return "other"
}

func (s *Server) handleRoot(ctx *fasthttp.RequestCtx) {
	if !ctx.IsGet() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		writeJSONError(ctx, "Method not allowed")
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	writeJSONResponse(ctx, map[string]string{
		"message": "Digest Agent is running. Try GET /health or POST /digest",
	})
}

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	if !ctx.IsGet() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		writeJSONError(ctx, "Method not allowed")
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	writeJSONResponse(ctx, HealthResponse{
		OK:      true,
		Service: ServiceName,
		Version: ServiceVersion,
	})
}

func (s *Server) handleDigest(ctx *fasthttp.RequestCtx) {
	if !ctx.IsPost() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		writeJSONError(ctx, "Method not allowed")
		return
	}

	var req digest.Request
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		writeJSONError(ctx, "Invalid request body: "+err.Error())
		return
	}

	result, err := s.digester.Digest(ctx, req.Text)
	if err != nil {
		s.writeDigestFailure(ctx, err)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	writeJSONResponse(ctx, DigestResponse{
		Raw:       result,
		Formatted: result.Formatted,
	})
}

// writeDigestFailure 把摘要错误映射为对应的 HTTP 状态码：
// 未配置 -> 500（带运维提示），模型输出坏 JSON -> 502，其余 -> 500
func (s *Server) writeDigestFailure(ctx *fasthttp.RequestCtx, err error) {
	if llm.IsUnconfigured(err) {
		s.metrics.RecordDigestFailure("unconfigured")
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		writeJSONError(ctx, "OPENAI_API_KEY is not configured. Set it in the service environment and redeploy.")
		return
	}

	if malformed, ok := digest.AsMalformedOutput(err); ok {
		s.metrics.RecordDigestFailure("malformed_output")
		ctx.SetStatusCode(fasthttp.StatusBadGateway)
		writeJSONError(ctx, malformed.Error())
		return
	}

	s.metrics.RecordDigestFailure("internal")
	ctx.SetStatusCode(fasthttp.StatusInternalServerError)
	writeJSONError(ctx, "digest failed: "+err.Error())
}

// writeJSONResponse 序列化并写入响应体
func writeJSONResponse(ctx *fasthttp.RequestCtx, data any) {
	ctx.Response.Header.SetContentType("application/json")

	response, err := json.Marshal(data)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		logger.Errorf("[Server] 序列化响应失败, %v", err)
		ctx.SetBodyString(`{"error":"Internal server error"}`)
		return
	}

	ctx.SetBody(response)
}

// writeJSONError 以统一的错误结构写入响应体
func writeJSONError(ctx *fasthttp.RequestCtx, message string) {
	ctx.Response.Header.SetContentType("application/json")

	response, err := json.Marshal(ErrorResponse{Error: message})
	if err != nil {
		logger.Errorf("[Server] 序列化错误响应失败, %v", err)
		ctx.SetBodyString(`{"error":"Internal server error"}`)
		return
	}

	ctx.SetBody(response)
}
