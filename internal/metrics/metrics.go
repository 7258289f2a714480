package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ServerMetrics 摘要服务的 Prometheus 指标集合
type ServerMetrics struct {
	RequestsTotal       *prometheus.CounterVec
	RequestSeconds      *prometheus.HistogramVec
	DigestFailuresTotal *prometheus.CounterVec
}

// NewServerMetrics 在给定的 Registerer 上注册摘要服务的指标
func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	factory := promauto.With(reg)

	return &ServerMetrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "digest_agent_http_requests_total",
				Help: "Total HTTP requests by path, method and status",
			},
			[]string{"path", "method", "status"},
		),
		RequestSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "digest_agent_http_request_seconds",
				Help:    "HTTP request latency, dominated by the completion call on /digest",
				Buckets: []float64{0.005, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"path"},
		),
		DigestFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "digest_agent_digest_failures_total",
				Help: "Digest failures by kind",
			},
			[]string{"kind"},
		),
	}
}

// RecordRequest 记录一次完成的 HTTP 请求
func (m *ServerMetrics) RecordRequest(path, method string, status int, seconds float64) {
	m.RequestsTotal.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.RequestSeconds.WithLabelValues(path).Observe(seconds)
}

// RecordDigestFailure 按失败类型记录一次摘要失败
func (m *ServerMetrics) RecordDigestFailure(kind string) {
	m.DigestFailuresTotal.WithLabelValues(kind).Inc()
}
