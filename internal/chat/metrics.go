package chat

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reply paths.
const (
	PathGateway  = "gateway"
	PathFallback = "fallback"
)

// Metrics records chat activity.
type Metrics struct {
	requests       *prometheus.CounterVec
	toolCalls      *prometheus.CounterVec
	gatewayLatency *prometheus.HistogramVec
}

// NewMetrics registers chat metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskflow",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Chat messages handled, by reply path",
		}, []string{"path"}),
		toolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskflow",
			Subsystem: "chat",
			Name:      "tool_calls_total",
			Help:      "Tool invocations made while handling chat, by tool and outcome",
		}, []string{"tool", "outcome"}),
		gatewayLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "taskflow",
			Subsystem: "chat",
			Name:      "gateway_duration_seconds",
			Help:      "Model gateway call duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"outcome"}),
	}
}

func (m *Metrics) recordRequest(path string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path).Inc()
}

func (m *Metrics) recordToolCall(tool string, failed bool) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome(!failed)).Inc()
}

func (m *Metrics) observeGateway(elapsed time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.gatewayLatency.WithLabelValues(outcome(ok)).Observe(elapsed.Seconds())
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
