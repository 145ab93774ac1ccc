package telemetry

import (
	"strconv"
	"strings"
	"time"

	"fingate/config"
	"fingate/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric struct；未啟用時所有欄位為 nil，Observe* 方法皆可安全呼叫
type Metric struct {
	HttpRequestsTotal     *prometheus.CounterVec
	HttpRequestDuration   *prometheus.HistogramVec
	GatewayRequestsTotal  *prometheus.CounterVec
	UpstreamDuration      *prometheus.HistogramVec
	CreditsConsumedTotal  *prometheus.CounterVec
	AuthFailuresTotal     *prometheus.CounterVec
	RateLimitedTotal      prometheus.Counter
	UsageDroppedTotal     prometheus.Counter
	DeliveryAttemptsTotal *prometheus.CounterVec
	DeliveryDuration      prometheus.Histogram
	DeliveryFailedTotal   prometheus.Counter
	config                *config.Configuration
}

// NewMetric 建立所有指標
func NewMetric(config *config.Configuration) *Metric {
	if config == nil || !config.Telemetry.Metric.Enabled {
		return &Metric{}
	}
	buckets := prometheus.DefBuckets
	if len(config.Telemetry.Metric.Buckets) > 0 {
		buckets = config.Telemetry.Metric.Buckets
	}
	prefix := metricPrefix(config.App.Name)
	return &Metric{
		config: config,
		HttpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + string(core.MetricHttpRequestsTotal),
				Help: "Total received HTTP requests",
			},
			labelNames(core.MetricLabelEndpoint, core.MetricLabelStatus),
		),
		HttpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + string(core.MetricHttpRequestDuration),
				Help:    "HTTP request duration (seconds)",
				Buckets: buckets,
			},
			labelNames(core.MetricLabelEndpoint),
		),
		GatewayRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + string(core.MetricGatewayRequestsTotal),
				Help: "Gateway requests by route and final status",
			},
			labelNames(core.MetricLabelRoute, core.MetricLabelStatus),
		),
		UpstreamDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + string(core.MetricUpstreamDuration),
				Help:    "Internal handler invocation duration (seconds)",
				Buckets: buckets,
			},
			labelNames(core.MetricLabelRoute, core.MetricLabelOutcome),
		),
		CreditsConsumedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + string(core.MetricCreditsConsumedTotal),
				Help: "Credits charged per route",
			},
			labelNames(core.MetricLabelRoute),
		),
		AuthFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + string(core.MetricAuthFailuresTotal),
				Help: "Rejected gateway credentials by reason",
			},
			labelNames(core.MetricLabelReason),
		),
		RateLimitedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: prefix + string(core.MetricRateLimitTotal),
			Help: "Requests rejected by the rate limiter",
		}),
		UsageDroppedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: prefix + string(core.MetricUsageDroppedTotal),
			Help: "Usage records dropped because the buffer was full",
		}),
		DeliveryAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + string(core.MetricDeliveryAttemptsTotal),
				Help: "Webhook delivery attempts by outcome",
			},
			labelNames(core.MetricLabelOutcome),
		),
		DeliveryDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    prefix + string(core.MetricDeliveryDuration),
			Help:    "Webhook POST latency (seconds)",
			Buckets: buckets,
		}),
		DeliveryFailedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: prefix + string(core.MetricDeliveryFailedTotal),
			Help: "Deliveries that reached the failed state",
		}),
	}
}

func (m *Metric) ObserveHttpRequest(endpoint string, status int, elapsed time.Duration) {
	if m == nil || m.HttpRequestsTotal == nil {
		return
	}
	m.HttpRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.HttpRequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (m *Metric) ObserveGatewayRequest(route string, status, credits int) {
	if m == nil || m.GatewayRequestsTotal == nil {
		return
	}
	m.GatewayRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	if credits > 0 {
		m.CreditsConsumedTotal.WithLabelValues(route).Add(float64(credits))
	}
}

func (m *Metric) ObserveUpstream(route, outcome string, elapsed time.Duration) {
	if m == nil || m.UpstreamDuration == nil {
		return
	}
	m.UpstreamDuration.WithLabelValues(route, outcome).Observe(elapsed.Seconds())
}

func (m *Metric) IncAuthFailure(reason string) {
	if m == nil || m.AuthFailuresTotal == nil {
		return
	}
	m.AuthFailuresTotal.WithLabelValues(reason).Inc()
}

func (m *Metric) IncRateLimited() {
	if m == nil || m.RateLimitedTotal == nil {
		return
	}
	m.RateLimitedTotal.Inc()
}

func (m *Metric) IncUsageDropped() {
	if m == nil || m.UsageDroppedTotal == nil {
		return
	}
	m.UsageDroppedTotal.Inc()
}

func (m *Metric) ObserveDeliveryAttempt(outcome string, elapsed time.Duration) {
	if m == nil || m.DeliveryAttemptsTotal == nil {
		return
	}
	m.DeliveryAttemptsTotal.WithLabelValues(outcome).Inc()
	m.DeliveryDuration.Observe(elapsed.Seconds())
}

func (m *Metric) IncDeliveryFailed() {
	if m == nil || m.DeliveryFailedTotal == nil {
		return
	}
	m.DeliveryFailedTotal.Inc()
}

// metricPrefix 服務名稱轉成合法的 prometheus 前綴
func metricPrefix(name string) string {
	if name == "" {
		return ""
	}
	return strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(name) + "_"
}

// labelNames helper: LabelName slice 轉成 []string
func labelNames(labels ...core.MetricLabelName) []string {
	strs := make([]string, len(labels))
	for i, l := range labels {
		strs[i] = string(l)
	}
	return strs
}
