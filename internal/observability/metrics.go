package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/cookgpt-backend/internal/generation"
)

const namespace = "cookgpt"

// Metrics holds the service's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	generations       *prometheus.CounterVec
	generationLatency *prometheus.HistogramVec
	generationTokens  *prometheus.CounterVec

	streamReads *prometheus.CounterVec
	budgetHits  prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "API requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "API request latency by method and route.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "api_inflight_requests",
			Help:      "In-flight API requests.",
		}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Chat generations by backend and result.",
		}, []string{"backend", "result"}),
		generationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Time to produce a full chat response.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		}, []string{"backend"}),
		generationTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_tokens_total",
			Help:      "Tokens charged to users by side (prompt or completion).",
		}, []string{"backend", "side"}),
		streamReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_reads_total",
			Help:      "Read-stream requests by outcome.",
		}, []string{"outcome"}),
		budgetHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_placeholders_total",
			Help:      "Chats answered with a placeholder because the thread hit its budget.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.generations, m.generationLatency, m.generationTokens,
		m.streamReads, m.budgetHits,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) ApiInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

// ObserveGeneration records one SendQuery generation.
func (m *Metrics) ObserveGeneration(backend string, took time.Duration, usage generation.Usage, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.generations.WithLabelValues(backend, result).Inc()
	m.generationLatency.WithLabelValues(backend).Observe(took.Seconds())
	if err == nil {
		m.generationTokens.WithLabelValues(backend, "prompt").Add(float64(usage.PromptTokens))
		m.generationTokens.WithLabelValues(backend, "completion").Add(float64(usage.CompletionTokens))
	}
}

// ObserveStreamRead records how a read-stream request ended: "ok",
// "timeout", "cancelled" or "error".
func (m *Metrics) ObserveStreamRead(outcome string) {
	if m != nil {
		m.streamReads.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncBudgetPlaceholder() {
	if m != nil {
		m.budgetHits.Inc()
	}
}
