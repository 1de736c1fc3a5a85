// Package metrics exposes the domain Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every domain collector behind one registry so tests can
// build isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	LLMCalls        *prometheus.CounterVec
	LLMLatency      *prometheus.HistogramVec
	Interpretations *prometheus.CounterVec
	Reports         *prometheus.CounterVec
	ReportsBlocked  *prometheus.CounterVec
	LLMCost         *prometheus.CounterVec
	RateLimitHits   *prometheus.CounterVec
	Errors          *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		LLMCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_calls_total",
			Help: "Total number of LLM API calls",
		}, []string{"operation", "model", "status"}),
		LLMLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "llm_latency_seconds",
			Help:    "LLM API call latency",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"operation", "model"}),
		Interpretations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interpretations_total",
			Help: "Total number of dream interpretations",
		}, []string{"plan", "status"}),
		Reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reports_total",
			Help: "Total number of reports generated",
		}, []string{"plan", "type"}),
		ReportsBlocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reports_blocked_quota_total",
			Help: "Reports blocked due to quota limits",
		}, []string{"plan", "reason"}),
		LLMCost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_cost_usd_total",
			Help: "Total LLM costs in USD",
		}, []string{"operation", "model"}),
		RateLimitHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limit_hits_total",
			Help: "Rate limit violations",
		}, []string{"feature", "user_plan"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total errors by type",
		}, []string{"error_type", "operation"}),
	}
	registry.MustRegister(
		m.LLMCalls, m.LLMLatency, m.Interpretations, m.Reports,
		m.ReportsBlocked, m.LLMCost, m.RateLimitHits, m.Errors,
	)
	return m
}

// ObserveLLMCall records one call's outcome and latency.
func (m *Metrics) ObserveLLMCall(operation, model string, elapsed time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.LLMCalls.WithLabelValues(operation, model, status).Inc()
	m.LLMLatency.WithLabelValues(operation, model).Observe(elapsed.Seconds())
}

// TrackInterpretation counts one interpretation attempt by plan and outcome.
func (m *Metrics) TrackInterpretation(plan, status string) {
	m.Interpretations.WithLabelValues(plan, status).Inc()
}

// TrackReport counts one generated report.
func (m *Metrics) TrackReport(plan, reportType string) {
	m.Reports.WithLabelValues(plan, reportType).Inc()
}

// TrackBlockedReport counts a report refused by the availability gate.
func (m *Metrics) TrackBlockedReport(plan, reason string) {
	m.ReportsBlocked.WithLabelValues(plan, reason).Inc()
}

// TrackLLMCost accumulates the USD spend.
func (m *Metrics) TrackLLMCost(operation, model string, costUSD float64) {
	m.LLMCost.WithLabelValues(operation, model).Add(costUSD)
}

// TrackRateLimit counts one rejected request.
func (m *Metrics) TrackRateLimit(feature, plan string) {
	m.RateLimitHits.WithLabelValues(feature, plan).Inc()
}

// TrackError counts one error by type and operation.
func (m *Metrics) TrackError(errorType, operation string) {
	m.Errors.WithLabelValues(errorType, operation).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
