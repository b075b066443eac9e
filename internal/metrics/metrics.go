package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mm_agent_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "mm_agent_http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "route"},
	)

	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mm_agent_llm_calls_total",
			Help: "LLM provider calls by provider, operation and outcome",
		},
		[]string{"provider", "op", "outcome"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mm_agent_llm_latency_seconds",
			Help:    "LLM provider call latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		},
		[]string{"provider", "op"},
	)

	ProviderFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mm_agent_llm_fallbacks_total",
			Help: "Retries against the default provider after a requested provider failed",
		},
		[]string{"from", "to"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mm_agent_cache_lookups_total",
			Help: "Cache lookups by key namespace and result (hit, miss, error)",
		},
		[]string{"namespace", "result"},
	)

	IntentClassifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mm_agent_intents_total",
			Help: "Classified intents by type",
		},
		[]string{"type"},
	)

	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mm_agent_tool_calls_total",
			Help: "Commerce tool calls by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)
)

// Outcome maps an error to the outcome label used by the counters above.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
