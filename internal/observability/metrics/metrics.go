package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/wolfman30/callflow-ai/internal/llm"
)

// ConversationMetrics exposes counters/histograms for the chat pipeline,
// provider calls and simulated calls.
type ConversationMetrics struct {
	pipelineTotal    *prometheus.CounterVec
	pipelineDuration *prometheus.HistogramVec
	llmTotal         *prometheus.CounterVec
	llmLatency       *prometheus.HistogramVec
	llmTokens        *prometheus.CounterVec
	callsSimulated   prometheus.Counter
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		pipelineTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callflow",
			Subsystem: "agent",
			Name:      "messages_processed_total",
			Help:      "Messages routed through the agent pipeline",
		}, []string{"intent", "status"}),
		pipelineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "callflow",
			Subsystem: "agent",
			Name:      "pipeline_duration_seconds",
			Help:      "Latency of one pipeline run",
			Buckets:   prometheus.DefBuckets,
		}, []string{"intent"}),
		llmTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callflow",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Completion requests sent to LLM providers",
		}, []string{"provider", "status"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "callflow",
			Subsystem: "llm",
			Name:      "latency_seconds",
			Help:      "Latency of LLM completion requests",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"provider"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callflow",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Tokens reported by LLM providers",
		}, []string{"provider", "direction"}),
		callsSimulated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "callflow",
			Subsystem: "calls",
			Name:      "simulated_total",
			Help:      "Simulated voice calls",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.pipelineTotal, m.pipelineDuration, m.llmTotal, m.llmLatency, m.llmTokens, m.callsSimulated)
	return m
}

// ObservePipeline satisfies agent.Observer.
func (m *ConversationMetrics) ObservePipeline(intent string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.pipelineTotal.WithLabelValues(intent, status(err)).Inc()
	m.pipelineDuration.WithLabelValues(intent).Observe(duration.Seconds())
}

// ObserveLLM satisfies llm.Observer.
func (m *ConversationMetrics) ObserveLLM(provider string, duration time.Duration, usage llm.TokenUsage, err error) {
	if m == nil {
		return
	}
	m.llmTotal.WithLabelValues(provider, status(err)).Inc()
	m.llmLatency.WithLabelValues(provider).Observe(duration.Seconds())
	if usage.InputTokens > 0 {
		m.llmTokens.WithLabelValues(provider, "input").Add(float64(usage.InputTokens))
	}
	if usage.OutputTokens > 0 {
		m.llmTokens.WithLabelValues(provider, "output").Add(float64(usage.OutputTokens))
	}
}

func (m *ConversationMetrics) ObserveCallSimulated() {
	if m == nil {
		return
	}
	m.callsSimulated.Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
