// Package metrics exposes Prometheus collectors for agent runs, model usage,
// tool calls, breaker state and pending questions, plus per identity token
// accounting.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "agentcouncil"

// Metrics bundles the collectors. All methods are safe on a nil receiver.
type Metrics struct {
	agentRuns        *prometheus.CounterVec
	agentDuration    *prometheus.HistogramVec
	modelTokens      *prometheus.CounterVec
	modelFallbacks   *prometheus.CounterVec
	toolCalls        *prometheus.CounterVec
	toolDuration     *prometheus.HistogramVec
	breakerState     *prometheus.GaugeVec
	pendingQuestions prometheus.Gauge
	turns            *prometheus.CounterVec
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// Default returns the metrics registered with the global Prometheus registry.
// The collectors are created only once to avoid duplicate registration panics.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics constructs Metrics using reg. Collectors already registered
// under the same name are reused; any other registration error panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	return &Metrics{
		agentRuns: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_runs_total",
			Help:      "Agent runs by type and outcome.",
		}, []string{"agent_type", "status"})),
		agentDuration: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_run_duration_seconds",
			Help:      "Wall clock duration of agent runs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"agent_type"})),
		modelTokens: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_tokens_total",
			Help:      "Tokens consumed by model and kind (prompt, completion).",
		}, []string{"model", "kind"})),
		modelFallbacks: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_fallbacks_total",
			Help:      "Fallbacks from one model to the next in the chain.",
		}, []string{"from", "to"})),
		toolCalls: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Executed tool calls by tool and outcome.",
		}, []string{"tool", "status"})),
		toolDuration: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_call_duration_seconds",
			Help:      "Duration of executed tool calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"})),
		breakerState: register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Breaker state per agent type (0 closed, 1 open, 2 half-open).",
		}, []string{"agent_type"})),
		pendingQuestions: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_questions",
			Help:      "Questions waiting for a user answer.",
		})),
		turns: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orchestrator_turns_total",
			Help:      "Processed turns by intent and outcome.",
		}, []string{"intent", "status"})),
	}
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ObserveAgentRun records one finished agent run.
func (m *Metrics) ObserveAgentRun(agentType string, dur time.Duration, err error) {
	if m == nil {
		return
	}
	m.agentRuns.WithLabelValues(agentType, status(err)).Inc()
	m.agentDuration.WithLabelValues(agentType).Observe(dur.Seconds())
}

// IncAgentRejected counts a run refused by the circuit breaker.
func (m *Metrics) IncAgentRejected(agentType string) {
	if m == nil {
		return
	}
	m.agentRuns.WithLabelValues(agentType, "circuit_open").Inc()
}

// AddTokens accumulates prompt and completion tokens for model.
func (m *Metrics) AddTokens(model string, prompt, completion int) {
	if m == nil {
		return
	}
	m.modelTokens.WithLabelValues(model, "prompt").Add(float64(prompt))
	m.modelTokens.WithLabelValues(model, "completion").Add(float64(completion))
}

// IncFallback counts a fallback between models.
func (m *Metrics) IncFallback(from, to string) {
	if m == nil {
		return
	}
	m.modelFallbacks.WithLabelValues(from, to).Inc()
}

// ObserveToolCall records one executed tool call.
func (m *Metrics) ObserveToolCall(tool string, dur time.Duration, err error) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, status(err)).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(dur.Seconds())
}

// SetBreakerState publishes the numeric breaker state of agentType.
func (m *Metrics) SetBreakerState(agentType string, state int) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(agentType).Set(float64(state))
}

// SetPendingQuestions publishes the number of unanswered questions.
func (m *Metrics) SetPendingQuestions(n int) {
	if m == nil {
		return
	}
	m.pendingQuestions.Set(float64(n))
}

// IncTurn counts a processed turn.
func (m *Metrics) IncTurn(intent string, err error) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(intent, status(err)).Inc()
}
