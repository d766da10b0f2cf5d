package metrics

import (
	"net/http"
	"time"

	"balanced-meal-planner/internal/shared"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metrics for the recommendation engine and the LLM agents.
var (
	scoringRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meal_planner_scoring_runs_total",
		Help: "Total number of scoring engine runs by operation",
	}, []string{"operation"})

	scoringCandidatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meal_planner_scoring_candidates_total",
		Help: "Total number of recipes considered by the scoring engine",
	}, []string{"operation"})

	scoringDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meal_planner_scoring_duration_seconds",
		Help:    "Scoring engine run duration in seconds",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
	}, []string{"operation"})

	agentTokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meal_planner_llm_tokens_total",
		Help: "Total number of LLM tokens by agent and kind",
	}, []string{"agent", "kind"})

	agentLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meal_planner_llm_latency_seconds",
		Help:    "LLM agent latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"agent"})
)

// EngineObserver forwards engine runs to the Prometheus collectors.
type EngineObserver struct{}

// ObserveScoring records one engine run.
func (EngineObserver) ObserveScoring(operation string, candidates int, elapsed time.Duration) {
	scoringRunsTotal.WithLabelValues(operation).Inc()
	scoringCandidatesTotal.WithLabelValues(operation).Add(float64(candidates))
	scoringDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveAgent records token usage and latency of an LLM call.
func ObserveAgent(meta shared.AgentMeta) {
	if meta.AgentName == "" || (meta.Usage.PromptTokens == 0 && meta.Usage.CompletionTokens == 0) {
		return
	}
	agentTokensTotal.WithLabelValues(meta.AgentName, "prompt").Add(float64(meta.Usage.PromptTokens))
	agentTokensTotal.WithLabelValues(meta.AgentName, "completion").Add(float64(meta.Usage.CompletionTokens))
	agentLatency.WithLabelValues(meta.AgentName).Observe(meta.Latency.Seconds())
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
