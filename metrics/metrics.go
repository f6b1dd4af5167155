// Package metrics exposes Prometheus collectors for the chat pipeline and
// a per-turn JSON metrics log line.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	stageLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "civicsense_stage_latency_ms",
		Help:    "Latency of pipeline stages in milliseconds",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000},
	}, []string{"stage"})

	retrieverResults = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "civicsense_retriever_results",
		Help:    "Number of chunks returned per retrieval",
		Buckets: []float64{0, 1, 2, 4, 8, 16, 32},
	})

	tokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "civicsense_tokens_total",
		Help: "LLM tokens consumed",
	}, []string{"kind"})

	costTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "civicsense_cost_usd_total",
		Help: "Estimated LLM spend in USD",
	})

	feedbackScore = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "civicsense_feedback_score",
		Help:    "Feedback function score distribution",
		Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	}, []string{"name"})

	feedbackVerdict = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "civicsense_feedback_verdict_total",
		Help: "Feedback verdict count",
	}, []string{"name", "verdict"})

	turnsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "civicsense_turns_total",
		Help: "Chat turns answered",
	}, []string{"status"})
)

func ensureRegistered() {
	once.Do(func() {
		prometheus.MustRegister(Collectors()...)
	})
}

// Pipeline stage labels.
const (
	StageRetrieve = "retrieve"
	StageGenerate = "generate"
	StageEvaluate = "evaluate"
	StageTotal    = "total"
)

// ObserveStage records elapsed time for a pipeline stage.
func ObserveStage(stage string, start time.Time) {
	ensureRegistered()
	stageLatency.WithLabelValues(stage).Observe(float64(time.Since(start).Milliseconds()))
}

// ObserveRetrieval records how many chunks a retrieval returned.
func ObserveRetrieval(results int) {
	ensureRegistered()
	retrieverResults.Observe(float64(results))
}

// AddUsage accumulates token counts and estimated cost for a turn.
func AddUsage(promptTokens, completionTokens int, costUSD float64) {
	ensureRegistered()
	tokensTotal.WithLabelValues("prompt").Add(float64(promptTokens))
	tokensTotal.WithLabelValues("completion").Add(float64(completionTokens))
	if costUSD > 0 {
		costTotal.Add(costUSD)
	}
}

// ObserveFeedback records a feedback score and its verdict.
func ObserveFeedback(name string, score float64, verdict string) {
	ensureRegistered()
	feedbackScore.WithLabelValues(name).Observe(score)
	feedbackVerdict.WithLabelValues(name, verdict).Inc()
}

// IncTurn counts an answered turn by status (ok/error/no_context).
func IncTurn(status string) {
	ensureRegistered()
	turnsTotal.WithLabelValues(status).Inc()
}

// Collectors exposes all collectors for registration with a custom registry.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		stageLatency, retrieverResults, tokensTotal, costTotal,
		feedbackScore, feedbackVerdict, turnsTotal,
	}
}
