package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	stageResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "soepipeline",
			Name:      "stage_results_total",
			Help:      "Pipeline stage outcomes by stage and result (ok, error, skipped)",
		},
		[]string{"stage", "result"},
	)

	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "soepipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "soepipeline",
			Name:      "runs_total",
			Help:      "Pipeline runs by input mode (upload, reference)",
		},
		[]string{"mode"},
	)

	docServiceCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "soepipeline",
			Name:      "document_service_requests_total",
			Help:      "Document service calls by operation (store, infer) and result",
		},
		[]string{"operation", "result"},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(stageResults, stageDuration, runsTotal, docServiceCalls)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveStage(stage, result string, dur time.Duration) {
	stageResults.WithLabelValues(stage, result).Inc()
	stageDuration.WithLabelValues(stage).Observe(dur.Seconds())
}

func StageSkipped(stage string) { stageResults.WithLabelValues(stage, "skipped").Inc() }

func IncRun(mode string) { runsTotal.WithLabelValues(mode).Inc() }

func ObserveDocService(operation, result string) {
	docServiceCalls.WithLabelValues(operation, result).Inc()
}
