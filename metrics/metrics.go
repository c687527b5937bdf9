// Package metrics records orchestrator metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const MetricsNamespace = "runtests"

var (
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	testsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_total",
		Help:      "Count of executed tests by outcome",
	}, []string{
		"run_id",
		"outcome",
	})

	testDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "test_duration_seconds",
		Help:      "Wall-clock duration of individual tests",
		Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8),
	}, []string{
		"outcome",
	})

	runResult = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_result",
		Help:      "Result of the last run (1 = failed, 0 = passed)",
	}, []string{
		"run_id",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of the whole run",
	}, []string{
		"run_id",
	})
)

// RecordError counts an error by kind.
func RecordError(kind string) {
	errorsTotal.WithLabelValues(kind).Inc()
}

// RecordTest counts one finished test.
func RecordTest(runID, outcome string, d time.Duration) {
	testsTotal.WithLabelValues(runID, outcome).Inc()
	testDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordRun records the overall result of a run.
func RecordRun(runID string, failed bool, d time.Duration) {
	v := 0.0
	if failed {
		v = 1.0
	}
	runResult.WithLabelValues(runID).Set(v)
	runDuration.WithLabelValues(runID).Set(d.Seconds())
}
