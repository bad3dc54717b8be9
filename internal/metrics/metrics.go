// Package metrics turns run events into Prometheus metrics on a private
// registry.
package metrics

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"uicheck/internal/runner"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "uicheck"

// Recorder is a runner.Observer that counts steps, runs and failures and
// records how long post-conditions took to hold. Safe for concurrent runs.
type Recorder struct {
	registry      *prometheus.Registry
	steps         *prometheus.CounterVec
	runs          *prometheus.CounterVec
	failures      *prometheus.CounterVec
	conditionWait *prometheus.HistogramVec
	runDuration   *prometheus.HistogramVec
}

var _ runner.Observer = (*Recorder)(nil)

// NewRecorder registers the run metrics on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		steps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Scenario steps finished, by outcome.",
		}, []string{"scenario", "status"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Scenario runs finished, by final state.",
		}, []string{"scenario", "state"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Failed runs by failure kind.",
		}, []string{"scenario", "kind"}),
		conditionWait: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "condition_wait_seconds",
			Help:      "Time until a post-condition became visible.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"scenario"}),
		runDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of finished runs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
		}, []string{"scenario"}),
	}
}

func (r *Recorder) OnEvent(e runner.Event) {
	switch e.Type {
	case runner.EventConditionMet:
		r.conditionWait.WithLabelValues(e.Scenario).Observe(e.Elapsed.Seconds())
	case runner.EventStepPassed:
		r.steps.WithLabelValues(e.Scenario, string(runner.StepPassed)).Inc()
	case runner.EventStepFailed:
		r.steps.WithLabelValues(e.Scenario, string(runner.StepFailed)).Inc()
	case runner.EventRunComplete:
		r.runs.WithLabelValues(e.Scenario, runner.Completed.String()).Inc()
		r.runDuration.WithLabelValues(e.Scenario).Observe(e.Elapsed.Seconds())
	case runner.EventRunFailed:
		r.runs.WithLabelValues(e.Scenario, runner.Failed.String()).Inc()
		r.failures.WithLabelValues(e.Scenario, runner.Kind(e.Error)).Inc()
		r.runDuration.WithLabelValues(e.Scenario).Observe(e.Elapsed.Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the metrics for node-exporter's textfile collector.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
