// Package metrics exposes Prometheus collectors for graph evaluation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tempogrid"

// Recorder receives engine events. A nil Recorder is valid for the engine
// and records nothing.
type Recorder interface {
	ObserveOperator(key, backend string, d time.Duration, err error)
	ObserveEvaluation(steps int, d time.Duration, err error)
	ObserveRelease()
}

// Collector records engine events into Prometheus collectors.
type Collector struct {
	operatorsTotal     *prometheus.CounterVec
	operatorDuration   *prometheus.HistogramVec
	evaluationsTotal   *prometheus.CounterVec
	evaluationSteps    prometheus.Histogram
	evaluationDuration prometheus.Histogram
	released           prometheus.Counter
}

// NewCollector registers the collectors with reg. Pass
// prometheus.DefaultRegisterer to expose them on the default handler.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		operatorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operator_executions_total",
				Help:      "Total number of operator executions",
			},
			[]string{"operator", "backend", "status"},
		),
		operatorDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operator_duration_seconds",
				Help:      "Operator execution time in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"operator", "backend"},
		),
		evaluationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_total",
				Help:      "Total number of graph evaluations",
			},
			[]string{"status"},
		),
		evaluationSteps: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "evaluation_steps",
				Help:      "Number of operators executed per evaluation",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		evaluationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "evaluation_duration_seconds",
				Help:      "Graph evaluation time in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		released: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "intermediates_released_total",
				Help:      "Intermediate results dropped after their last use",
			},
		),
	}
}

// ObserveOperator records one operator execution.
func (c *Collector) ObserveOperator(key, backend string, d time.Duration, err error) {
	c.operatorsTotal.WithLabelValues(key, backend, status(err)).Inc()
	c.operatorDuration.WithLabelValues(key, backend).Observe(d.Seconds())
}

// ObserveEvaluation records one finished graph evaluation.
func (c *Collector) ObserveEvaluation(steps int, d time.Duration, err error) {
	c.evaluationsTotal.WithLabelValues(status(err)).Inc()
	if err == nil {
		c.evaluationSteps.Observe(float64(steps))
		c.evaluationDuration.Observe(d.Seconds())
	}
}

// ObserveRelease records one released intermediate result.
func (c *Collector) ObserveRelease() {
	c.released.Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
