// Package metrics provides Prometheus instrumentation for the winds API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the application metrics.
type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ErrorsTotal     *prometheus.CounterVec

	AnalysisDuration *prometheus.HistogramVec
	GranulesLoaded   prometheus.Counter
}

// NewCollector creates a metrics collector registered with the default
// Prometheus registry.
func NewCollector(namespace string) *Collector {
	return &Collector{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by endpoint, method, and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
			},
			[]string{"endpoint"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of API errors by endpoint",
			},
			[]string{"endpoint"},
		),

		AnalysisDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analysis_duration_seconds",
				Help:      "Duration of analysis operations (compare, mask, histogram)",
				Buckets:   []float64{0.01, 0.1, 0.5, 1.0, 5.0, 30.0, 120.0},
			},
			[]string{"operation"},
		),

		GranulesLoaded: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "granules_loaded_total",
				Help:      "Total number of CCMP granules read from disk",
			},
		),
	}
}

// ObserveAnalysis records the duration of one analysis operation.
func (c *Collector) ObserveAnalysis(operation string, start time.Time) {
	c.AnalysisDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
