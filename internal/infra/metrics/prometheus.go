// Package metrics exports service operation metrics to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"herdcore/internal/core"
)

var _ core.MetricsRecorder = (*Recorder)(nil)

// Recorder implements core.MetricsRecorder on a Prometheus registry.
type Recorder struct {
	registry         *prometheus.Registry
	operations       *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	timelineFailures prometheus.Counter
}

// NewRecorder registers the herdcore collectors on a fresh registry. Go
// runtime and process collectors are included.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "herdcore_operations_total",
			Help: "Service operations by outcome",
		}, []string{"operation", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "herdcore_operation_duration_seconds",
			Help:    "Duration of service operations",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),
		timelineFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "herdcore_timeline_append_failures_total",
			Help: "Lifecycle timeline appends that failed after a committed operation",
		}),
	}
}

// Observe implements core.MetricsRecorder.
func (r *Recorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	status := string(core.AuditStatusSuccess)
	if !success {
		status = string(core.AuditStatusError)
	}
	r.operations.WithLabelValues(operation, status).Inc()
	r.duration.WithLabelValues(operation).Observe(duration.Seconds())
	if operation == core.OpTimelineAppend && !success {
		r.timelineFailures.Inc()
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
