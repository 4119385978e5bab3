package core

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder exports service operations, per-model outcomes
// and successful exports per format as Prometheus collectors.
type PrometheusMetricsRecorder struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	models     *prometheus.CounterVec
	exports    *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder registers the recorder's collectors with reg.
// Collectors already registered by an earlier recorder on the same registry
// are reused.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "genomecore",
		Subsystem: "service",
		Name:      "operations_total",
		Help:      "Service operations by outcome.",
	}, []string{"operation", "status"})
	lat := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "genomecore",
		Subsystem: "service",
		Name:      "operation_duration_seconds",
		Help:      "Service operation latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	models := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "genomecore",
		Subsystem: "model",
		Name:      "operations_total",
		Help:      "Operations on a stored genome model by outcome.",
	}, []string{"model", "operation", "status"})
	exports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "genomecore",
		Subsystem: "model",
		Name:      "exports_total",
		Help:      "Successful exports per model and format.",
	}, []string{"model", "format"})

	var err error
	if ops, err = register(reg, ops); err != nil {
		return nil, err
	}
	if lat, err = register(reg, lat); err != nil {
		return nil, err
	}
	if models, err = register(reg, models); err != nil {
		return nil, err
	}
	if exports, err = register(reg, exports); err != nil {
		return nil, err
	}
	return &PrometheusMetricsRecorder{operations: ops, latency: lat, models: models, exports: exports}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(ctx context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := outcome(success)
	r.operations.WithLabelValues(operation, status).Inc()
	r.latency.WithLabelValues(operation).Observe(duration.Seconds())

	model := ModelFromContext(ctx)
	if model == "" {
		return
	}
	r.models.WithLabelValues(model, operation, status).Inc()
	if format := ExportFormatFromContext(ctx); success && format != "" {
		r.exports.WithLabelValues(model, format).Inc()
	}
}
