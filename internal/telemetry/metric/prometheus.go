package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nodestore"

// Operation result labels.
const (
	ResultOK     = "ok"
	ResultAbsent = "absent"
	ResultError  = "error"
)

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	PayloadBytes      *prometheus.HistogramVec
	ArchiveMigrations *prometheus.CounterVec
}

// NewRegistry creates a registry with Go runtime and process collectors
// plus the node store metrics.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Node store operations by operation and result",
		}, []string{"op", "result"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Node store operation latency in seconds",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"op"}),
		PayloadBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payload_bytes",
			Help:      "Payload size in bytes by stage (encoded JSON, stored)",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
		}, []string{"stage"}),
		ArchiveMigrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_migrations_total",
			Help:      "Nodes migrated from the archive into the primary store",
		}, []string{"result"}),
	}

	reg.MustRegister(
		r.OperationsTotal,
		r.OperationDuration,
		r.PayloadBytes,
		r.ArchiveMigrations,
	)

	return r
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry, creating it on first use.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler returns an HTTP handler serving the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Prometheus exposes the underlying registry so engines can register
// their own collectors.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}

// RecordOperation counts one finished operation.
func (r *Registry) RecordOperation(op, result string) {
	r.OperationsTotal.WithLabelValues(op, result).Inc()
}

// ObserveOperationDuration records an operation latency in seconds.
func (r *Registry) ObserveOperationDuration(op string, seconds float64) {
	r.OperationDuration.WithLabelValues(op).Observe(seconds)
}

// ObservePayloadBytes records a payload size for the given stage.
func (r *Registry) ObservePayloadBytes(stage string, n int) {
	r.PayloadBytes.WithLabelValues(stage).Observe(float64(n))
}

// RecordArchiveMigration counts one archive-to-primary migration attempt.
func (r *Registry) RecordArchiveMigration(result string) {
	r.ArchiveMigrations.WithLabelValues(result).Inc()
}
