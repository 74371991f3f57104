package metrics

import (
	"net/http"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/config"
)

const (
	prometheusNamespace = "nso_stress"
)

type PrometheusRegistry = *prometheus.Registry

// Registry extends the prometheus registry with the collectors a run
// records into and the HTTP handler that exposes them.
type Registry struct {
	PrometheusRegistry
	HTTPHandler http.Handler

	Requests  *prometheus.CounterVec
	Latency   *prometheus.HistogramVec
	InFlight  prometheus.Gauge
	Panics    prometheus.Counter
	BatchSize prometheus.Gauge
}

func MakeRegistry() *Registry {
	registry := prometheus.NewRegistry()
	buildInfoGauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: prometheusNamespace, Subsystem: "build", Name: "info"},
		[]string{"version", "goversion", "commit", "build_timestamp"},
	)
	buildInfoGauge.With(prometheus.Labels{
		"version":         config.Version,
		"commit":          config.CommitHash,
		"build_timestamp": config.BuildTimestamp,
		"goversion":       runtime.Version(),
	}).Inc()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: prometheusNamespace, Subsystem: "requests", Name: "total"},
		[]string{"operation", "class"},
	)
	latency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: prometheusNamespace,
			Subsystem: "requests",
			Name:      "duration_seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		},
		[]string{"operation"},
	)
	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: prometheusNamespace, Subsystem: "requests", Name: "in_flight"},
	)
	panics := prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: prometheusNamespace, Subsystem: "engine", Name: "panics_total"},
	)
	batchSize := prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: prometheusNamespace, Subsystem: "engine", Name: "window_size"},
	)

	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	registry.MustRegister(buildInfoGauge, requests, latency, inFlight, panics, batchSize)

	return &Registry{
		PrometheusRegistry: registry,
		HTTPHandler:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Requests:           requests,
		Latency:            latency,
		InFlight:           inFlight,
		Panics:             panics,
		BatchSize:          batchSize,
	}
}

func (r *Registry) Namespace() string {
	return prometheusNamespace
}
