package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m1k1o/go-hlsbundle/pkg/hlsbundle"
)

// Metrics holds Prometheus collectors of pipeline runs and http requests.
// It implements hlsbundle.Observer.
type Metrics struct {
	registry      *prometheus.Registry
	runsTotal     *prometheus.CounterVec
	runDuration   prometheus.Histogram
	runsActive    prometheus.Gauge
	tracksTotal   *prometheus.CounterVec
	requestsTotal prometheus.Counter
	errorsTotal   prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsbundle_runs_total",
		Help: "Total number of finished pipeline runs by result",
	}, []string{"result"})
	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hlsbundle_run_duration_seconds",
		Help:    "Duration of pipeline runs",
		Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~2h
	})
	runsActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hlsbundle_runs_active",
		Help: "Number of pipeline runs in progress",
	})
	tracksTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsbundle_tracks_total",
		Help: "Total number of processed audio and subtitle tracks",
	}, []string{"kind", "stage", "ok"})
	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hlsbundle_http_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hlsbundle_http_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})

	registry.MustRegister(
		runsTotal,
		runDuration,
		runsActive,
		tracksTotal,
		requestsTotal,
		errorsTotal,
	)

	return &Metrics{
		registry:      registry,
		runsTotal:     runsTotal,
		runDuration:   runDuration,
		runsActive:    runsActive,
		tracksTotal:   tracksTotal,
		requestsTotal: requestsTotal,
		errorsTotal:   errorsTotal,
	}
}

func (m *Metrics) RunStarted() {
	m.runsActive.Inc()
}

func (m *Metrics) RunFinished(result string, elapsed time.Duration) {
	m.runsTotal.WithLabelValues(result).Inc()
	m.runDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) RunDone() {
	m.runsActive.Dec()
}

func (m *Metrics) TrackFinished(kind hlsbundle.TrackKind, stage string, ok bool) {
	okLabel := "false"
	if ok {
		okLabel = "true"
	}
	m.tracksTotal.WithLabelValues(string(kind), stage, okLabel).Inc()
}

func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
