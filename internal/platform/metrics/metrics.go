package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the recorder process.
// Per-recording series are labelled by stream name.
type Metrics struct {
	registry         *prometheus.Registry
	requestsTotal    *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	pollsTotal       *prometheus.CounterVec
	segmentsTotal    *prometheus.CounterVec
	fetchErrorsTotal *prometheus.CounterVec
	bytesTotal       *prometheus.CounterVec
	activeRecordings prometheus.Gauge
}

// Segment outcomes used as the "result" label of iptv_segments_total.
const (
	ResultSaved     = "saved"
	ResultDuplicate = "duplicate"
	ResultEmpty     = "empty"
	ResultFailed    = "failed"
)

// New creates and registers Prometheus metrics for the recorder.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_http_requests_total",
		Help: "Total number of status API requests received per route",
	}, []string{"route"})
	errorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_http_errors_total",
		Help: "Total number of status API responses with error status (4xx or 5xx) per route",
	}, []string{"route"})
	pollsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_playlist_polls_total",
		Help: "Total number of playlist polls per stream",
	}, []string{"stream"})
	segmentsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_segments_total",
		Help: "Segments processed per stream by outcome (saved, duplicate, empty, failed)",
	}, []string{"stream", "result"})
	fetchErrorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_fetch_errors_total",
		Help: "Individual failed fetch attempts per stream, retries included",
	}, []string{"stream"})
	bytesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_bytes_written_total",
		Help: "Bytes of media written to disk per stream",
	}, []string{"stream"})
	activeRecordings := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "iptv_active_recordings",
		Help: "Number of recordings that have not stopped",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		pollsTotal,
		segmentsTotal,
		fetchErrorsTotal,
		bytesTotal,
		activeRecordings,
	)

	return &Metrics{
		registry:         registry,
		requestsTotal:    requestsTotal,
		errorsTotal:      errorsTotal,
		pollsTotal:       pollsTotal,
		segmentsTotal:    segmentsTotal,
		fetchErrorsTotal: fetchErrorsTotal,
		bytesTotal:       bytesTotal,
		activeRecordings: activeRecordings,
	}
}

// IncRequests increments the request counter for route.
func (m *Metrics) IncRequests(route string) {
	m.requestsTotal.WithLabelValues(route).Inc()
}

// IncErrors increments the errors counter for route.
func (m *Metrics) IncErrors(route string) {
	m.errorsTotal.WithLabelValues(route).Inc()
}

// IncPolls counts one playlist poll for stream.
func (m *Metrics) IncPolls(stream string) {
	m.pollsTotal.WithLabelValues(stream).Inc()
}

// IncSegments counts one segment outcome for stream. result is one of the Result* constants.
func (m *Metrics) IncSegments(stream, result string) {
	m.segmentsTotal.WithLabelValues(stream, result).Inc()
}

// IncFetchErrors counts one failed fetch attempt for stream.
func (m *Metrics) IncFetchErrors(stream string) {
	m.fetchErrorsTotal.WithLabelValues(stream).Inc()
}

// AddBytes adds n written bytes for stream.
func (m *Metrics) AddBytes(stream string, n int) {
	m.bytesTotal.WithLabelValues(stream).Add(float64(n))
}

// SetActiveRecordings sets the active recordings gauge.
func (m *Metrics) SetActiveRecordings(n int) {
	m.activeRecordings.Set(float64(n))
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. active recordings).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
