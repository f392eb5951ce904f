package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Launch metrics
	Launches      *prometheus.CounterVec
	PlayResolves  *prometheus.CounterVec
	TokensActive  prometheus.Gauge
	TokensPurged  prometheus.Counter
	LaunchLatency prometheus.Histogram

	// Catalog metrics
	CatalogReloads *prometheus.CounterVec
	CatalogEntries prometheus.Gauge

	// Transport negotiation metrics
	Negotiations   *prometheus.CounterVec
	EndpointProbes *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time
}

// NewMetrics creates a metrics collector backed by its own registry, so
// several servers (or tests) can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portal_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portal_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "route"},
		),

		Launches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_launches_total",
				Help: "Launch requests by resolved mode and result code",
			},
			[]string{"mode", "result"},
		),
		PlayResolves: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_play_resolves_total",
				Help: "Play token resolutions by result",
			},
			[]string{"result"},
		),
		TokensActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "portal_launch_tokens_active",
				Help: "Launch tokens currently held in memory",
			},
		),
		TokensPurged: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "portal_launch_tokens_purged_total",
				Help: "Expired launch tokens removed by the janitor",
			},
		),
		LaunchLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "portal_launch_duration_seconds",
				Help:    "Time to build a launch, including catalog load",
				Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
			},
		),

		CatalogReloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_catalog_reloads_total",
				Help: "Catalog snapshot rebuilds by result",
			},
			[]string{"result"},
		),
		CatalogEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "portal_catalog_entries",
				Help: "Entries in the current catalog snapshot",
			},
		),

		Negotiations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_negotiations_total",
				Help: "Transport negotiations by terminal state",
			},
			[]string{"state"},
		),
		EndpointProbes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_endpoint_probes_total",
				Help: "Tunnel endpoint probes by result",
			},
			[]string{"result"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "portal_uptime_seconds",
			Help: "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, route).Observe(float64(respSize))
}

// RecordLaunch records a launch outcome. result is "ok" or an error code.
func (m *Metrics) RecordLaunch(mode, result string, duration time.Duration) {
	if mode == "" {
		mode = "none"
	}
	m.Launches.WithLabelValues(mode, result).Inc()
	m.LaunchLatency.Observe(duration.Seconds())
}

// RecordResolve records a play token lookup
func (m *Metrics) RecordResolve(found bool) {
	result := "expired"
	if found {
		result = "redirect"
	}
	m.PlayResolves.WithLabelValues(result).Inc()
}

// SetTokensActive sets the live launch token count
func (m *Metrics) SetTokensActive(count int) {
	m.TokensActive.Set(float64(count))
}

// AddTokensPurged counts tokens removed by a purge pass
func (m *Metrics) AddTokensPurged(count int) {
	m.TokensPurged.Add(float64(count))
}

// RecordCatalogReload records a snapshot rebuild
func (m *Metrics) RecordCatalogReload(result string, entries int) {
	m.CatalogReloads.WithLabelValues(result).Inc()
	m.CatalogEntries.Set(float64(entries))
}

// RecordNegotiation records the terminal state of a negotiation
func (m *Metrics) RecordNegotiation(state string) {
	m.Negotiations.WithLabelValues(state).Inc()
}

// RecordProbe records a single endpoint probe
func (m *Metrics) RecordProbe(ok bool) {
	result := "error"
	if ok {
		result = "ok"
	}
	m.EndpointProbes.WithLabelValues(result).Inc()
}
