package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the client and the reference service
type Metrics struct {
	registry *prometheus.Registry

	// HTTP Metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Datastore Metrics
	DatastoreQueriesTotal  *prometheus.CounterVec
	DatastoreQueryDuration *prometheus.HistogramVec

	// Lookup Metrics (service side)
	LookupsTotal       *prometheus.CounterVec
	LookupsNotFound    prometheus.Counter
	LookupsErrors      *prometheus.CounterVec
	HostnameResolution *prometheus.CounterVec

	// Client Metrics
	ClientRequestsTotal   *prometheus.CounterVec
	ClientRequestDuration *prometheus.HistogramVec
}

// New creates all metrics on a fresh registry, so several instances can live
// side by side in one process.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),

		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 7),
			},
			[]string{"method", "route", "status"},
		),

		DatastoreQueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datastore_queries_total",
				Help: "Total number of datastore queries",
			},
			[]string{"datastore", "status"},
		),

		DatastoreQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "datastore_query_duration_seconds",
				Help:    "Datastore query latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"datastore"},
		),

		LookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geo_lookups_total",
				Help: "Total number of geolocation lookups by format and result",
			},
			[]string{"format", "result"},
		),

		LookupsNotFound: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "geo_lookups_not_found_total",
				Help: "Lookups for addresses missing from the datastore",
			},
		),

		LookupsErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geo_lookups_errors_total",
				Help: "Total number of lookup errors",
			},
			[]string{"error_type"},
		),

		HostnameResolution: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geo_hostname_resolutions_total",
				Help: "Hostname resolutions performed for lookups",
			},
			[]string{"result"},
		),

		ClientRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geolookup_client_requests_total",
				Help: "Requests issued by the lookup client by format and status",
			},
			[]string{"format", "status"},
		),

		ClientRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "geolookup_client_request_duration_seconds",
				Help:    "Lookup client round-trip latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format"},
		),
	}
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
