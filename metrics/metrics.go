package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energymeter_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "energymeter_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Upstream price provider metrics
	ProviderFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energymeter_provider_fetch_total",
			Help: "Total number of spot price fetches per provider",
		},
		[]string{"provider", "status"},
	)

	ProviderFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "energymeter_provider_fetch_duration_seconds",
			Help:    "Spot price fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// Price cache metrics
	StaleServedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "energymeter_price_stale_served_total",
			Help: "Total number of times a stale price snapshot was served after a failed refresh",
		},
	)

	SnapshotAge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "energymeter_price_snapshot_updated_timestamp_seconds",
			Help: "Unix time of the last successful price refresh",
		},
	)

	SnapshotSlots = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "energymeter_price_snapshot_slots",
			Help: "Number of price slots in the current snapshot",
		},
	)

	// Derived price metrics
	CurrentTotalPrice = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "energymeter_current_total_price_cents_per_kwh",
			Help: "Delivered price of the current slot in cents/kWh",
		},
	)
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordProviderFetch records one attempt against an upstream provider
func RecordProviderFetch(provider string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	ProviderFetchTotal.WithLabelValues(provider, status).Inc()
	ProviderFetchDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func RecordSnapshot(updated time.Time, slots int) {
	SnapshotAge.Set(float64(updated.Unix()))
	SnapshotSlots.Set(float64(slots))
}

func RecordStaleServed() {
	StaleServedTotal.Inc()
}

func RecordCurrentTotal(price float64) {
	CurrentTotalPrice.Set(price)
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
