// Package metrics defines the Prometheus collectors shared by the client and poller.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequests counts completed HTTP attempts by status class (2xx, 4xx, ...) or "error"
	// when no response was received.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goconnect_http_requests_total",
			Help: "Number of HTTP attempts sent to the GoConnect backend.",
		},
		[]string{"status"},
	)

	// ThrottledResponses counts 429/503 responses that triggered a backoff.
	ThrottledResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goconnect_http_throttled_total",
			Help: "Number of throttling responses received from the GoConnect backend.",
		},
		[]string{"code"},
	)

	// Logins counts login attempts by method (device_token, password) and result.
	Logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goconnect_logins_total",
			Help: "Number of login attempts.",
		},
		[]string{"method", "result"},
	)

	// VehicleFallbacks counts vehicles reported with list data only because enrichment failed.
	VehicleFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "goconnect_vehicle_fallbacks_total",
			Help: "Number of vehicles that fell back to list data during aggregation.",
		},
	)

	// PollDuration records how long each refresh took, labelled by outcome.
	PollDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "goconnect_poll_duration_seconds",
			Help:    "Duration of vehicle snapshot refreshes.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)
)

// Registry holds every collector in this package.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(HTTPRequests)
	Registry.MustRegister(ThrottledResponses)
	Registry.MustRegister(Logins)
	Registry.MustRegister(VehicleFallbacks)
	Registry.MustRegister(PollDuration)
}

// StatusClass returns the label used by HTTPRequests for an HTTP status code.
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	}
	return "1xx"
}
