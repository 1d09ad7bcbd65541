// Package metrics exposes prometheus collectors for the HTTP surface and the
// blog's write operations.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blogicum_http_request_duration_seconds",
		Help:    "Duration of HTTP requests by route pattern and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// Writes counts successful create/update/delete operations by entity.
	Writes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogicum_writes_total",
		Help: "Successful write operations by entity and action.",
	}, []string{"entity", "action"})

	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogicum_logins_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Observe records one finished request.
func Observe(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
