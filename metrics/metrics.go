// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dvappraisal"

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by method, route pattern and status code",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	externalCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "external",
			Name:      "calls_total",
			Help:      "Calls to third-party APIs by api and outcome",
		},
		[]string{"api", "outcome"}, // outcome: ok, error, http_<code>
	)

	externalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "external",
			Name:      "call_duration_seconds",
			Help:      "Latency of third-party API calls",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"api"},
	)

	valuationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "valuation",
			Name:      "computed_total",
			Help:      "Valuations computed by the pre-accident value source that won",
		},
		[]string{"kind", "source"}, // kind: quick or full
	)

	dvAmount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "valuation",
			Name:      "dv_amount_dollars",
			Help:      "Distribution of computed diminished value amounts",
			Buckets:   []float64{0, 500, 1000, 2500, 5000, 10000, 20000, 40000},
		},
	)

	reportsRenderedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "rendered_total",
			Help:      "Documents rendered by document type and format",
		},
		[]string{"document", "format"},
	)

	emailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mail",
			Name:      "sent_total",
			Help:      "Report emails by outcome",
		},
		[]string{"outcome"},
	)

	rateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter",
		},
	)
)

// Handler serves the default registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest records one served request. route is the mux pattern, never the raw path.
func ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func ObserveExternalCall(api, outcome string, d time.Duration) {
	externalCallsTotal.WithLabelValues(api, outcome).Inc()
	externalCallDuration.WithLabelValues(api).Observe(d.Seconds())
}

// ObserveValuation records one computed estimate
func ObserveValuation(kind, source string, amount float64) {
	valuationsTotal.WithLabelValues(kind, source).Inc()
	dvAmount.Observe(amount)
}

func IncReportRendered(document, format string) {
	reportsRenderedTotal.WithLabelValues(document, format).Inc()
}

func IncEmail(outcome string) {
	emailsTotal.WithLabelValues(outcome).Inc()
}

func IncRateLimited() {
	rateLimitedTotal.Inc()
}
