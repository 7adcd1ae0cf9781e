// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	AuthorizeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domain_authorize_total",
			Help: "Authorization chain outcomes by terminal state.",
		}, []string{"outcome"})

	AuthorizeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "domain_authorize_duration_seconds",
			Help:    "Time spent running the authorization chain.",
			Buckets: prometheus.DefBuckets,
		})

	VerifyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domain_verify_total",
			Help: "DNS verification attempts by result.",
		}, []string{"result"})

	EnrichErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "event_enrich_errors_total",
			Help: "Event enrichment fetches that degraded to null.",
		})

	JobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_runs_total",
			Help: "Background job executions by kind and result.",
		}, []string{"kind", "result"})

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method and status class.",
		}, []string{"method", "code"})
)

func init() {
	prometheus.MustRegister(
		AuthorizeTotal,
		AuthorizeDuration,
		VerifyTotal,
		EnrichErrorsTotal,
		JobRunsTotal,
		HTTPRequestsTotal,
	)
}
