package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jmylchreest/plink/pkg/cleaner"
)

var (
	// URLsCleaned counts cleaned URLs by outcome.
	URLsCleaned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plink_urls_cleaned_total",
			Help: "URLs processed by outcome (changed, unchanged, redirect, cancel, error)",
		},
		[]string{"outcome"},
	)

	// RulesFired counts rule identifiers reported in results.
	RulesFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plink_rules_fired_total",
			Help: "Rule identifiers reported by cleaning results",
		},
		[]string{"rule"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plink_http_requests_total",
			Help: "HTTP requests by endpoint and status code",
		},
		[]string{"endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plink_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		},
		[]string{"endpoint"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "plink_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	ProvidersLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "plink_providers_loaded",
			Help: "Providers compiled and active",
		},
	)

	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "plink_build_info",
			Help: "Build information, value is always 1",
		},
		[]string{"version", "commit"},
	)
)

func outcome(res *cleaner.Result, err error) string {
	switch {
	case err != nil:
		return "error"
	case res.Redirect:
		return "redirect"
	case res.Cancel:
		return "cancel"
	case res.Changed:
		return "changed"
	default:
		return "unchanged"
	}
}

func recordResult(res *cleaner.Result, err error) {
	URLsCleaned.WithLabelValues(outcome(res, err)).Inc()
	if err != nil {
		return
	}
	for _, rule := range res.AppliedRules {
		RulesFired.WithLabelValues(rule).Inc()
	}
}
