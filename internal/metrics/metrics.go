// Package metrics exposes Prometheus instrumentation for model fits and bootstrap runs.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "breachtrend_quantile_fits_total",
		Help: "Quantile regression fits by quantile level and outcome",
	}, []string{"tau", "outcome"})

	fitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "breachtrend_quantile_fit_duration_seconds",
		Help:    "Wall time of a single quantile regression fit",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"tau"})

	fitIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "breachtrend_quantile_fit_irls_iterations",
		Help:    "IRLS iterations used per fit",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000},
	})

	bootstrapIterations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "breachtrend_bootstrap_iterations_total",
		Help: "Bootstrap refits by outcome (succeeded or skipped)",
	}, []string{"outcome"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "breachtrend_trend_run_duration_seconds",
		Help:    "Duration of a complete trend estimation run",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "breachtrend_trend_runs_total",
		Help: "Trend estimation runs by outcome",
	}, []string{"outcome"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "breachtrend_http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"method", "route", "status"})
)

// ObserveFit records one fit attempt
func ObserveFit(tau string, d time.Duration, iterations int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	fitsTotal.WithLabelValues(tau, outcome).Inc()
	fitDuration.WithLabelValues(tau).Observe(d.Seconds())
	if err == nil {
		fitIterations.Observe(float64(iterations))
	}
}

// ObserveBootstrapIteration records whether a bootstrap refit was kept or skipped
func ObserveBootstrapIteration(skipped bool) {
	if skipped {
		bootstrapIterations.WithLabelValues("skipped").Inc()
		return
	}
	bootstrapIterations.WithLabelValues("succeeded").Inc()
}

// ObserveRun records a complete estimation run
func ObserveRun(d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	runsTotal.WithLabelValues(outcome).Inc()
	runDuration.Observe(d.Seconds())
}

// ObserveHTTPRequest counts one served request
func ObserveHTTPRequest(method, route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
