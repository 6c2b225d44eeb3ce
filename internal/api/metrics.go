// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package api

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the REST surface.
var (
	// requests counts handled requests by endpoint and response status.
	requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forgesim_api_requests_total",
		Help: "Total number of API requests",
	}, []string{"endpoint", "method", "status"})

	// requestDuration tracks handler latency per endpoint.
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forgesim_api_request_duration_seconds",
		Help:    "Histogram of API request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)

// recordRequest records metrics for a completed request.
func recordRequest(endpoint, method string, status int, duration time.Duration) {
	requests.WithLabelValues(endpoint, method, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
