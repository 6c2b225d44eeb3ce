// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package access

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/oops"
)

// Metrics for permission resolution and gate decisions.
var (
	// resolveDuration tracks the latency of Resolve() calls.
	resolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "forgesim_access_resolve_duration_seconds",
		Help:    "Histogram of permission resolution latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// resolutions counts resolver calls by outcome.
	resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forgesim_access_resolutions_total",
		Help: "Total number of permission resolutions",
	}, []string{"outcome"})

	// decisions counts gate predicate outcomes.
	decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forgesim_access_decisions_total",
		Help: "Total number of gate predicate decisions",
	}, []string{"predicate", "decision"})
)

// recordResolve records metrics for a completed resolution.
func recordResolve(duration time.Duration, err error) {
	resolveDuration.Observe(duration.Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if oopsErr, ok := oops.AsOops(err); ok {
			switch oopsErr.Code() {
			case "ACCESS_HIERARCHY_CYCLE":
				outcome = "cycle"
			case "ACCESS_GROUP_NOT_FOUND":
				outcome = "not_found"
			}
		}
	}
	resolutions.WithLabelValues(outcome).Inc()
}

// recordDecision records a gate predicate outcome.
func recordDecision(predicate string, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	decisions.WithLabelValues(predicate, decision).Inc()
}
