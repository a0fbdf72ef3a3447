// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Budget Evaluation
// =============================================================================

var (
	// evaluationsTotal counts evaluation requests by outcome.
	// Labels: domain (scalar, complex, unknown), status (success, invalid,
	// domain_error, error)
	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gumtree",
		Subsystem: "evaluator",
		Name:      "evaluations_total",
		Help:      "Total budget evaluations by domain and outcome",
	}, []string{"domain", "status"})

	// evaluationDuration measures wall time per evaluation request.
	// Labels: domain
	evaluationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gumtree",
		Subsystem: "evaluator",
		Name:      "evaluation_duration_seconds",
		Help:      "Budget evaluation latency in seconds",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"domain"})
)

// =============================================================================
// Metrics Recording Functions
// =============================================================================

// recordEvaluation records one evaluation attempt.
//
// Inputs:
//
//	domain - "scalar", "complex", or "unknown" when the budget never parsed.
//	status - "success", "invalid", "domain_error", or "error".
//	durationSec - Wall time of the attempt in seconds.
func recordEvaluation(domain, status string, durationSec float64) {
	evaluationsTotal.WithLabelValues(domain, status).Inc()
	evaluationDuration.WithLabelValues(domain).Observe(durationSec)
}
