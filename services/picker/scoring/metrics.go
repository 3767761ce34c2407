// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	scoringLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tablescout",
		Subsystem: "scoring",
		Name:      "latency_seconds",
		Help:      "Full ranking pipeline latency per query",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	candidateCount = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tablescout",
		Subsystem: "scoring",
		Name:      "candidate_count",
		Help:      "Number of candidate tables after filtering and rescue",
		Buckets:   []float64{0, 1, 2, 3, 5, 8},
	})

	confidenceLevelTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tablescout",
		Subsystem: "scoring",
		Name:      "confidence_level_total",
		Help:      "Queries by resulting confidence level",
	}, []string{"level"})

	rescuedTablesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tablescout",
		Subsystem: "scoring",
		Name:      "rescued_tables_total",
		Help:      "Tables rescued into the candidate set as FK bridges",
	})

	domainMismatchTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tablescout",
		Subsystem: "scoring",
		Name:      "domain_mismatch_total",
		Help:      "Queries flagged as off-domain for the catalog",
	})

	genericQueryTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tablescout",
		Subsystem: "scoring",
		Name:      "generic_query_total",
		Help:      "Queries that triggered the centrality fallback",
	})

	embeddingDegradedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tablescout",
		Subsystem: "scoring",
		Name:      "embedding_degraded_total",
		Help:      "Times the engine fell back to lexical-only scoring",
	})
)
