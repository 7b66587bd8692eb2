// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package obs holds the service's Prometheus metrics and OpenTelemetry
// tracing setup.
package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Package-level Prometheus metrics, auto-registered via promauto so no
// explicit registry wiring is needed at startup.
var (
	// CompileDuration measures wall-clock time spent in the compile
	// pipeline, labeled by language and outcome.
	//
	// Labels:
	//   - language: the requested language (e.g. "tinygo")
	//   - status: "success" or "error"
	CompileDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wasmforge",
			Subsystem: "compile",
			Name:      "duration_seconds",
			Help:      "Duration of compile pipeline invocations in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"language", "status"},
	)

	// CompileTotal counts compile invocations by language and outcome.
	CompileTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wasmforge",
			Subsystem: "compile",
			Name:      "total",
			Help:      "Total number of compile pipeline invocations.",
		},
		[]string{"language", "status"},
	)

	// ExecuteDuration measures wall-clock time spent executing a wasm
	// module through the runtime harness.
	ExecuteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wasmforge",
			Subsystem: "execute",
			Name:      "duration_seconds",
			Help:      "Duration of wasm execution invocations in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"status"},
	)

	// ExecuteTotal counts execution invocations by outcome.
	ExecuteTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wasmforge",
			Subsystem: "execute",
			Name:      "total",
			Help:      "Total number of wasm execution invocations.",
		},
		[]string{"status"},
	)

	// ContractViolationsTotal counts compiled modules that failed the
	// ABI contract check, labeled by language.
	ContractViolationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wasmforge",
			Subsystem: "validator",
			Name:      "contract_violations_total",
			Help:      "Total number of compiled modules that failed the ABI contract check.",
		},
		[]string{"language"},
	)
)

// ObserveCompile records the duration and outcome of one compile call.
func ObserveCompile(language string, success bool, duration time.Duration) {
	status := statusLabel(success)
	CompileDuration.WithLabelValues(language, status).Observe(duration.Seconds())
	CompileTotal.WithLabelValues(language, status).Inc()
}

// ObserveExecute records the duration and outcome of one execute call.
func ObserveExecute(success bool, duration time.Duration) {
	status := statusLabel(success)
	ExecuteDuration.WithLabelValues(status).Observe(duration.Seconds())
	ExecuteTotal.WithLabelValues(status).Inc()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
