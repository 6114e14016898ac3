// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package telemetry exposes prometheus metrics for compile runs.
//
// Metrics live in a caller-owned registry so embedding tools can
// choose how (or whether) to export them; the compiler only records.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the compiler's instruments.
type Metrics struct {
	Registry *prometheus.Registry

	// CompileRuns counts compile invocations by outcome
	// ("ok", "errors", "fault").
	CompileRuns *prometheus.CounterVec

	// ClassesEmitted counts emitted class files.
	ClassesEmitted prometheus.Counter

	// Diagnostics counts reported diagnostics by kind.
	Diagnostics *prometheus.CounterVec

	// PhaseDuration observes per-stage wall time in seconds.
	PhaseDuration *prometheus.HistogramVec
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		CompileRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "headwind_compile_runs_total",
			Help: "Compile invocations by outcome.",
		}, []string{"outcome"}),
		ClassesEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "headwind_classes_emitted_total",
			Help: "Class files emitted to output archives.",
		}),
		Diagnostics: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "headwind_diagnostics_total",
			Help: "Diagnostics reported, by kind.",
		}, []string{"kind"}),
		PhaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "headwind_phase_duration_seconds",
			Help:    "Wall time of compiler stages.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"phase"}),
	}
}
