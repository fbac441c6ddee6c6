// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rg

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects graph engine counters. A nil *Metrics records nothing.
type Metrics struct {
	passesDeclared  prometheus.Counter
	framesExecuted  *prometheus.CounterVec
	executeDuration prometheus.Histogram
	pipelineLookups *prometheus.CounterVec
	temporalImports prometheus.Counter
	transientsLive  prometheus.Gauge
	transientsTotal *prometheus.CounterVec
}

// NewMetrics creates the graph metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		passesDeclared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "framegraph",
			Subsystem: "rg",
			Name:      "passes_declared_total",
			Help:      "Total passes declared across all graphs.",
		}),
		framesExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "framegraph",
			Subsystem: "rg",
			Name:      "frames_executed_total",
			Help:      "Total graph executions by result.",
		}, []string{"result"}),
		executeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "framegraph",
			Subsystem: "rg",
			Name:      "execute_duration_seconds",
			Help:      "Duration of graph execution in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		pipelineLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "framegraph",
			Subsystem: "rg",
			Name:      "pipeline_cache_lookups_total",
			Help:      "Pipeline cache lookups during execution by outcome.",
		}, []string{"outcome"}),
		temporalImports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "framegraph",
			Subsystem: "rg",
			Name:      "temporal_imports_total",
			Help:      "Total temporal resource imports.",
		}),
		transientsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "framegraph",
			Subsystem: "rg",
			Name:      "exported_transients",
			Help:      "Transient resources kept alive by exports.",
		}),
		transientsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "framegraph",
			Subsystem: "rg",
			Name:      "transients_created_total",
			Help:      "Total transient resources created by kind.",
		}, []string{"kind"}),
	}
	for _, c := range []prometheus.Collector{
		m.passesDeclared, m.framesExecuted, m.executeDuration, m.pipelineLookups,
		m.temporalImports, m.transientsLive, m.transientsTotal,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) passDeclared() {
	if m != nil {
		m.passesDeclared.Inc()
	}
}

func (m *Metrics) frameExecuted(start time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.framesExecuted.WithLabelValues(result).Inc()
	m.executeDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) pipelineLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.pipelineLookups.WithLabelValues("hit").Inc()
	} else {
		m.pipelineLookups.WithLabelValues("miss").Inc()
	}
}

func (m *Metrics) temporalImported() {
	if m != nil {
		m.temporalImports.Inc()
	}
}

func (m *Metrics) transientCreated(kind ResourceKind) {
	if m != nil {
		m.transientsTotal.WithLabelValues(kind.String()).Inc()
	}
}

func (m *Metrics) exportedTransients(delta int) {
	if m != nil {
		m.transientsLive.Add(float64(delta))
	}
}
