// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for redaction activity.
type Metrics struct {
	// OperationsTotal counts engine and adapter operations by outcome.
	OperationsTotal *prometheus.CounterVec
	// EntitiesTotal counts redacted entities by type.
	EntitiesTotal *prometheus.CounterVec
	// LayerFailuresTotal counts optional detection layer failures.
	LayerFailuresTotal *prometheus.CounterVec
	// OperationDuration observes operation latency.
	OperationDuration *prometheus.HistogramVec
	// SessionsActive tracks live sessions after the latest prune.
	SessionsActive prometheus.Gauge
	// BreakerState is 0 closed, 1 open, 2 half-open per optional layer.
	BreakerState *prometheus.GaugeVec
}

// NewMetrics registers all collectors with the default registerer.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry registers all collectors with reg.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "redact_operations_total",
			Help: "Total number of redaction operations by operation and outcome",
		}, []string{"operation", "outcome"}),

		EntitiesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "redact_entities_total",
			Help: "Total number of entities replaced by placeholders or masks",
		}, []string{"entity_type"}),

		LayerFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "redact_layer_failures_total",
			Help: "Total number of optional detection layer failures",
		}, []string{"layer"}),

		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "redact_operation_duration_seconds",
			Help:    "Duration of redaction operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"component", "operation"}),

		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "redact_sessions_active",
			Help: "Number of live sessions after the most recent prune",
		}),

		BreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "redact_layer_breaker_state",
			Help: "Circuit breaker state per optional detection layer (0 closed, 1 open, 2 half-open)",
		}, []string{"layer"}),
	}
}

// RecordOperation increments the operation counter.
func (m *Metrics) RecordOperation(operation, outcome string) {
	m.OperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordEntity increments the entity counter for entityType.
func (m *Metrics) RecordEntity(entityType string) {
	m.EntitiesTotal.WithLabelValues(entityType).Inc()
}

// RecordLayerFailure increments the failure counter for layer.
func (m *Metrics) RecordLayerFailure(layer string) {
	m.LayerFailuresTotal.WithLabelValues(layer).Inc()
}
