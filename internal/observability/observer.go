// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"time"

	"go.uber.org/zap"
)

// StandardObserver implements observability for all components
type StandardObserver struct {
	logger  *zap.Logger
	metrics *Metrics
}

// NewStandardObserver creates observability component. Either argument may
// be nil: a nil logger discards output and nil metrics skips collection.
func NewStandardObserver(logger *zap.Logger, metrics *Metrics) *StandardObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StandardObserver{
		logger:  logger,
		metrics: metrics,
	}
}

// NewNopObserver returns an observer that records nothing.
func NewNopObserver() *StandardObserver {
	return NewStandardObserver(nil, nil)
}

// Logger returns the underlying zap logger.
func (o *StandardObserver) Logger() *zap.Logger {
	if o == nil {
		return zap.NewNop()
	}
	return o.logger
}

// Named returns an observer whose logger carries the component name.
func (o *StandardObserver) Named(component string) *StandardObserver {
	if o == nil {
		return NewNopObserver().Named(component)
	}
	return &StandardObserver{
		logger:  o.logger.Named(component),
		metrics: o.metrics,
	}
}

// StartTiming returns a function to complete timing
func (o *StandardObserver) StartTiming(component, operation, filePath string) func(success bool, metadata map[string]interface{}) {
	start := time.Now()

	return func(success bool, metadata map[string]interface{}) {
		duration := time.Since(start)

		data := StandardObservabilityData{
			Component:  component,
			Operation:  operation,
			FilePath:   filePath,
			DurationMs: duration.Milliseconds(),
			Success:    success,
			Metadata:   metadata,
		}
		if errMsg, ok := metadata["error"].(string); ok {
			data.Error = errMsg
		}

		o.LogOperation(data)

		if o != nil && o.metrics != nil {
			o.metrics.OperationDuration.WithLabelValues(component, operation).Observe(duration.Seconds())
			outcome := "success"
			if !success {
				outcome = "failure"
			}
			o.metrics.RecordOperation(operation, outcome)
		}
	}
}

// LogOperation logs operation data
func (o *StandardObserver) LogOperation(data StandardObservabilityData) {
	if o == nil {
		return
	}

	fields := []zap.Field{
		zap.String("component", data.Component),
		zap.String("operation", data.Operation),
		zap.Int64("duration_ms", data.DurationMs),
		zap.Bool("success", data.Success),
	}
	if data.FilePath != "" {
		fields = append(fields, zap.String("file_path", data.FilePath))
	}
	if data.MatchCount > 0 {
		fields = append(fields, zap.Int("match_count", data.MatchCount))
	}
	if len(data.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", data.Metadata))
	}

	if data.Success {
		o.logger.Debug("operation completed", fields...)
		return
	}
	if data.Error != "" {
		fields = append(fields, zap.String("error", data.Error))
	}
	o.logger.Warn("operation failed", fields...)
}

// LayerFailed records a swallowed failure of an optional detection layer.
func (o *StandardObserver) LayerFailed(layer string, err error) {
	if o == nil {
		return
	}
	o.logger.Warn("detection layer failed", zap.String("layer", layer), zap.Error(err))
	if o.metrics != nil {
		o.metrics.RecordLayerFailure(layer)
	}
}

// EntitiesRedacted counts one replaced entity per element of types.
func (o *StandardObserver) EntitiesRedacted(types []string) {
	if o == nil || o.metrics == nil {
		return
	}
	for _, t := range types {
		o.metrics.RecordEntity(t)
	}
}

// BreakerChanged logs a layer breaker transition and publishes the new
// state. state is the numeric value of the breaker state.
func (o *StandardObserver) BreakerChanged(layer, from, to string, state int) {
	if o == nil {
		return
	}
	o.logger.Info("circuit breaker state changed",
		zap.String("layer", layer),
		zap.String("from", from),
		zap.String("to", to))
	if o.metrics != nil {
		o.metrics.BreakerState.WithLabelValues(layer).Set(float64(state))
	}
}

// SessionsActive publishes the live session count.
func (o *StandardObserver) SessionsActive(n int) {
	if o == nil || o.metrics == nil {
		return
	}
	o.metrics.SessionsActive.Set(float64(n))
}

// StandardObservabilityData for all components
type StandardObservabilityData struct {
	Component  string                 `json:"component"`
	Operation  string                 `json:"operation"`
	FilePath   string                 `json:"file_path,omitempty"`
	DurationMs int64                  `json:"duration_ms,omitempty"`
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	MatchCount int                    `json:"match_count,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}
