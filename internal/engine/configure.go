// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"

	"redact-mcp/internal/recognizers"
)

// CustomPattern is a caller-defined single-regex rule.
type CustomPattern struct {
	Name    string   `json:"name"`
	Pattern string   `json:"pattern"`
	Score   *float64 `json:"score,omitempty"`
}

// ConfigureRequest changes engine settings. Nil fields are left unchanged.
type ConfigureRequest struct {
	CustomPatterns   []CustomPattern `json:"custom_patterns,omitempty"`
	DisabledEntities []string        `json:"disabled_entities,omitempty"`
	ScoreThreshold   *float64        `json:"score_threshold,omitempty"`
}

// ConfigureResult reports the settings after Configure.
type ConfigureResult struct {
	Status         string   `json:"status"`
	ActiveEntities []string `json:"active_entities"`
	ScoreThreshold float64  `json:"score_threshold"`
	LLMAvailable   bool     `json:"llm_available"`
}

// Configure validates req in full and then applies it. On error nothing is
// changed.
func (e *Engine) Configure(ctx context.Context, req ConfigureRequest) (ConfigureResult, error) {
	done := e.observer.StartTiming("engine", "configure", "")

	if err := req.validate(); err != nil {
		done(false, map[string]interface{}{"error": err.Error()})
		return ConfigureResult{}, err
	}

	for _, p := range req.CustomPatterns {
		score := recognizers.DefaultCustomScore
		if p.Score != nil {
			score = *p.Score
		}
		if err := e.registry.AddCustomPattern(p.Name, p.Pattern, score); err != nil {
			done(false, map[string]interface{}{"error": err.Error()})
			return ConfigureResult{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		e.observer.Logger().Info("custom pattern registered",
			zap.String("entity_type", strings.TrimSpace(p.Name)),
			zap.Float64("score", score))
	}
	if req.DisabledEntities != nil {
		e.disabled = slices.Clone(req.DisabledEntities)
	}
	if req.ScoreThreshold != nil {
		e.threshold = *req.ScoreThreshold
	}

	done(true, nil)
	return ConfigureResult{
		Status:         "ok",
		ActiveEntities: e.ActiveEntities(),
		ScoreThreshold: e.threshold,
		LLMAvailable:   e.LLMAvailable(ctx),
	}, nil
}

func (r ConfigureRequest) validate() error {
	if r.ScoreThreshold != nil {
		if err := validateThreshold(*r.ScoreThreshold); err != nil {
			return err
		}
	}
	for i, p := range r.CustomPatterns {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: custom pattern %d has no name", ErrInvalidConfig, i)
		}
		if p.Pattern == "" {
			return fmt.Errorf("%w: custom pattern %q has no pattern", ErrInvalidConfig, p.Name)
		}
		if _, err := regexp.Compile(p.Pattern); err != nil {
			return fmt.Errorf("%w: custom pattern %q: %v", ErrInvalidConfig, p.Name, err)
		}
		if p.Score != nil && (*p.Score < 0 || *p.Score > 1) {
			return fmt.Errorf("%w: custom pattern %q score must be between 0.0 and 1.0, got %v",
				ErrInvalidConfig, p.Name, *p.Score)
		}
	}
	return nil
}

func validateThreshold(t float64) error {
	if math.IsNaN(t) || t < 0 || t > 1 {
		return fmt.Errorf("%w: score_threshold must be between 0.0 and 1.0, got %v", ErrInvalidConfig, t)
	}
	return nil
}
