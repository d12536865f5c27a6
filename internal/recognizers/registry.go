// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package recognizers

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"redact-mcp/internal/detector"
)

// LayerName identifies spans produced by the rule layer.
const LayerName = "rules"

// DefaultCustomScore is used for custom patterns registered without a score.
const DefaultCustomScore = 0.8

// Registry holds the active recognizers and implements detector.Layer.
type Registry struct {
	recognizers []*Recognizer
	context     *detector.ContextExtractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		context: detector.NewContextExtractor(),
	}
}

// NewDefaultRegistry creates a registry loaded with every built-in rule set.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, set := range [][]*Recognizer{
		CoreRecognizers(),
		SecretsRecognizers(),
		FinancialRecognizers(),
		MedicalRecognizers(),
	} {
		for _, rec := range set {
			if err := r.Add(rec); err != nil {
				panic(fmt.Sprintf("built-in recognizer: %v", err))
			}
		}
	}
	return r
}

// WithContextExtractor replaces the context window used for score boosts.
func (r *Registry) WithContextExtractor(ce *detector.ContextExtractor) *Registry {
	r.context = ce
	return r
}

// Add compiles rec and registers it, replacing any recognizer with the same name.
func (r *Registry) Add(rec *Recognizer) error {
	if err := rec.compile(); err != nil {
		return err
	}
	for i, existing := range r.recognizers {
		if existing.Name == rec.Name {
			r.recognizers[i] = rec
			return nil
		}
	}
	r.recognizers = append(r.recognizers, rec)
	return nil
}

// AddCustomPattern registers a single-pattern recognizer whose entity type
// is name.
func (r *Registry) AddCustomPattern(name, pattern string, score float64) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("custom pattern name is empty")
	}
	return r.Add(&Recognizer{
		Name:       name + "Recognizer",
		EntityType: name,
		Patterns: []Pattern{
			{Name: strings.ToLower(name), Regex: pattern, Score: score},
		},
	})
}

// SupportedEntities returns every entity type the registry can emit, sorted.
func (r *Registry) SupportedEntities() []string {
	var types []string
	for _, rec := range r.recognizers {
		if !slices.Contains(types, rec.EntityType) {
			types = append(types, rec.EntityType)
		}
	}
	slices.Sort(types)
	return types
}

// Name implements detector.Layer.
func (r *Registry) Name() string {
	return LayerName
}

// Detect implements detector.Layer. It never fails.
func (r *Registry) Detect(_ context.Context, text string, req detector.Request) ([]detector.Span, error) {
	var spans []detector.Span
	for _, rec := range r.recognizers {
		if !req.Allows(rec.EntityType) {
			continue
		}
		for _, s := range rec.analyze(text, r.context) {
			if s.Score >= req.Threshold {
				spans = append(spans, s)
			}
		}
	}
	return spans, nil
}
