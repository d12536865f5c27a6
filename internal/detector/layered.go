// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"context"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"redact-mcp/internal/observability"
)

// ReviewScore is the fixed confidence given to reviewer findings. Reviewer
// findings bypass the threshold but not the validator.
const ReviewScore = 0.7

// Detector runs the scored layers, reconciles their spans, asks the optional
// reviewer for anything missed and validates the result.
type Detector struct {
	layers    []Layer
	reviewer  Reviewer
	validator *Validator
	observer  *observability.StandardObserver
}

// Option configures a Detector.
type Option func(*Detector)

// WithLayer appends a scored layer. Layers run in the order added.
func WithLayer(l Layer) Option {
	return func(d *Detector) {
		if l != nil {
			d.layers = append(d.layers, l)
		}
	}
}

// WithReviewer installs the supplementary reviewer.
func WithReviewer(r Reviewer) Option {
	return func(d *Detector) { d.reviewer = r }
}

// WithValidator replaces the default validator.
func WithValidator(v *Validator) Option {
	return func(d *Detector) { d.validator = v }
}

// WithObserver sets the observer used for layer failures.
func WithObserver(o *observability.StandardObserver) Option {
	return func(d *Detector) { d.observer = o }
}

// New creates a detector. The first layer is normally the rule engine.
func New(opts ...Option) *Detector {
	d := &Detector{
		validator: NewValidator(),
		observer:  observability.NewNopObserver(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// GetComponentName returns the component identifier
func (d *Detector) GetComponentName() string {
	return "detector"
}

// ReviewerAvailable reports whether a reviewer is configured and reachable.
func (d *Detector) ReviewerAvailable(ctx context.Context) bool {
	return d.reviewer != nil && d.reviewer.Available(ctx)
}

// Detect returns the reconciled spans for text ordered by start offset.
// Failing layers contribute nothing; Detect itself never fails.
func (d *Detector) Detect(ctx context.Context, text string, req Request) []Span {
	ctx, span := observability.Tracer().Start(ctx, "detector.Detect")
	defer span.End()

	var raw []Span
	for _, layer := range d.layers {
		spans, err := layer.Detect(ctx, text, req)
		if err != nil {
			d.observer.LayerFailed(layer.Name(), err)
			continue
		}
		for _, s := range spans {
			if s.Score >= req.Threshold && req.Allows(s.Type) && inBounds(text, s) {
				raw = append(raw, s)
			}
		}
	}

	kept := Resolve(raw)
	if extra := d.review(ctx, text, req, kept); len(extra) > 0 {
		kept = Resolve(append(kept, extra...))
	}
	kept = d.validator.Filter(text, kept)
	SortByStart(kept)

	span.SetAttributes(
		attribute.Int("detector.raw_spans", len(raw)),
		attribute.Int("detector.entities", len(kept)),
	)
	return kept
}

func (d *Detector) review(ctx context.Context, text string, req Request, kept []Span) []Span {
	if !d.ReviewerAvailable(ctx) {
		return nil
	}

	found := make([]string, 0, len(kept))
	for _, s := range kept {
		found = append(found, s.Text(text))
	}

	items, err := d.reviewer.Review(ctx, text, found)
	if err != nil {
		d.observer.LayerFailed(d.reviewer.Name(), err)
		return nil
	}

	var extra []Span
	for _, item := range items {
		if !req.Allows(item.Type) || !inBounds(text, item) || overlapsAny(item, kept) {
			continue
		}
		item.Score = ReviewScore
		item.Source = d.reviewer.Name()
		extra = append(extra, item)
	}
	return extra
}

func inBounds(text string, s Span) bool {
	if s.Start < 0 || s.Start >= s.End || s.End > len(text) {
		return false
	}
	if !utf8.RuneStart(text[s.Start]) {
		return false
	}
	return s.End == len(text) || utf8.RuneStart(text[s.End])
}
