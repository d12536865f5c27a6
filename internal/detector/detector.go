// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"context"
	"slices"
)

// Span represents one detected entity occurrence. Start and End are byte
// offsets into the scanned text and always fall on rune boundaries.
type Span struct {
	Start  int
	End    int
	Type   string
	Score  float64
	Source string // Name of the layer that produced the span
}

// Len returns the span length in bytes.
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether s and o share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && s.End > o.Start
}

// Text returns the covered substring of text.
func (s Span) Text(text string) string {
	return text[s.Start:s.End]
}

// Request narrows a detection call.
type Request struct {
	// Types restricts detection to these entity types. Empty means all types.
	Types []string

	// Disabled lists types that are never reported, whatever Types says.
	Disabled []string

	// Threshold is the minimum score a scored layer must reach.
	Threshold float64
}

// Allows reports whether entityType passes the request's type filter.
func (r Request) Allows(entityType string) bool {
	if slices.Contains(r.Disabled, entityType) {
		return false
	}
	return len(r.Types) == 0 || slices.Contains(r.Types, entityType)
}

// Layer is a detection source producing scored spans. Layers apply the
// request's type filter and threshold themselves.
type Layer interface {
	Name() string
	Detect(ctx context.Context, text string, req Request) ([]Span, error)
}

// Reviewer is a supplementary layer that is told which literal values were
// already found and reports only additional spans.
type Reviewer interface {
	Name() string
	Available(ctx context.Context) bool
	Review(ctx context.Context, text string, found []string) ([]Span, error)
}

// SortByStart orders spans by ascending start offset in place.
func SortByStart(spans []Span) {
	slices.SortStableFunc(spans, func(a, b Span) int {
		return a.Start - b.Start
	})
}
