// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package placeholder replaces reconciled spans with numbered tokens of the
// form [TYPE_N] and restores them again.
package placeholder

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"redact-mcp/internal/detector"
)

// Entity records one replacement. Start and End are offsets into the text
// before redaction.
type Entity struct {
	Type        string `json:"type"`
	Start       int    `json:"original_start"`
	End         int    `json:"original_end"`
	Placeholder string `json:"placeholder"`
}

// Result is the outcome of Apply.
type Result struct {
	Text     string
	Entities []Entity          // ascending by Start
	Mapping  map[string]string // placeholder -> original value
}

// Format builds the placeholder for the n-th entity of a type.
func Format(entityType string, n int) string {
	return fmt.Sprintf("[%s_%d]", entityType, n)
}

// Apply replaces spans in text with placeholders. spans must not overlap.
// Counters are assigned left to right per type, skipping placeholders the
// text already contains; the text is then rewritten right to left so earlier
// offsets stay valid.
func Apply(text string, spans []detector.Span) Result {
	if len(spans) == 0 {
		return Result{Text: text, Mapping: map[string]string{}}
	}

	ordered := slices.Clone(spans)
	detector.SortByStart(ordered)

	counters := make(map[string]int)
	entities := make([]Entity, len(ordered))
	mapping := make(map[string]string, len(ordered))
	for i, s := range ordered {
		ph := nextFree(text, s.Type, counters)
		entities[i] = Entity{Type: s.Type, Start: s.Start, End: s.End, Placeholder: ph}
		mapping[ph] = text[s.Start:s.End]
	}

	return Result{
		Text:     Substitute(text, entities),
		Entities: entities,
		Mapping:  mapping,
	}
}

// nextFree advances the counter for entityType past any placeholder that
// already occurs in text, so Restore only rewrites tokens Apply wrote.
func nextFree(text, entityType string, counters map[string]int) string {
	for {
		counters[entityType]++
		ph := Format(entityType, counters[entityType])
		if !strings.Contains(text, ph) {
			return ph
		}
	}
}

// Substitute writes each entity's placeholder over its original range.
// entities must be ascending and non-overlapping.
func Substitute(text string, entities []Entity) string {
	out := text
	for i := len(entities) - 1; i >= 0; i-- {
		e := entities[i]
		out = out[:e.Start] + e.Placeholder + out[e.End:]
	}
	return out
}

// Restore replaces every placeholder of mapping found in text with its
// original value. Each placeholder present counts once however often it
// occurs.
func Restore(text string, mapping map[string]string) (string, int) {
	if len(mapping) == 0 || text == "" {
		return text, 0
	}

	var pairs []string
	count := 0
	for _, ph := range slices.Sorted(maps.Keys(mapping)) {
		if strings.Contains(text, ph) {
			pairs = append(pairs, ph, mapping[ph])
			count++
		}
	}
	if count == 0 {
		return text, 0
	}
	return strings.NewReplacer(pairs...).Replace(text), count
}
