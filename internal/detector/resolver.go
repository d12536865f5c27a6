// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"cmp"
	"slices"
)

// Resolve returns a conflict-free subset of spans. Candidates are ranked by
// score, then by length, both descending; equal candidates keep their input
// order. A candidate is kept only if it overlaps nothing kept before it.
// Losing spans are dropped whole, never trimmed.
func Resolve(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}

	ranked := slices.Clone(spans)
	slices.SortStableFunc(ranked, func(a, b Span) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(b.Len(), a.Len())
	})

	kept := make([]Span, 0, len(ranked))
	for _, candidate := range ranked {
		if overlapsAny(candidate, kept) {
			continue
		}
		kept = append(kept, candidate)
	}
	return kept
}

func overlapsAny(s Span, kept []Span) bool {
	for _, k := range kept {
		if s.Overlaps(k) {
			return true
		}
	}
	return false
}
