// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"unicode/utf8"

	"redact-mcp/internal/placeholder"
)

// runeIndex converts ascending byte offsets of text to code point offsets.
// Results leave the engine in code points; adapters keep byte offsets.
type runeIndex struct {
	text   string
	byteAt int
	runeAt int
}

// at returns the code point offset of byte offset b. Calls with decreasing
// b restart the count from the beginning of text.
func (r *runeIndex) at(b int) int {
	if b < r.byteAt {
		r.byteAt, r.runeAt = 0, 0
	}
	r.runeAt += utf8.RuneCountInString(r.text[r.byteAt:b])
	r.byteAt = b
	return r.runeAt
}

// toRuneOffsets returns a copy of entities with Start and End counted in
// code points of text.
func toRuneOffsets(text string, entities []placeholder.Entity) []placeholder.Entity {
	out := make([]placeholder.Entity, len(entities))
	idx := &runeIndex{text: text}
	for i, ent := range entities {
		ent.Start = idx.at(ent.Start)
		ent.End = idx.at(ent.End)
		out[i] = ent
	}
	return out
}
