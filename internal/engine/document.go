// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"redact-mcp/internal/placeholder"
)

// BlackboxRune replaces every character of a value in blackbox mode.
const BlackboxRune = "█"

// DocumentSession collects the redactions of every text unit of one
// document (paragraphs, cells, pages) under a single session id.
//
// Units are redacted independently, so two units can both produce
// [PERSON_1] for different people. Before a unit's mapping is merged, any
// placeholder already bound to a different value is renumbered to the next
// free index for its type, so a merge never overwrites a mapping.
type DocumentSession struct {
	engine       *Engine
	types        []string
	placeholders bool
	id           string
	mapping      map[string]string
	found        int
}

// Unit is one redacted text unit.
type Unit struct {
	Text string

	// Entities are ascending, with offsets into the unit's original text.
	// Placeholder holds what was written in place of each value: a session
	// placeholder, or a blackbox mask.
	Entities []placeholder.Entity
}

// NewDocumentSession starts a document. With usePlaceholders false, values
// are masked irreversibly and no session is created.
func (e *Engine) NewDocumentSession(types []string, usePlaceholders bool) *DocumentSession {
	e.prune()
	d := &DocumentSession{
		engine:       e,
		types:        slices.Clone(types),
		placeholders: usePlaceholders,
		mapping:      make(map[string]string),
	}
	if usePlaceholders {
		d.id = e.store.Create()
		e.observer.SessionsActive(e.store.Len())
	}
	return d
}

// SessionID returns the document session id, empty in blackbox mode.
func (d *DocumentSession) SessionID() string { return d.id }

// Blackbox reports whether values are masked instead of replaced by
// placeholders.
func (d *DocumentSession) Blackbox() bool { return !d.placeholders }

// EntitiesFound returns the number of values replaced so far.
func (d *DocumentSession) EntitiesFound() int { return d.found }

// Abort drops the document session after a failed write.
func (d *DocumentSession) Abort() {
	if d.id != "" {
		d.engine.store.Delete(d.id)
		d.engine.observer.SessionsActive(d.engine.store.Len())
	}
}

// RedactUnit detects and replaces entities in one unit of text.
func (d *DocumentSession) RedactUnit(ctx context.Context, text string) (Unit, error) {
	if strings.TrimSpace(text) == "" {
		return Unit{Text: text}, nil
	}

	res := d.engine.redactText(ctx, text, d.types)
	if len(res.Entities) == 0 {
		return Unit{Text: text}, nil
	}
	d.found += len(res.Entities)
	d.engine.recordEntities(res.Entities)

	if !d.placeholders {
		masked := slices.Clone(res.Entities)
		for i, ent := range masked {
			masked[i].Placeholder = strings.Repeat(BlackboxRune, utf8.RuneCountInString(text[ent.Start:ent.End]))
		}
		return Unit{Text: placeholder.Substitute(text, masked), Entities: masked}, nil
	}

	entities := d.renumber(text, res.Entities)
	if err := d.merge(text, entities); err != nil {
		return Unit{}, err
	}
	return Unit{Text: placeholder.Substitute(text, entities), Entities: entities}, nil
}

func (d *DocumentSession) renumber(text string, entities []placeholder.Entity) []placeholder.Entity {
	out := slices.Clone(entities)
	reserved := make(map[string]bool, len(out))
	var conflicts []int
	for i, ent := range out {
		bound, taken := d.mapping[ent.Placeholder]
		if !taken || bound == text[ent.Start:ent.End] {
			reserved[ent.Placeholder] = true
			continue
		}
		conflicts = append(conflicts, i)
	}

	for _, i := range conflicts {
		for n := 1; ; n++ {
			ph := placeholder.Format(out[i].Type, n)
			if _, taken := d.mapping[ph]; taken || reserved[ph] || strings.Contains(text, ph) {
				continue
			}
			out[i].Placeholder = ph
			reserved[ph] = true
			break
		}
	}
	return out
}

// merge records the unit mapping as its own session and folds it into the
// document session.
func (d *DocumentSession) merge(text string, entities []placeholder.Entity) error {
	store := d.engine.store
	unitID := store.Create()
	defer store.Delete(unitID)

	for _, ent := range entities {
		original := text[ent.Start:ent.End]
		if err := store.AddMapping(unitID, ent.Placeholder, original); err != nil {
			return fmt.Errorf("record unit mapping: %w", err)
		}
		d.mapping[ent.Placeholder] = original
	}
	if err := store.Merge(d.id, unitID); err != nil {
		return fmt.Errorf("merge unit into document session %s: %w", d.id, err)
	}
	return nil
}
