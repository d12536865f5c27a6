// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package recognizers implements the deterministic pattern layer: regex and
// deny-list rules with base scores, checksum verification and context boost.
package recognizers

import (
	"fmt"
	"regexp"
	"strings"

	"redact-mcp/internal/detector"
)

// DenyListScore is the score given to exact deny-list hits.
const DenyListScore = 1.0

// Pattern is one regular expression with its base score.
type Pattern struct {
	Name  string
	Regex string
	Score float64

	re *regexp.Regexp
}

// Verify inspects a raw pattern match. It returns the adjusted score, or
// false to drop the match.
type Verify func(value string, score float64) (float64, bool)

// Recognizer detects one entity type.
type Recognizer struct {
	Name       string
	EntityType string
	Patterns   []Pattern
	DenyList   []string
	Context    []string
	Verify     Verify

	deny *regexp.Regexp
}

func (r *Recognizer) compile() error {
	if r.EntityType == "" {
		return fmt.Errorf("recognizer %q has no entity type", r.Name)
	}
	if len(r.Patterns) == 0 && len(r.DenyList) == 0 {
		return fmt.Errorf("recognizer %q has neither patterns nor deny list", r.Name)
	}
	for i := range r.Patterns {
		p := &r.Patterns[i]
		if p.Score < 0 || p.Score > 1 {
			return fmt.Errorf("pattern %q score %v outside [0,1]", p.Name, p.Score)
		}
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return fmt.Errorf("pattern %q: %w", p.Name, err)
		}
		p.re = re
	}
	if len(r.DenyList) > 0 {
		quoted := make([]string, len(r.DenyList))
		for i, w := range r.DenyList {
			quoted[i] = regexp.QuoteMeta(w)
		}
		r.deny = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	}
	return nil
}

// analyze returns every candidate span in text with its final score.
func (r *Recognizer) analyze(text string, ce *detector.ContextExtractor) []detector.Span {
	var spans []detector.Span

	emit := func(start, end int, score float64) {
		if ce.HasKeyword(text, start, end, r.Context) {
			score = detector.Boost(score)
		}
		spans = append(spans, detector.Span{
			Start:  start,
			End:    end,
			Type:   r.EntityType,
			Score:  score,
			Source: LayerName,
		})
	}

	for _, p := range r.Patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			if loc[0] == loc[1] {
				continue
			}
			score := p.Score
			if r.Verify != nil {
				var ok bool
				if score, ok = r.Verify(text[loc[0]:loc[1]], score); !ok {
					continue
				}
			}
			emit(loc[0], loc[1], score)
		}
	}

	if r.deny != nil {
		for _, loc := range r.deny.FindAllStringIndex(text, -1) {
			emit(loc[0], loc[1], DenyListScore)
		}
	}

	return spans
}
