// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"strings"
	"unicode"
)

const (
	// ContextBoost is added to a pattern score when a context keyword is near.
	ContextBoost = 0.35

	// MinScoreWithContext is the floor for a score that received a boost.
	MinScoreWithContext = 0.4
)

// ContextExtractor extracts the words surrounding a match within a text block
type ContextExtractor struct {
	// Number of words before the match to consider
	PrefixWords int

	// Number of words after the match to consider
	SuffixWords int
}

// NewContextExtractor creates a new context extractor with default settings
func NewContextExtractor() *ContextExtractor {
	return &ContextExtractor{
		PrefixWords: 5,
		SuffixWords: 0,
	}
}

// WithPrefixWords sets the number of words inspected before a match
func (ce *ContextExtractor) WithPrefixWords(n int) *ContextExtractor {
	ce.PrefixWords = n
	return ce
}

// WithSuffixWords sets the number of words inspected after a match
func (ce *ContextExtractor) WithSuffixWords(n int) *ContextExtractor {
	ce.SuffixWords = n
	return ce
}

// Window returns the lower-cased words around text[start:end].
func (ce *ContextExtractor) Window(text string, start, end int) []string {
	before := words(text[:start])
	if len(before) > ce.PrefixWords {
		before = before[len(before)-ce.PrefixWords:]
	}

	var after []string
	if ce.SuffixWords > 0 {
		after = words(text[end:])
		if len(after) > ce.SuffixWords {
			after = after[:ce.SuffixWords]
		}
	}

	return append(before, after...)
}

// HasKeyword reports whether any keyword occurs in the window around the
// match. Single-word keywords match a window word or its prefix ("key"
// matches "keys"); multi-word keywords match the joined window.
func (ce *ContextExtractor) HasKeyword(text string, start, end int, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	window := ce.Window(text, start, end)
	if len(window) == 0 {
		return false
	}
	joined := " " + strings.Join(window, " ") + " "

	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(kw, " ") {
			if strings.Contains(joined, " "+kw+" ") {
				return true
			}
			continue
		}
		for _, w := range window {
			if strings.HasPrefix(w, kw) {
				return true
			}
		}
	}
	return false
}

// Boost applies the context enhancement to score.
func Boost(score float64) float64 {
	boosted := max(score+ContextBoost, MinScoreWithContext)
	return min(boosted, 1.0)
}

func words(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return fields
}
