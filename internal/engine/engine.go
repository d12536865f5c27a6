// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package engine ties detection, placeholder substitution and the session
// store together. An Engine is not safe for concurrent use; callers that
// share one serialise access.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"redact-mcp/internal/detector"
	"redact-mcp/internal/observability"
	"redact-mcp/internal/placeholder"
	"redact-mcp/internal/recognizers"
	"redact-mcp/internal/session"
)

// DefaultScoreThreshold is the minimum score for scored layers.
const DefaultScoreThreshold = 0.4

// ErrInvalidConfig is wrapped by every configuration error.
var ErrInvalidConfig = errors.New("invalid configuration")

// EntitySource is a detection layer that can list the types it emits.
type EntitySource interface {
	SupportedEntities() []string
}

// Engine is the redaction facade.
type Engine struct {
	registry  *recognizers.Registry
	layers    []detector.Layer
	reviewer  detector.Reviewer
	detector  *detector.Detector
	store     *session.Store
	observer  *observability.StandardObserver
	threshold float64
	disabled  []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry replaces the default rule registry.
func WithRegistry(r *recognizers.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithLayer adds a scored layer after the rule engine.
func WithLayer(l detector.Layer) Option {
	return func(e *Engine) {
		if l != nil {
			e.layers = append(e.layers, l)
		}
	}
}

// WithReviewer installs the generative reviewer.
func WithReviewer(r detector.Reviewer) Option {
	return func(e *Engine) { e.reviewer = r }
}

// WithStore replaces the session store.
func WithStore(s *session.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithObserver sets the observer.
func WithObserver(o *observability.StandardObserver) Option {
	return func(e *Engine) { e.observer = o }
}

// WithScoreThreshold sets the initial threshold.
func WithScoreThreshold(t float64) Option {
	return func(e *Engine) { e.threshold = t }
}

// WithDisabledEntities sets the initially disabled types.
func WithDisabledEntities(types []string) Option {
	return func(e *Engine) { e.disabled = slices.Clone(types) }
}

// New creates an engine. It fails only on an invalid threshold.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		threshold: DefaultScoreThreshold,
		observer:  observability.NewNopObserver(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := validateThreshold(e.threshold); err != nil {
		return nil, err
	}
	if e.registry == nil {
		e.registry = recognizers.NewDefaultRegistry()
	}
	if e.store == nil {
		e.store = session.NewStore()
	}

	dopts := []detector.Option{
		detector.WithLayer(e.registry),
		detector.WithObserver(e.observer.Named("detector")),
	}
	for _, l := range e.layers {
		dopts = append(dopts, detector.WithLayer(l))
	}
	if e.reviewer != nil {
		dopts = append(dopts, detector.WithReviewer(e.reviewer))
	}
	e.detector = detector.New(dopts...)
	return e, nil
}

// GetComponentName returns the component identifier
func (e *Engine) GetComponentName() string {
	return "engine"
}

// Store returns the engine's session store.
func (e *Engine) Store() *session.Store { return e.store }

// ScoreThreshold returns the current threshold.
func (e *Engine) ScoreThreshold() float64 { return e.threshold }

// ActiveEntities returns the sorted entity types that detection can report.
func (e *Engine) ActiveEntities() []string {
	types := e.registry.SupportedEntities()
	for _, l := range e.layers {
		if src, ok := l.(EntitySource); ok {
			types = append(types, src.SupportedEntities()...)
		}
	}
	slices.Sort(types)
	types = slices.Compact(types)
	return slices.DeleteFunc(types, func(t string) bool {
		return slices.Contains(e.disabled, t)
	})
}

// LLMAvailable reports whether the reviewer layer is usable.
func (e *Engine) LLMAvailable(ctx context.Context) bool {
	return e.detector.ReviewerAvailable(ctx)
}

func (e *Engine) request(types []string) detector.Request {
	return detector.Request{
		Types:     types,
		Disabled:  e.disabled,
		Threshold: e.threshold,
	}
}

// RedactResult is the outcome of Redact. Entity offsets count code points
// of the input text.
type RedactResult struct {
	RedactedText  string               `json:"redacted_text"`
	SessionID     string               `json:"session_id"`
	EntitiesFound int                  `json:"entities_found"`
	Entities      []placeholder.Entity `json:"entities"`
}

// Redact replaces detected entities in text with placeholders and records
// the mapping in a new session. A session is issued even when nothing is
// found. types restricts detection; nil means all active types.
func (e *Engine) Redact(ctx context.Context, text string, types []string) RedactResult {
	ctx, span := observability.Tracer().Start(ctx, "engine.Redact")
	defer span.End()
	done := e.observer.StartTiming("engine", "redact", "")

	e.prune()
	res := e.redactText(ctx, text, types)

	id := e.store.Create()
	for ph, original := range res.Mapping {
		// The session was created above; AddMapping cannot miss it.
		_ = e.store.AddMapping(id, ph, original)
	}
	e.observer.SessionsActive(e.store.Len())
	e.recordEntities(res.Entities)

	span.SetAttributes(attribute.Int("redact.entities", len(res.Entities)))
	done(true, map[string]interface{}{"entities_found": len(res.Entities)})

	entities := toRuneOffsets(text, res.Entities)
	return RedactResult{
		RedactedText:  res.Text,
		SessionID:     id,
		EntitiesFound: len(entities),
		Entities:      entities,
	}
}

func (e *Engine) redactText(ctx context.Context, text string, types []string) placeholder.Result {
	spans := e.detector.Detect(ctx, text, e.request(types))
	return placeholder.Apply(text, spans)
}

func (e *Engine) prune() {
	if n := e.store.PruneExpired(); n > 0 {
		e.observer.Logger().Debug("pruned expired sessions", zap.Int("count", n))
	}
}

func (e *Engine) recordEntities(entities []placeholder.Entity) {
	types := make([]string, len(entities))
	for i, ent := range entities {
		types[i] = ent.Type
		e.observer.Logger().Debug("entity redacted",
			zap.String("entity_type", ent.Type),
			zap.Int("start", ent.Start),
			zap.Int("end", ent.End))
	}
	e.observer.EntitiesRedacted(types)
}

// SessionNotFound reports an unknown or expired session. It is a result, not
// an error: callers routinely present stale ids.
type SessionNotFound struct {
	SessionID string
}

func (s SessionNotFound) Message() string {
	return fmt.Sprintf("Session '%s' not found or expired", s.SessionID)
}

// UnredactResult is the outcome of Unredact. NotFound is set instead of the
// other fields when the session cannot be resolved.
type UnredactResult struct {
	OriginalText     string           `json:"original_text"`
	EntitiesRestored int              `json:"entities_restored"`
	NotFound         *SessionNotFound `json:"-"`
}

// Unredact restores placeholders in text using the session's mapping. Each
// placeholder found counts once, however often it occurs.
func (e *Engine) Unredact(ctx context.Context, text, sessionID string) UnredactResult {
	_, span := observability.Tracer().Start(ctx, "engine.Unredact")
	defer span.End()
	done := e.observer.StartTiming("engine", "unredact", "")

	mapping := e.store.Mappings(sessionID)
	if mapping == nil {
		done(false, map[string]interface{}{"error": "session not found"})
		return UnredactResult{NotFound: &SessionNotFound{SessionID: sessionID}}
	}

	restored, n := placeholder.Restore(text, mapping)
	done(true, map[string]interface{}{"entities_restored": n})
	return UnredactResult{OriginalText: restored, EntitiesRestored: n}
}

// Mappings returns a copy of a session's mapping, or nil when unknown.
func (e *Engine) Mappings(sessionID string) map[string]string {
	return e.store.Mappings(sessionID)
}

// AnalyzedEntity is one detection reported by Analyze. Start and End count
// code points.
type AnalyzedEntity struct {
	Type  string  `json:"type"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`
	Text  string  `json:"text"` // masked preview
}

// AnalyzeResult is the outcome of Analyze.
type AnalyzeResult struct {
	Entities []AnalyzedEntity `json:"entities"`
}

// Analyze detects entities without redacting or creating a session.
func (e *Engine) Analyze(ctx context.Context, text string, types []string) AnalyzeResult {
	ctx, span := observability.Tracer().Start(ctx, "engine.Analyze")
	defer span.End()
	done := e.observer.StartTiming("engine", "analyze", "")

	spans := e.detector.Detect(ctx, text, e.request(types))
	entities := make([]AnalyzedEntity, 0, len(spans))
	idx := &runeIndex{text: text}
	for _, s := range spans {
		entities = append(entities, AnalyzedEntity{
			Type:  s.Type,
			Start: idx.at(s.Start),
			End:   idx.at(s.End),
			Score: math.Round(s.Score*100) / 100,
			Text:  Mask(s.Text(text)),
		})
	}

	done(true, map[string]interface{}{"entities_found": len(entities)})
	return AnalyzeResult{Entities: entities}
}
