// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package core builds the engine and the document redactors from the
// configuration. The CLI and the MCP server share it.
package core

import (
	"fmt"

	"redact-mcp/internal/config"
	"redact-mcp/internal/detector"
	"redact-mcp/internal/engine"
	"redact-mcp/internal/ner"
	"redact-mcp/internal/observability"
	"redact-mcp/internal/recognizers"
	"redact-mcp/internal/redactors"
	"redact-mcp/internal/redactors/office"
	"redact-mcp/internal/redactors/pdf"
	"redact-mcp/internal/redactors/plaintext"
	"redact-mcp/internal/reviewer"
	"redact-mcp/internal/session"
)

// BuildEngine constructs the redaction engine: the rule registry with any
// configured custom patterns, the tagger sidecar when enabled, and the
// Ollama reviewer. Pass nil for cfg to use the defaults.
func BuildEngine(cfg *config.Config, observer *observability.StandardObserver) (*engine.Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if observer == nil {
		observer = observability.NewNopObserver()
	}

	registry := recognizers.NewDefaultRegistry()
	if n := cfg.Detection.ContextWords; n > 0 {
		registry.WithContextExtractor(detector.NewContextExtractor().WithPrefixWords(n))
	}
	for _, p := range cfg.Detection.CustomPatterns {
		score := recognizers.DefaultCustomScore
		if p.Score != nil {
			score = *p.Score
		}
		if err := registry.AddCustomPattern(p.Name, p.Pattern, score); err != nil {
			return nil, fmt.Errorf("%w: custom pattern %q: %v", engine.ErrInvalidConfig, p.Name, err)
		}
	}

	opts := []engine.Option{
		engine.WithRegistry(registry),
		engine.WithObserver(observer.Named("engine")),
		engine.WithScoreThreshold(cfg.Detection.ScoreThreshold),
		engine.WithDisabledEntities(cfg.Detection.DisabledEntities),
		engine.WithStore(session.NewStore(session.WithTTL(cfg.Session.TTL))),
		engine.WithReviewer(reviewer.New(reviewer.Config{
			Enabled: cfg.Reviewer.Enabled,
			URL:     cfg.Reviewer.URL,
			Model:   cfg.Reviewer.Model,
			Timeout: cfg.Reviewer.Timeout,
		}, reviewer.WithObserver(observer.Named("reviewer")))),
	}
	if cfg.NER.Enabled {
		opts = append(opts, engine.WithLayer(ner.NewClient(ner.Config{
			URL:     cfg.NER.URL,
			Timeout: cfg.NER.Timeout,
		}, ner.WithObserver(observer.Named("ner")))))
	}
	return engine.New(opts...)
}

// BuildRegistry registers a redactor for every supported document format.
func BuildRegistry(cfg *config.Config, observer *observability.StandardObserver) (*redactors.Registry, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if observer == nil {
		observer = observability.NewNopObserver()
	}

	docx := office.NewDocxRedactor(observer)
	registry := redactors.NewRegistry(observer)
	for _, r := range []redactors.Redactor{
		plaintext.NewPlainTextRedactor(observer),
		docx,
		office.NewXlsxRedactor(observer),
		office.NewDocRedactor(cfg.Converter.LibreOffice, docx, observer),
		pdf.NewPDFRedactor(observer),
	} {
		if err := registry.RegisterRedactor(r); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", r.GetName(), err)
		}
	}
	return registry, nil
}
