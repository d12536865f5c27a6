// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package reviewer asks a local Ollama model for PII that the scored layers
// missed. It is optional: an unreachable server or a missing model disables it
// for the life of the process.
package reviewer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"redact-mcp/internal/detector"
	"redact-mcp/internal/observability"
	"redact-mcp/internal/resilience"
	"redact-mcp/internal/version"
)

const (
	// LayerName identifies spans produced by the reviewer.
	LayerName = "llm"

	DefaultURL     = "http://localhost:11434"
	DefaultModel   = "llama3.1"
	DefaultTimeout = 60 * time.Second

	probeTimeout     = 3 * time.Second
	maxResponseBytes = 4 << 20
)

// Config configures the Ollama reviewer.
type Config struct {
	Enabled bool
	URL     string
	Model   string
	Timeout time.Duration
}

// Ollama implements detector.Reviewer against the Ollama HTTP API.
type Ollama struct {
	enabled    bool
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	breaker    *resilience.Breaker
	observer   *observability.StandardObserver

	probeOnce sync.Once
	available bool
}

// Option configures an Ollama reviewer.
type Option func(*Ollama)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *Ollama) { o.httpClient = hc }
}

// WithObserver sets the observer.
func WithObserver(obs *observability.StandardObserver) Option {
	return func(o *Ollama) { o.observer = obs }
}

// New creates a reviewer. Nothing is contacted until the first call.
func New(cfg Config, opts ...Option) *Ollama {
	o := &Ollama{
		enabled:    cfg.Enabled,
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		observer:   observability.NewNopObserver(),
	}
	if o.baseURL == "" {
		o.baseURL = DefaultURL
	}
	if o.model == "" {
		o.model = DefaultModel
	}
	if o.timeout <= 0 {
		o.timeout = DefaultTimeout
	}
	for _, opt := range opts {
		opt(o)
	}

	bc := resilience.DefaultBreakerConfig(LayerName)
	bc.OnStateChange = func(layer string, from, to resilience.BreakerState) {
		o.observer.BreakerChanged(layer, from.String(), to.String(), int(to))
	}
	o.breaker = resilience.NewBreaker(bc)
	return o
}

// Name returns the layer name.
func (o *Ollama) Name() string { return LayerName }

// GetComponentName returns the component identifier
func (o *Ollama) GetComponentName() string { return "llm_reviewer" }

// Model returns the configured model name.
func (o *Ollama) Model() string { return o.model }

type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// Available reports whether the reviewer is enabled, the server answers and
// the model is installed. The server is probed once per process.
func (o *Ollama) Available(ctx context.Context) bool {
	if !o.enabled {
		return false
	}
	o.probeOnce.Do(func() {
		// The result is kept for the process, so the caller's deadline
		// must not decide it.
		o.available = o.probe(context.WithoutCancel(ctx))
	})
	return o.available
}

func (o *Ollama) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	logger := o.observer.Logger()
	url := o.baseURL + "/api/tags"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		logger.Warn("llm reviewer disabled", zap.Error(err))
		return false
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		logger.Info("llm reviewer disabled: ollama unreachable", zap.String("url", url), zap.Error(err))
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		logger.Info("llm reviewer disabled", zap.Error(&resilience.StatusError{Service: LayerName, Code: resp.StatusCode}))
		return false
	}

	var tags tagsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&tags); err != nil {
		logger.Warn("llm reviewer disabled: decode model list", zap.Error(err))
		return false
	}
	for _, m := range tags.Models {
		if strings.Contains(m.Model, o.model) || strings.Contains(m.Name, o.model) {
			logger.Info("llm reviewer available", zap.String("model", o.model))
			return true
		}
	}
	logger.Info("llm reviewer disabled: model not installed", zap.String("model", o.model))
	return false
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// Review asks the model for additional PII in text. found holds the literal
// values the other layers already reported. Each finding is placed at its
// first occurrence in text; findings that do not occur verbatim are dropped.
func (o *Ollama) Review(ctx context.Context, text string, found []string) ([]detector.Span, error) {
	if !o.Available(ctx) {
		return nil, nil
	}

	ctx, span := observability.Tracer().Start(ctx, "reviewer.Review")
	defer span.End()

	var content string
	err := o.breaker.Do(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()
		var callErr error
		content, callErr = o.chat(ctx, text, found)
		return callErr
	})
	if err != nil {
		if resilience.IsOpen(err) {
			o.observer.Logger().Debug("llm review skipped", zap.Error(err))
			return nil, nil
		}
		span.RecordError(err)
		return nil, err
	}

	findings, ok := parseFindings(content)
	if !ok {
		return nil, fmt.Errorf("decode review: invalid JSON array in model reply")
	}

	var spans []detector.Span
	for _, f := range findings {
		start := strings.Index(text, f.Text)
		if start < 0 {
			continue
		}
		spans = append(spans, detector.Span{
			Start:  start,
			End:    start + len(f.Text),
			Type:   f.EntityType,
			Score:  detector.ReviewScore,
			Source: LayerName,
		})
	}
	span.SetAttributes(attribute.Int("reviewer.findings", len(findings)), attribute.Int("reviewer.spans", len(spans)))
	return spans, nil
}

func (o *Ollama) chat(ctx context.Context, text string, found []string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(text, found)},
		},
		Options: map[string]any{"temperature": 0},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	url := o.baseURL + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("POST %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("POST %s: %w", url, &resilience.StatusError{Service: LayerName, Code: resp.StatusCode})
	}

	var result chatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&result); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	return result.Message.Content, nil
}
