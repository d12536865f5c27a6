// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package ner is the client for the span-tagger sidecar. The sidecar runs a
// multilingual PII model and answers POST /classify with labelled spans.
package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"redact-mcp/internal/detector"
	"redact-mcp/internal/observability"
	"redact-mcp/internal/resilience"
	"redact-mcp/internal/version"
)

// LayerName identifies spans produced by the tagger.
const LayerName = "ner"

// DefaultTimeout bounds a single classify call.
const DefaultTimeout = 10 * time.Second

const maxResponseBytes = 8 << 20

// Config configures the sidecar client.
type Config struct {
	URL     string
	Timeout time.Duration
	Labels  map[string]string // nil means DefaultLabels
}

// Client calls the tagger sidecar.
type Client struct {
	baseURL    string
	httpClient *http.Client
	labels     map[string]string
	breaker    *resilience.Breaker
	observer   *observability.StandardObserver
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBreaker replaces the circuit breaker.
func WithBreaker(cb *resilience.Breaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// WithObserver sets the observer.
func WithObserver(o *observability.StandardObserver) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient creates a sidecar client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	labels := cfg.Labels
	if labels == nil {
		labels = DefaultLabels
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		httpClient: &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		labels:     labels,
		observer:   observability.NewNopObserver(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		bc := resilience.DefaultBreakerConfig(LayerName)
		bc.OnStateChange = func(layer string, from, to resilience.BreakerState) {
			c.observer.BreakerChanged(layer, from.String(), to.String(), int(to))
		}
		c.breaker = resilience.NewBreaker(bc)
	}
	return c
}

// Name returns the layer name.
func (c *Client) Name() string { return LayerName }

// GetComponentName returns the component identifier
func (c *Client) GetComponentName() string { return "ner_client" }

// SupportedEntities returns the entity types this layer can emit.
func (c *Client) SupportedEntities() []string { return SupportedEntities(c.labels) }

type classifyRequest struct {
	Text   string   `json:"text"`
	Labels []string `json:"labels,omitempty"`
}

type classifySpan struct {
	Start int     `json:"start"`
	End   int     `json:"end"`
	Label string  `json:"label"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

type classifyResponse struct {
	Spans []classifySpan `json:"spans"`
}

// Detect sends text to the sidecar and returns the mapped spans that pass the
// request's filter and threshold. An open breaker yields no spans and no error.
func (c *Client) Detect(ctx context.Context, text string, req detector.Request) ([]detector.Span, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	ctx, span := observability.Tracer().Start(ctx, "ner.Detect")
	defer span.End()

	var resp *classifyResponse
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.classify(ctx, text)
		return callErr
	})
	if err != nil {
		if resilience.IsOpen(err) {
			c.observer.Logger().Debug("tagger skipped", zap.Error(err))
			return nil, nil
		}
		span.RecordError(err)
		return nil, err
	}

	offsets := byteOffsets(text)
	var spans []detector.Span
	for _, s := range resp.Spans {
		entityType, ok := c.labels[strings.ToLower(s.Label)]
		if !ok || !req.Allows(entityType) || s.Score < req.Threshold {
			continue
		}
		if s.Start < 0 || s.End <= s.Start || s.End >= len(offsets) {
			continue
		}
		start, end := offsets[s.Start], offsets[s.End]
		// The sidecar echoes the matched text; a mismatch means it tokenised
		// a different string than we sent.
		if s.Text != "" && text[start:end] != s.Text {
			continue
		}
		spans = append(spans, detector.Span{
			Start:  start,
			End:    end,
			Type:   entityType,
			Score:  s.Score,
			Source: LayerName,
		})
	}
	span.SetAttributes(attribute.Int("ner.spans", len(spans)))
	return spans, nil
}

func (c *Client) classify(ctx context.Context, text string) (*classifyResponse, error) {
	body, err := json.Marshal(classifyRequest{Text: text, Labels: slices.Sorted(maps.Keys(c.labels))})
	if err != nil {
		return nil, fmt.Errorf("marshal classify request: %w", err)
	}

	url := c.baseURL + "/classify"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("POST %s: %w", url, &resilience.StatusError{Service: LayerName, Code: resp.StatusCode})
	}

	var result classifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode classify response: %w", err)
	}
	return &result, nil
}

// byteOffsets maps code point indexes to byte offsets. The extra final entry
// is len(text), so an exclusive end index maps cleanly.
func byteOffsets(text string) []int {
	offsets := make([]int, 0, len(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	return append(offsets, len(text))
}
