// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redact-mcp/internal/detector"
	"redact-mcp/internal/resilience"
)

func sidecar(t *testing.T, spans []classifySpan) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/classify" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req classifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(classifyResponse{Spans: spans})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestClient_MapsLabelsAndOffsets(t *testing.T) {
	// "Zoë Müller" occupies code points 8..18 after the 8-rune prefix.
	text := "Contact Zoë Müller at Acme Corp about the invoice"
	srv, _ := sidecar(t, []classifySpan{
		{Start: 8, End: 18, Label: "person", Text: "Zoë Müller", Score: 0.93},
		{Start: 22, End: 31, Label: "Organization", Text: "Acme Corp", Score: 0.81},
		{Start: 0, End: 7, Label: "email", Text: "Contact", Score: 0.99},
	})

	c := NewClient(Config{URL: srv.URL})
	spans, err := c.Detect(context.Background(), text, detector.Request{Threshold: 0.4})
	require.NoError(t, err)
	require.Len(t, spans, 2)

	assert.Equal(t, "PERSON", spans[0].Type)
	assert.Equal(t, "Zoë Müller", spans[0].Text(text))
	assert.Equal(t, LayerName, spans[0].Source)
	assert.Equal(t, "ORGANIZATION", spans[1].Type)
	assert.Equal(t, "Acme Corp", spans[1].Text(text))
}

func TestClient_AppliesRequestFilter(t *testing.T) {
	text := "Alice works at Initech"
	srv, _ := sidecar(t, []classifySpan{
		{Start: 0, End: 5, Label: "person", Text: "Alice", Score: 0.35},
		{Start: 15, End: 22, Label: "organization", Text: "Initech", Score: 0.9},
	})
	c := NewClient(Config{URL: srv.URL})

	spans, err := c.Detect(context.Background(), text, detector.Request{Threshold: 0.4})
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, "ORGANIZATION", spans[0].Type)

	spans, err = c.Detect(context.Background(), text, detector.Request{Types: []string{"PERSON"}})
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, "PERSON", spans[0].Type)
}

func TestClient_DropsMisalignedSpans(t *testing.T) {
	text := "Bob met Carol"
	srv, _ := sidecar(t, []classifySpan{
		{Start: 0, End: 3, Label: "person", Text: "Rob", Score: 0.9},
		{Start: 8, End: 40, Label: "person", Text: "Carol", Score: 0.9},
	})
	c := NewClient(Config{URL: srv.URL})

	spans, err := c.Detect(context.Background(), text, detector.Request{})
	require.NoError(t, err)
	assert.Empty(t, spans)
}

func TestClient_ErrorsAndBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL})
	for i := 0; i < 3; i++ {
		_, err := c.Detect(context.Background(), "Dana Scully", detector.Request{})
		var status *resilience.StatusError
		require.ErrorAs(t, err, &status)
		assert.Equal(t, http.StatusServiceUnavailable, status.Code)
	}

	spans, err := c.Detect(context.Background(), "Dana Scully", detector.Request{})
	assert.NoError(t, err)
	assert.Empty(t, spans)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_SkipsBlankText(t *testing.T) {
	srv, calls := sidecar(t, nil)
	c := NewClient(Config{URL: srv.URL})

	spans, err := c.Detect(context.Background(), "   \n", detector.Request{})
	assert.NoError(t, err)
	assert.Empty(t, spans)
	assert.Zero(t, calls.Load())
}

func TestSupportedEntities(t *testing.T) {
	assert.Equal(t, []string{
		"DATE_TIME", "DRUG_NAME", "LOCATION", "MEDICAL_CONDITION",
		"ORGANIZATION", "PERSON", "USERNAME",
	}, SupportedEntities(DefaultLabels))
	assert.NotContains(t, SupportedEntities(DefaultLabels), "EMAIL_ADDRESS")
}
