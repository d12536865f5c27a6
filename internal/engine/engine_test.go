// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"redact-mcp/internal/detector"
	"redact-mcp/internal/observability"
	"redact-mcp/internal/placeholder"
	"redact-mcp/internal/session"
)

func newEngine(t testing.TB, opts ...Option) *Engine {
	t.Helper()
	e, err := New(opts...)
	require.NoError(t, err)
	return e
}

func ptr[T any](v T) *T { return &v }

func TestRedact_Email(t *testing.T) {
	e := newEngine(t)

	res := e.Redact(context.Background(), "Contact john@example.com", nil)

	assert.Equal(t, "Contact [EMAIL_ADDRESS_1]", res.RedactedText)
	assert.Equal(t, 1, res.EntitiesFound)
	require.Len(t, res.Entities, 1)
	assert.Equal(t, "EMAIL_ADDRESS", res.Entities[0].Type)
	assert.Equal(t, 8, res.Entities[0].Start)
	assert.Equal(t, 24, res.Entities[0].End)
	assert.Equal(t, map[string]string{"[EMAIL_ADDRESS_1]": "john@example.com"}, e.Mappings(res.SessionID))
}

func TestRedact_TwoEmailsNumberedLeftToRight(t *testing.T) {
	e := newEngine(t)

	res := e.Redact(context.Background(), "Email a@b.com and c@d.com", nil)

	assert.Equal(t, "Email [EMAIL_ADDRESS_1] and [EMAIL_ADDRESS_2]", res.RedactedText)
	mapping := e.Mappings(res.SessionID)
	assert.Equal(t, "a@b.com", mapping["[EMAIL_ADDRESS_1]"])
	assert.Equal(t, "c@d.com", mapping["[EMAIL_ADDRESS_2]"])
}

func TestRedact_NoEntitiesStillIssuesSession(t *testing.T) {
	e := newEngine(t)

	res := e.Redact(context.Background(), "The weather is nice today.", nil)

	assert.Equal(t, "The weather is nice today.", res.RedactedText)
	assert.Zero(t, res.EntitiesFound)
	assert.NotNil(t, res.Entities)
	assert.NotEmpty(t, res.SessionID)
	m := e.Mappings(res.SessionID)
	assert.NotNil(t, m)
	assert.Empty(t, m)
}

func TestRedact_EntityTypeFilter(t *testing.T) {
	e := newEngine(t)
	text := "Mail ana@mail.org from 192.168.1.20"

	res := e.Redact(context.Background(), text, []string{"IP_ADDRESS"})
	assert.Equal(t, "Mail ana@mail.org from [IP_ADDRESS_1]", res.RedactedText)
}

func TestUnredact_UnknownSession(t *testing.T) {
	e := newEngine(t)

	res := e.Unredact(context.Background(), "[EMAIL_ADDRESS_1]", "nonexistent-id")

	require.NotNil(t, res.NotFound)
	assert.Equal(t, "Session 'nonexistent-id' not found or expired", res.NotFound.Message())
}

func TestUnredact_CountsEachPlaceholderOnce(t *testing.T) {
	e := newEngine(t)
	res := e.Redact(context.Background(), "Contact john@example.com", nil)

	out := e.Unredact(context.Background(), "[EMAIL_ADDRESS_1] / [EMAIL_ADDRESS_1] / [PERSON_9]", res.SessionID)

	require.Nil(t, out.NotFound)
	assert.Equal(t, "john@example.com / john@example.com / [PERSON_9]", out.OriginalText)
	assert.Equal(t, 1, out.EntitiesRestored)
}

func TestUnredact_ExpiredSession(t *testing.T) {
	now := time.Unix(50_000, 0)
	store := session.NewStore(session.WithClock(func() time.Time { return now }))
	e := newEngine(t, WithStore(store))

	first := e.Redact(context.Background(), "Contact john@example.com", nil)
	now = now.Add(2 * time.Hour)
	e.Redact(context.Background(), "prune trigger", nil)

	assert.NotNil(t, e.Unredact(context.Background(), first.RedactedText, first.SessionID).NotFound)
}

func TestAnalyze_MasksAndCreatesNoSession(t *testing.T) {
	e := newEngine(t)
	text := "Contact john@example.com"

	res := e.Analyze(context.Background(), text, nil)

	require.Len(t, res.Entities, 1)
	got := res.Entities[0]
	assert.Equal(t, "EMAIL_ADDRESS", got.Type)
	assert.Equal(t, 8, got.Start)
	assert.Equal(t, 24, got.End)
	assert.Equal(t, 0.85, got.Score)
	assert.Equal(t, "john********.com", got.Text)
	assert.Zero(t, e.Store().Len())
}

func TestOffsetsCountCodePoints(t *testing.T) {
	e := newEngine(t)
	text := "Zoë Müller: john@example.com"
	runes := []rune(text)

	red := e.Redact(context.Background(), text, []string{"EMAIL_ADDRESS"})
	require.Len(t, red.Entities, 1)
	assert.Equal(t, 12, red.Entities[0].Start)
	assert.Equal(t, 28, red.Entities[0].End)
	assert.Equal(t, "john@example.com", string(runes[red.Entities[0].Start:red.Entities[0].End]))

	an := e.Analyze(context.Background(), text, []string{"EMAIL_ADDRESS"})
	require.Len(t, an.Entities, 1)
	assert.Equal(t, 12, an.Entities[0].Start)
	assert.Equal(t, "john@example.com", string(runes[an.Entities[0].Start:an.Entities[0].End]))
}

func TestToRuneOffsets(t *testing.T) {
	text := "é a@b.com 世 c@d.com"
	got := toRuneOffsets(text, []placeholder.Entity{
		{Type: "EMAIL_ADDRESS", Start: 3, End: 10},
		{Type: "EMAIL_ADDRESS", Start: 15, End: 22},
	})
	assert.Equal(t, 2, got[0].Start)
	assert.Equal(t, 9, got[0].End)
	assert.Equal(t, 12, got[1].Start)
	assert.Equal(t, 19, got[1].End)
	assert.NotNil(t, toRuneOffsets(text, nil))
}

func TestMask(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"abcd", "****"},
		{"abcde", "a***e"},
		{"abcdefgh", "ab****gh"},
		{"Zoë Müller", "Zo******er"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Mask(tt.in))
		})
	}
}

func TestMask_NeverRevealsFullValue(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		value := rapid.StringN(1, 40, -1).Draw(t, "value")
		masked := []rune(Mask(value))
		n := utf8.RuneCountInString(value)

		if len(masked) != n {
			t.Fatalf("mask changed length: %d -> %d", n, len(masked))
		}
		hidden := 0
		for _, r := range masked {
			if r == '*' {
				hidden++
			}
		}
		want := n
		if n > 4 {
			want = n - 2*max(1, n/4)
		}
		if hidden < want || want < 1 {
			t.Fatalf("mask %q of %q hides %d runes, want %d", string(masked), value, hidden, want)
		}
	})
}

func TestConfigure(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	res, err := e.Configure(ctx, ConfigureRequest{
		CustomPatterns:   []CustomPattern{{Name: "INTERNAL_ID", Pattern: `ID-\d{6}`, Score: ptr(0.9)}},
		DisabledEntities: []string{"EMAIL_ADDRESS"},
		ScoreThreshold:   ptr(0.5),
	})
	require.NoError(t, err)

	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, 0.5, res.ScoreThreshold)
	assert.False(t, res.LLMAvailable)
	assert.Contains(t, res.ActiveEntities, "INTERNAL_ID")
	assert.NotContains(t, res.ActiveEntities, "EMAIL_ADDRESS")
	assert.IsIncreasing(t, res.ActiveEntities)

	out := e.Redact(ctx, "Ticket ID-123456 from john@example.com", nil)
	assert.Equal(t, "Ticket [INTERNAL_ID_1] from john@example.com", out.RedactedText)

	// Explicitly requesting a disabled type still yields nothing.
	out = e.Redact(ctx, "Contact john@example.com", []string{"EMAIL_ADDRESS"})
	assert.Zero(t, out.EntitiesFound)
}

func TestConfigure_DefaultCustomScore(t *testing.T) {
	e := newEngine(t)
	_, err := e.Configure(context.Background(), ConfigureRequest{
		CustomPatterns: []CustomPattern{{Name: "BADGE", Pattern: `BDG\d{4}`}},
	})
	require.NoError(t, err)

	res := e.Analyze(context.Background(), "badge BDG1234", nil)
	require.Len(t, res.Entities, 1)
	assert.Equal(t, 0.8, res.Entities[0].Score)
}

func TestConfigure_Invalid(t *testing.T) {
	tests := []struct {
		name string
		req  ConfigureRequest
	}{
		{"threshold above one", ConfigureRequest{ScoreThreshold: ptr(1.5)}},
		{"negative threshold", ConfigureRequest{ScoreThreshold: ptr(-0.1)}},
		{"malformed regex", ConfigureRequest{CustomPatterns: []CustomPattern{{Name: "X", Pattern: `([a-z`}}}},
		{"unnamed pattern", ConfigureRequest{CustomPatterns: []CustomPattern{{Pattern: `x`}}}},
		{"score out of range", ConfigureRequest{CustomPatterns: []CustomPattern{{Name: "X", Pattern: `x`, Score: ptr(2.0)}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t)
			before := e.ActiveEntities()

			_, err := e.Configure(context.Background(), tt.req)
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Equal(t, DefaultScoreThreshold, e.ScoreThreshold())
			assert.Equal(t, before, e.ActiveEntities())
		})
	}

	_, err := New(WithScoreThreshold(3))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

type stubReviewer struct {
	items []detector.Span
}

func (s *stubReviewer) Name() string                     { return "llm" }
func (s *stubReviewer) Available(_ context.Context) bool { return true }
func (s *stubReviewer) Review(_ context.Context, _ string, _ []string) ([]detector.Span, error) {
	return s.items, nil
}

type stubLayer struct{}

func (stubLayer) Name() string { return "ner" }
func (stubLayer) Detect(_ context.Context, text string, req detector.Request) ([]detector.Span, error) {
	i := strings.Index(text, "Ada Lovelace")
	if i < 0 || !req.Allows("PERSON") {
		return nil, nil
	}
	return []detector.Span{{Start: i, End: i + len("Ada Lovelace"), Type: "PERSON", Score: 0.9, Source: "ner"}}, nil
}
func (stubLayer) SupportedEntities() []string { return []string{"PERSON"} }

func TestRedact_AllLayers(t *testing.T) {
	text := "Ada Lovelace (plate KX-991) mailed ada@engine.org"
	e := newEngine(t,
		WithLayer(stubLayer{}),
		WithReviewer(&stubReviewer{items: []detector.Span{{Start: 20, End: 26, Type: "LICENSE_PLATE"}}}),
	)

	res := e.Redact(context.Background(), text, nil)

	assert.Equal(t, "[PERSON_1] (plate [LICENSE_PLATE_1]) mailed [EMAIL_ADDRESS_1]", res.RedactedText)
	assert.Contains(t, e.ActiveEntities(), "PERSON")

	cfg, err := e.Configure(context.Background(), ConfigureRequest{})
	require.NoError(t, err)
	assert.True(t, cfg.LLMAvailable)
}

func TestRedact_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetricsWithRegistry(reg)
	e := newEngine(t, WithObserver(observability.NewStandardObserver(nil, metrics)))

	e.Redact(context.Background(), "Email a@b.com and c@d.com", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.EntitiesTotal.WithLabelValues("EMAIL_ADDRESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues("redact", "success")))
}

var pieces = []string{
	"hello", "world", "Contact", "ana@mail.org", "call", "555-123-4567",
	"server", "192.168.1.20", "born", "2024-03-15", "é", "日本", ",", "and",
}

func textGen() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		words := rapid.SliceOfN(rapid.SampledFrom(pieces), 0, 12).Draw(t, "words")
		return strings.Join(words, " ")
	})
}

func TestRedact_RoundTripProperty(t *testing.T) {
	e := newEngine(t)
	rapid.Check(t, func(t *rapid.T) {
		text := textGen().Draw(t, "text")
		ctx := context.Background()

		red := e.Redact(ctx, text, nil)
		out := e.Unredact(ctx, red.RedactedText, red.SessionID)

		if out.NotFound != nil {
			t.Fatalf("session %s vanished", red.SessionID)
		}
		if out.OriginalText != text {
			t.Fatalf("round trip %q -> %q -> %q", text, red.RedactedText, out.OriginalText)
		}
		if out.EntitiesRestored != red.EntitiesFound {
			t.Fatalf("restored %d of %d", out.EntitiesRestored, red.EntitiesFound)
		}
	})
}

func TestAnalyze_IdempotentAndNonOverlapping(t *testing.T) {
	e := newEngine(t)
	rapid.Check(t, func(t *rapid.T) {
		text := textGen().Draw(t, "text")
		ctx := context.Background()

		a := e.Analyze(ctx, text, nil)
		b := e.Analyze(ctx, text, nil)
		if len(a.Entities) != len(b.Entities) {
			t.Fatalf("analyze not idempotent: %v vs %v", a, b)
		}
		for i := range a.Entities {
			if a.Entities[i] != b.Entities[i] {
				t.Fatalf("analyze not idempotent at %d", i)
			}
			if i > 0 && a.Entities[i-1].End > a.Entities[i].Start {
				t.Fatalf("overlapping entities %v and %v", a.Entities[i-1], a.Entities[i])
			}
		}
		if e.Store().Len() != 0 {
			t.Fatalf("analyze created a session")
		}
	})
}

func TestThresholdMonotonicityProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := textGen().Draw(t, "text")
		lo := rapid.Float64Range(0, 1).Draw(t, "lo")
		hi := rapid.Float64Range(lo, 1).Draw(t, "hi")

		low, err := New(WithScoreThreshold(lo))
		if err != nil {
			t.Fatal(err)
		}
		high, err := New(WithScoreThreshold(hi))
		if err != nil {
			t.Fatal(err)
		}

		loSet := map[AnalyzedEntity]bool{}
		for _, ent := range low.Analyze(context.Background(), text, nil).Entities {
			loSet[ent] = true
		}
		for _, ent := range high.Analyze(context.Background(), text, nil).Entities {
			if !loSet[ent] {
				t.Fatalf("entity %v found at threshold %v but not at %v", ent, hi, lo)
			}
		}
	})
}
