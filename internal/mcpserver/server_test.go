// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redact-mcp/internal/engine"
	"redact-mcp/internal/redactors"
	"redact-mcp/internal/redactors/plaintext"
)

func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	e, err := engine.New()
	require.NoError(t, err)
	registry := redactors.NewRegistry(nil)
	require.NoError(t, registry.RegisterRedactor(plaintext.NewPlainTextRedactor(nil)))
	srv := New(e, redactors.NewFileService(e, registry, nil), nil, "test")

	st, ct := mcp.NewInMemoryTransports()
	ss, err := srv.MCP().Connect(ctx, st, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

// call invokes a tool and decodes its JSON text payload into out.
func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any, out any) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.False(t, res.IsError, "tool %s returned an error", name)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal([]byte(text.Text), out))
}

func TestListTools(t *testing.T) {
	cs := connect(t)

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"redact", "unredact", "analyze", "configure", "redact_file", "unredact_file"}, names)
}

func TestRedactUnredact(t *testing.T) {
	cs := connect(t)

	var red engine.RedactResult
	call(t, cs, "redact", map[string]any{"text": "Contact john@example.com"}, &red)
	assert.Equal(t, "Contact [EMAIL_ADDRESS_1]", red.RedactedText)
	assert.Equal(t, 1, red.EntitiesFound)
	require.NotEmpty(t, red.SessionID)

	var back engine.UnredactResult
	call(t, cs, "unredact", map[string]any{"redacted_text": red.RedactedText, "session_id": red.SessionID}, &back)
	assert.Equal(t, "Contact john@example.com", back.OriginalText)
	assert.Equal(t, 1, back.EntitiesRestored)
}

func TestEntityOffsetsWithAccentedText(t *testing.T) {
	cs := connect(t)
	text := "Zoë Müller: john@example.com"
	runes := []rune(text)

	var red engine.RedactResult
	call(t, cs, "redact", map[string]any{"text": text, "entity_types": []string{"EMAIL_ADDRESS"}}, &red)
	require.Len(t, red.Entities, 1)
	assert.Equal(t, 12, red.Entities[0].Start)
	assert.Equal(t, 28, red.Entities[0].End)

	var an engine.AnalyzeResult
	call(t, cs, "analyze", map[string]any{"text": text, "entity_types": []string{"EMAIL_ADDRESS"}}, &an)
	require.Len(t, an.Entities, 1)
	assert.Equal(t, "john@example.com", string(runes[an.Entities[0].Start:an.Entities[0].End]))
}

func TestUnredact_UnknownSession(t *testing.T) {
	cs := connect(t)

	var out ErrorResult
	call(t, cs, "unredact", map[string]any{"redacted_text": "[EMAIL_ADDRESS_1]", "session_id": "gone"}, &out)
	assert.Equal(t, "Session 'gone' not found or expired", out.Error)
}

func TestAnalyze(t *testing.T) {
	cs := connect(t)

	var out engine.AnalyzeResult
	call(t, cs, "analyze", map[string]any{
		"text":         "Mail john@example.com from 192.168.1.20",
		"entity_types": []string{"EMAIL_ADDRESS"},
	}, &out)
	require.Len(t, out.Entities, 1)
	assert.Equal(t, "EMAIL_ADDRESS", out.Entities[0].Type)
	assert.NotContains(t, out.Entities[0].Text, "john@example.com")
}

func TestConfigure(t *testing.T) {
	cs := connect(t)

	var cfg engine.ConfigureResult
	call(t, cs, "configure", map[string]any{
		"custom_patterns":   []map[string]any{{"name": "TICKET", "pattern": `TCK-\d{4}`}},
		"disabled_entities": []string{"IP_ADDRESS"},
	}, &cfg)
	assert.Equal(t, "ok", cfg.Status)
	assert.Contains(t, cfg.ActiveEntities, "TICKET")
	assert.NotContains(t, cfg.ActiveEntities, "IP_ADDRESS")

	var red engine.RedactResult
	call(t, cs, "redact", map[string]any{"text": "TCK-1234 from 192.168.1.20"}, &red)
	assert.Equal(t, "[TICKET_1] from 192.168.1.20", red.RedactedText)
}

func TestConfigure_InvalidThresholdIsToolError(t *testing.T) {
	cs := connect(t)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "configure",
		Arguments: map[string]any{"score_threshold": 1.5},
	})
	if err == nil {
		assert.True(t, res.IsError)
	}
}

func TestRedactFileRoundTrip(t *testing.T) {
	cs := connect(t)
	path := filepath.Join(t.TempDir(), "log.txt")
	require.NoError(t, os.WriteFile(path, []byte("login from 192.168.1.20 by ana@mail.org\n"), 0600))

	var red redactors.RedactFileResult
	call(t, cs, "redact_file", map[string]any{"file_path": path}, &red)
	assert.Equal(t, 2, red.EntitiesFound)
	require.NotEmpty(t, red.SessionID)

	var back redactors.UnredactFileResult
	call(t, cs, "unredact_file", map[string]any{"file_path": red.RedactedFilePath, "session_id": red.SessionID}, &back)
	assert.Equal(t, 2, back.EntitiesRestored)

	data, err := os.ReadFile(back.UnredactedFilePath)
	require.NoError(t, err)
	assert.Equal(t, "login from 192.168.1.20 by ana@mail.org\n", string(data))
}

func TestRedactFile_Blackbox(t *testing.T) {
	cs := connect(t)
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("ana@mail.org"), 0600))

	var red redactors.RedactFileResult
	call(t, cs, "redact_file", map[string]any{"file_path": path, "use_placeholders": false}, &red)
	assert.Empty(t, red.SessionID)

	data, err := os.ReadFile(red.RedactedFilePath)
	require.NoError(t, err)
	assert.Equal(t, "████████████", string(data))
}

func TestFileErrors(t *testing.T) {
	cs := connect(t)
	dir := t.TempDir()

	var out ErrorResult
	call(t, cs, "redact_file", map[string]any{"file_path": filepath.Join(dir, "missing.txt")}, &out)
	assert.Contains(t, out.Error, "File not found")

	img := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(img, []byte{0x89}, 0600))
	out = ErrorResult{}
	call(t, cs, "redact_file", map[string]any{"file_path": img}, &out)
	assert.Contains(t, out.Error, ".png")
	assert.Contains(t, out.Error, ".txt")

	txt := filepath.Join(dir, "x_redacted.txt")
	require.NoError(t, os.WriteFile(txt, []byte("[EMAIL_ADDRESS_1]"), 0600))
	out = ErrorResult{}
	call(t, cs, "unredact_file", map[string]any{"file_path": txt, "session_id": "gone"}, &out)
	assert.Equal(t, "Session 'gone' not found or expired", out.Error)
}
