// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package mcpserver exposes the redaction engine as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"redact-mcp/internal/engine"
	"redact-mcp/internal/observability"
	"redact-mcp/internal/redactors"
)

// ServerName is the implementation name announced to clients.
const ServerName = "redaction"

// Server serves the redaction tools. Tool calls are serialised: the engine
// is not safe for concurrent use.
type Server struct {
	mu       sync.Mutex
	engine   *engine.Engine
	files    *redactors.FileService
	observer *observability.StandardObserver
	server   *mcp.Server
}

// RedactInput is the input of the redact tool.
type RedactInput struct {
	Text        string   `json:"text" jsonschema:"the text to redact"`
	EntityTypes []string `json:"entity_types,omitempty" jsonschema:"entity types to redact, e.g. EMAIL_ADDRESS or PERSON; all known types when omitted"`
}

// UnredactInput is the input of the unredact tool.
type UnredactInput struct {
	RedactedText string `json:"redacted_text" jsonschema:"text containing placeholders like [EMAIL_ADDRESS_1]"`
	SessionID    string `json:"session_id" jsonschema:"the session id returned by redact"`
}

// AnalyzeInput is the input of the analyze tool.
type AnalyzeInput struct {
	Text        string   `json:"text" jsonschema:"the text to analyze"`
	EntityTypes []string `json:"entity_types,omitempty" jsonschema:"entity types to look for; all known types when omitted"`
}

// RedactFileInput is the input of the redact_file tool.
type RedactFileInput struct {
	FilePath        string   `json:"file_path" jsonschema:"absolute path of the file to redact"`
	EntityTypes     []string `json:"entity_types,omitempty" jsonschema:"entity types to redact; all known types when omitted"`
	UsePlaceholders *bool    `json:"use_placeholders,omitempty" jsonschema:"replace values with reversible placeholders (default true); false masks them irreversibly"`
}

// UnredactFileInput is the input of the unredact_file tool.
type UnredactFileInput struct {
	FilePath  string `json:"file_path" jsonschema:"absolute path of a file written by redact_file"`
	SessionID string `json:"session_id" jsonschema:"the session id returned by redact_file"`
}

// ErrorResult is returned for caller-facing failures.
type ErrorResult struct {
	Error string `json:"error"`
}

// New creates the MCP server and registers the tools.
func New(e *engine.Engine, files *redactors.FileService, observer *observability.StandardObserver, version string) *Server {
	if observer == nil {
		observer = observability.NewNopObserver()
	}
	s := &Server{
		engine:   e,
		files:    files,
		observer: observer,
		server:   mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "redact",
		Description: "Redact sensitive data from text, replacing entities with indexed placeholders like [EMAIL_ADDRESS_1]. Returns a session id for unredact.",
	}, s.redact)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "unredact",
		Description: "Restore redacted text to the original using the session id from a previous redact call.",
	}, s.unredact)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze",
		Description: "Analyze text for sensitive data without modifying it. Returns detected entities with partial masking.",
	}, s.analyze)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "configure",
		Description: "Configure the redaction engine at runtime: add custom patterns ({name, pattern, score}), disable entity types or change the score threshold.",
	}, s.configure)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "redact_file",
		Description: "Redact sensitive data in a file (.txt, .csv, .log, .md, .docx, .xlsx, .pdf, .doc). Writes a new file with a '_redacted' suffix next to the original.",
	}, s.redactFile)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "unredact_file",
		Description: "Restore a file written by redact_file using its session id. Writes a new file with an '_unredacted' suffix.",
	}, s.unredactFile)

	return s
}

// MCP returns the underlying SDK server.
func (s *Server) MCP() *mcp.Server { return s.server }

// Run serves over stdio until the client disconnects or ctx ends.
func (s *Server) Run(ctx context.Context) error {
	s.observer.Logger().Info("serving MCP over stdio", zap.String("server", ServerName))
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) redact(ctx context.Context, _ *mcp.CallToolRequest, in RedactInput) (*mcp.CallToolResult, any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return jsonResult(s.engine.Redact(ctx, in.Text, in.EntityTypes))
}

func (s *Server) unredact(ctx context.Context, _ *mcp.CallToolRequest, in UnredactInput) (*mcp.CallToolResult, any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.engine.Unredact(ctx, in.RedactedText, in.SessionID)
	if res.NotFound != nil {
		return jsonResult(ErrorResult{Error: res.NotFound.Message()})
	}
	return jsonResult(res)
}

func (s *Server) analyze(ctx context.Context, _ *mcp.CallToolRequest, in AnalyzeInput) (*mcp.CallToolResult, any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return jsonResult(s.engine.Analyze(ctx, in.Text, in.EntityTypes))
}

func (s *Server) configure(ctx context.Context, _ *mcp.CallToolRequest, in engine.ConfigureRequest) (*mcp.CallToolResult, any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.engine.Configure(ctx, in)
	if err != nil {
		// Surfaced as a tool error.
		return nil, nil, err
	}
	return jsonResult(res)
}

func (s *Server) redactFile(ctx context.Context, _ *mcp.CallToolRequest, in RedactFileInput) (*mcp.CallToolResult, any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	usePlaceholders := in.UsePlaceholders == nil || *in.UsePlaceholders
	res, err := s.files.RedactFile(ctx, in.FilePath, in.EntityTypes, usePlaceholders)
	if err != nil {
		return s.fileError(err, "")
	}
	return jsonResult(res)
}

func (s *Server) unredactFile(ctx context.Context, _ *mcp.CallToolRequest, in UnredactFileInput) (*mcp.CallToolResult, any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.files.UnredactFile(ctx, in.FilePath, in.SessionID)
	if err != nil {
		return s.fileError(err, in.SessionID)
	}
	return jsonResult(res)
}

// fileError turns a file service failure into an {error} payload.
func (s *Server) fileError(err error, sessionID string) (*mcp.CallToolResult, any, error) {
	message := err.Error()
	var re *redactors.RedactionError
	switch {
	case errors.Is(err, redactors.ErrSessionNotFound):
		message = engine.SessionNotFound{SessionID: sessionID}.Message()
	case errors.Is(err, redactors.ErrUnsupportedFormat):
		message = errors.Unwrap(err).Error()
	case errors.As(err, &re) && re.Type == redactors.ErrorFileSystem:
		message = re.Message
	}

	s.observer.Logger().Warn("file tool failed", zap.Error(err))
	return jsonResult(ErrorResult{Error: message})
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
