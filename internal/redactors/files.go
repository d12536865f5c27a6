// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactors

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"redact-mcp/internal/engine"
	"redact-mcp/internal/observability"
	"redact-mcp/internal/paths"
)

// RedactFileResult is the outcome of RedactFile.
type RedactFileResult struct {
	RedactedFilePath string `json:"redacted_file_path"`
	SessionID        string `json:"session_id,omitempty"`
	EntitiesFound    int    `json:"entities_found"`
}

// UnredactFileResult is the outcome of UnredactFile.
type UnredactFileResult struct {
	UnredactedFilePath string `json:"unredacted_file_path"`
	EntitiesRestored   int    `json:"entities_restored"`
}

// FileService redacts and restores whole files next to their originals.
type FileService struct {
	engine   *engine.Engine
	registry *Registry
	observer *observability.StandardObserver
}

// NewFileService creates a file service.
func NewFileService(e *engine.Engine, registry *Registry, observer *observability.StandardObserver) *FileService {
	if observer == nil {
		observer = observability.NewNopObserver()
	}
	return &FileService{engine: e, registry: registry, observer: observer}
}

// GetComponentName returns the component identifier
func (s *FileService) GetComponentName() string {
	return "file_service"
}

// SupportedTypes lists the registered file extensions.
func (s *FileService) SupportedTypes() []string {
	return s.registry.SupportedTypes()
}

// RedactFile writes <base>_redacted<ext> beside path. With usePlaceholders
// false the values are masked and no session is issued.
func (s *FileService) RedactFile(ctx context.Context, path string, types []string, usePlaceholders bool) (*RedactFileResult, error) {
	ctx, span := observability.Tracer().Start(ctx, "redactors.RedactFile")
	defer span.End()
	done := s.observer.StartTiming(s.GetComponentName(), "redact_file", path)

	result, err := s.redactFile(ctx, path, types, usePlaceholders)
	if err != nil {
		span.RecordError(err)
		done(false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	span.SetAttributes(attribute.Int("redact.entities", result.EntitiesFound))
	done(true, map[string]interface{}{"entities_found": result.EntitiesFound})
	return result, nil
}

func (s *FileService) redactFile(ctx context.Context, path string, types []string, usePlaceholders bool) (*RedactFileResult, error) {
	path, err := checkFile(path)
	if err != nil {
		return nil, err
	}
	redactor, err := s.registry.GetRedactorForFile(path)
	if err != nil {
		return nil, NewRedactionError(ErrorConfiguration, "Unsupported file type", path, s.GetComponentName(), err)
	}

	outputPath := OutputPath(path, "_redacted", outputExt(redactor, path))
	doc := s.engine.NewDocumentSession(types, usePlaceholders)
	if err := redactor.RedactDocument(ctx, path, outputPath, doc); err != nil {
		doc.Abort()
		return nil, wrapFailure("Redaction failed", path, redactor, err)
	}

	return &RedactFileResult{
		RedactedFilePath: outputPath,
		SessionID:        doc.SessionID(),
		EntitiesFound:    doc.EntitiesFound(),
	}, nil
}

// UnredactFile writes <base>_unredacted<ext> beside path with the session's
// placeholders restored.
func (s *FileService) UnredactFile(ctx context.Context, path, sessionID string) (*UnredactFileResult, error) {
	ctx, span := observability.Tracer().Start(ctx, "redactors.UnredactFile")
	defer span.End()
	done := s.observer.StartTiming(s.GetComponentName(), "unredact_file", path)

	result, err := s.unredactFile(ctx, path, sessionID)
	if err != nil {
		span.RecordError(err)
		done(false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	done(true, map[string]interface{}{"entities_restored": result.EntitiesRestored})
	return result, nil
}

func (s *FileService) unredactFile(ctx context.Context, path, sessionID string) (*UnredactFileResult, error) {
	path, err := checkFile(path)
	if err != nil {
		return nil, err
	}
	mapping := s.engine.Mappings(sessionID)
	if mapping == nil {
		return nil, NewRedactionError(ErrorConfiguration,
			fmt.Sprintf("Session '%s'", sessionID), path, s.GetComponentName(), ErrSessionNotFound)
	}
	redactor, err := s.registry.GetRedactorForFile(path)
	if err != nil {
		return nil, NewRedactionError(ErrorConfiguration, "Unsupported file type", path, s.GetComponentName(), err)
	}

	outputPath := OutputPath(path, "_unredacted", outputExt(redactor, path))
	restored, err := redactor.UnredactDocument(ctx, path, outputPath, mapping)
	if err != nil {
		return nil, wrapFailure("Unredaction failed", path, redactor, err)
	}
	return &UnredactFileResult{UnredactedFilePath: outputPath, EntitiesRestored: restored}, nil
}

// OutputPath builds <base><suffix><ext> in the directory of path.
func OutputPath(path, suffix, ext string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return base + suffix + ext
}

func outputExt(redactor Redactor, path string) string {
	ext := filepath.Ext(path)
	if typer, ok := redactor.(OutputTyper); ok {
		return typer.OutputExtension(strings.ToLower(ext))
	}
	return ext
}

// checkFile resolves path and confirms it names a regular file.
func checkFile(path string) (string, error) {
	resolved, err := paths.Resolve(path)
	if err != nil {
		return "", NewRedactionError(ErrorFileSystem, fmt.Sprintf("Invalid path: %s", path), path, "file_service", err)
	}
	info, err := os.Stat(resolved)
	if err != nil || info.IsDir() {
		if err == nil {
			err = fmt.Errorf("is a directory")
		}
		return "", NewRedactionError(ErrorFileSystem, fmt.Sprintf("File not found: %s", path), path, "file_service", err)
	}
	return resolved, nil
}

func wrapFailure(message, path string, redactor Redactor, err error) error {
	var re *RedactionError
	if errors.As(err, &re) {
		return err
	}
	return NewRedactionError(ErrorDocumentProcessing, message, path, redactor.GetComponentName(), err)
}
