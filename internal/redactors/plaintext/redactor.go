// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package plaintext

import (
	"context"
	"fmt"
	"os"

	"redact-mcp/internal/engine"
	"redact-mcp/internal/observability"
	"redact-mcp/internal/placeholder"
)

// PlainTextRedactor implements redaction for plain text files. The whole
// file is one unit.
type PlainTextRedactor struct {
	observer *observability.StandardObserver
}

// NewPlainTextRedactor creates a new PlainTextRedactor
func NewPlainTextRedactor(observer *observability.StandardObserver) *PlainTextRedactor {
	if observer == nil {
		observer = observability.NewNopObserver()
	}
	return &PlainTextRedactor{observer: observer}
}

// GetName returns the name of the redactor
func (r *PlainTextRedactor) GetName() string {
	return "plaintext_redactor"
}

// GetSupportedTypes returns the file types this redactor can handle
func (r *PlainTextRedactor) GetSupportedTypes() []string {
	return []string{".txt", ".csv", ".log", ".md"}
}

// GetComponentName returns the component name for observability
func (r *PlainTextRedactor) GetComponentName() string {
	return "plaintext_redactor"
}

// RedactDocument redacts the file contents as a single unit.
func (r *PlainTextRedactor) RedactDocument(ctx context.Context, inputPath, outputPath string, doc *engine.DocumentSession) error {
	done := r.observer.StartTiming(r.GetComponentName(), "redact_document", inputPath)

	data, mode, err := readFile(inputPath)
	if err != nil {
		done(false, map[string]interface{}{"error": err.Error()})
		return err
	}

	unit, err := doc.RedactUnit(ctx, string(data))
	if err != nil {
		done(false, map[string]interface{}{"error": err.Error()})
		return err
	}

	if err := os.WriteFile(outputPath, []byte(unit.Text), mode); err != nil {
		done(false, map[string]interface{}{"error": err.Error()})
		return fmt.Errorf("write %s: %w", outputPath, err)
	}
	done(true, map[string]interface{}{"entities": len(unit.Entities)})
	return nil
}

// UnredactDocument restores placeholders in the file contents.
func (r *PlainTextRedactor) UnredactDocument(_ context.Context, inputPath, outputPath string, mapping map[string]string) (int, error) {
	done := r.observer.StartTiming(r.GetComponentName(), "unredact_document", inputPath)

	data, mode, err := readFile(inputPath)
	if err != nil {
		done(false, map[string]interface{}{"error": err.Error()})
		return 0, err
	}

	restored, n := placeholder.Restore(string(data), mapping)
	if err := os.WriteFile(outputPath, []byte(restored), mode); err != nil {
		done(false, map[string]interface{}{"error": err.Error()})
		return 0, fmt.Errorf("write %s: %w", outputPath, err)
	}
	done(true, map[string]interface{}{"entities_restored": n})
	return n, nil
}

func readFile(path string) ([]byte, os.FileMode, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, fmt.Errorf("stat %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", path, err)
	}
	return data, info.Mode().Perm(), nil
}
