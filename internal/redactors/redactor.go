// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package redactors writes redacted and restored copies of documents. Each
// Redactor walks the text-bearing units of one family of formats and hands
// them to an engine.DocumentSession.
package redactors

import (
	"context"

	"redact-mcp/internal/engine"
	"redact-mcp/internal/observability"
)

// Redactor interface defines the contract for all redactor implementations
type Redactor interface {
	observability.Observable

	// GetName returns the name of the redactor
	GetName() string

	// GetSupportedTypes returns the file extensions this redactor can handle
	GetSupportedTypes() []string

	// RedactDocument writes a redacted copy of inputPath to outputPath,
	// passing every text unit through doc.
	RedactDocument(ctx context.Context, inputPath, outputPath string, doc *engine.DocumentSession) error

	// UnredactDocument writes a copy of inputPath to outputPath with the
	// placeholders of mapping restored, and returns how many were restored.
	UnredactDocument(ctx context.Context, inputPath, outputPath string, mapping map[string]string) (int, error)
}

// OutputTyper is implemented by redactors whose output format differs from
// their input, such as converters.
type OutputTyper interface {
	// OutputExtension returns the extension of files written for inputExt.
	OutputExtension(inputExt string) string
}
