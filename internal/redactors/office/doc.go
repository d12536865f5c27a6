// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package office

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"redact-mcp/internal/engine"
	"redact-mcp/internal/observability"
	"redact-mcp/internal/redactors"
)

// DefaultConverter is the LibreOffice binary looked up on PATH.
const DefaultConverter = "libreoffice"

const installHint = "LibreOffice is required to process .doc files. " +
	"Install it (for example 'apt install libreoffice' or 'brew install --cask libreoffice') and make sure it is on PATH"

// DocRedactor handles legacy Word documents by converting them to docx
// with LibreOffice. Its output is always a .docx file.
type DocRedactor struct {
	docx      *DocxRedactor
	converter string
	observer  *observability.StandardObserver
}

// NewDocRedactor creates a DocRedactor using the given converter binary.
func NewDocRedactor(converter string, docx *DocxRedactor, observer *observability.StandardObserver) *DocRedactor {
	if converter == "" {
		converter = DefaultConverter
	}
	if observer == nil {
		observer = observability.NewNopObserver()
	}
	if docx == nil {
		docx = NewDocxRedactor(observer)
	}
	return &DocRedactor{docx: docx, converter: converter, observer: observer}
}

// GetName returns the name of the redactor
func (r *DocRedactor) GetName() string {
	return "doc_redactor"
}

// GetSupportedTypes returns the file types this redactor can handle
func (r *DocRedactor) GetSupportedTypes() []string {
	return []string{".doc"}
}

// GetComponentName returns the component name for observability
func (r *DocRedactor) GetComponentName() string {
	return "doc_redactor"
}

// OutputExtension implements redactors.OutputTyper.
func (r *DocRedactor) OutputExtension(string) string {
	return ".docx"
}

// RedactDocument converts inputPath and redacts the converted copy.
func (r *DocRedactor) RedactDocument(ctx context.Context, inputPath, outputPath string, doc *engine.DocumentSession) error {
	converted, cleanup, err := r.convert(ctx, inputPath)
	if err != nil {
		return err
	}
	defer cleanup()
	return r.docx.RedactDocument(ctx, converted, outputPath, doc)
}

// UnredactDocument converts inputPath and restores the converted copy.
func (r *DocRedactor) UnredactDocument(ctx context.Context, inputPath, outputPath string, mapping map[string]string) (int, error) {
	converted, cleanup, err := r.convert(ctx, inputPath)
	if err != nil {
		return 0, err
	}
	defer cleanup()
	return r.docx.UnredactDocument(ctx, converted, outputPath, mapping)
}

// convert runs the headless converter into a temporary directory and
// returns the converted file.
func (r *DocRedactor) convert(ctx context.Context, inputPath string) (string, func(), error) {
	bin, err := exec.LookPath(r.converter)
	if err != nil {
		return "", nil, redactors.NewRedactionError(redactors.ErrorDependency, installHint, inputPath, r.GetComponentName(), err)
	}

	tmp, err := os.MkdirTemp("", "redact-doc-*")
	if err != nil {
		return "", nil, redactors.NewRedactionError(redactors.ErrorFileSystem, "failed to create conversion directory", inputPath, r.GetComponentName(), err)
	}
	cleanup := func() { os.RemoveAll(tmp) }

	done := r.observer.StartTiming(r.GetComponentName(), "convert", inputPath)
	// #nosec G204 - the converter binary comes from configuration
	cmd := exec.CommandContext(ctx, bin, "--headless", "--convert-to", "docx", "--outdir", tmp, inputPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		cleanup()
		done(false, map[string]interface{}{"error": err.Error()})
		return "", nil, redactors.NewRedactionError(redactors.ErrorDocumentProcessing,
			fmt.Sprintf("LibreOffice conversion failed: %s", strings.TrimSpace(string(output))), inputPath, r.GetComponentName(), err)
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	converted := filepath.Join(tmp, base+".docx")
	if _, err := os.Stat(converted); err != nil {
		cleanup()
		done(false, map[string]interface{}{"error": err.Error()})
		return "", nil, redactors.NewRedactionError(redactors.ErrorDocumentProcessing,
			"LibreOffice produced no output", inputPath, r.GetComponentName(), err)
	}
	done(true, nil)
	return converted, cleanup, nil
}
