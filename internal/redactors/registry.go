// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactors

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"redact-mcp/internal/observability"
)

// Registry maps file extensions to redactors.
type Registry struct {
	mu        sync.RWMutex
	redactors map[string]Redactor
	observer  *observability.StandardObserver
}

// NewRegistry creates an empty registry.
func NewRegistry(observer *observability.StandardObserver) *Registry {
	if observer == nil {
		observer = observability.NewNopObserver()
	}
	return &Registry{
		redactors: make(map[string]Redactor),
		observer:  observer,
	}
}

// RegisterRedactor registers a redactor for its file types, replacing any
// earlier redactor for the same extension.
func (r *Registry) RegisterRedactor(redactor Redactor) error {
	if redactor == nil {
		return fmt.Errorf("redactor cannot be nil")
	}

	supportedTypes := redactor.GetSupportedTypes()
	if len(supportedTypes) == 0 {
		return fmt.Errorf("redactor must support at least one file type")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, fileType := range supportedTypes {
		r.redactors[normalizeExt(fileType)] = redactor
	}

	r.observer.Logger().Debug("redactor registered",
		zap.String("redactor_name", redactor.GetName()),
		zap.Strings("supported_types", supportedTypes))
	return nil
}

// GetRedactorForFile returns the redactor for filePath's extension.
func (r *Registry) GetRedactorForFile(filePath string) (Redactor, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext == "" {
		return nil, fmt.Errorf("%w: file has no extension: %s", ErrUnsupportedFormat, filePath)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	redactor, exists := r.redactors[ext]
	if !exists {
		return nil, fmt.Errorf("%w: %s (supported: %s)", ErrUnsupportedFormat, ext, strings.Join(r.supportedLocked(), ", "))
	}
	return redactor, nil
}

// SupportedTypes returns every registered extension, sorted.
func (r *Registry) SupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.supportedLocked()
}

func (r *Registry) supportedLocked() []string {
	types := make([]string, 0, len(r.redactors))
	for ext := range r.redactors {
		types = append(types, ext)
	}
	slices.Sort(types)
	return types
}

func normalizeExt(fileType string) string {
	ext := strings.ToLower(fileType)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
