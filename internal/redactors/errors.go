// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactors

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnsupportedFormat is wrapped when no redactor handles an extension.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrSessionNotFound is wrapped when unredaction names an unknown session.
var ErrSessionNotFound = errors.New("session not found or expired")

// RedactionErrorType defines the type of redaction error
type RedactionErrorType int

const (
	// ErrorDocumentProcessing indicates a document could not be parsed or rewritten
	ErrorDocumentProcessing RedactionErrorType = iota

	// ErrorFileSystem indicates a file system operation failure
	ErrorFileSystem

	// ErrorConfiguration indicates an unsupported format or unknown session
	ErrorConfiguration

	// ErrorDependency indicates a required external program is missing
	ErrorDependency
)

// String returns the string representation of the error type
func (ret RedactionErrorType) String() string {
	switch ret {
	case ErrorDocumentProcessing:
		return "document_processing"
	case ErrorFileSystem:
		return "file_system"
	case ErrorConfiguration:
		return "configuration"
	case ErrorDependency:
		return "dependency"
	default:
		return "unknown"
	}
}

// RedactionError represents an error that occurred during redaction
type RedactionError struct {
	// Type is the type of error
	Type RedactionErrorType

	// Message is the caller-facing error message
	Message string

	// FilePath is the path to the file being processed when the error occurred
	FilePath string

	// Component is the component that generated the error
	Component string

	// Timestamp is when the error occurred
	Timestamp time.Time

	// Cause is the underlying error that caused this error
	Cause error
}

// Error implements the error interface
func (re *RedactionError) Error() string {
	if re.Cause == nil {
		return re.Message
	}
	return fmt.Sprintf("%s: %s", re.Message, re.Cause.Error())
}

// Unwrap returns the underlying error for error unwrapping
func (re *RedactionError) Unwrap() error {
	return re.Cause
}

// NewRedactionError creates a new RedactionError
func NewRedactionError(errorType RedactionErrorType, message, filePath, component string, cause error) *RedactionError {
	return &RedactionError{
		Type:      errorType,
		Message:   message,
		FilePath:  filePath,
		Component: component,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// IsFatal reports whether err stems from a missing dependency rather than
// from the document itself.
func IsFatal(err error) bool {
	var re *RedactionError
	return errors.As(err, &re) && re.Type == ErrorDependency
}
