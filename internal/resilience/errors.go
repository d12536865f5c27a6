// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// ErrorType represents different classes of collaborator failure
type ErrorType int

const (
	ErrorTypeUnknown            ErrorType = iota
	ErrorTypeTransient                    // Connection refused, reset, DNS
	ErrorTypeTimeout                      // Deadline exceeded talking to the service
	ErrorTypeServiceUnavailable           // 5xx or 429 from the service
	ErrorTypeResourceNotFound             // Missing endpoint or model
	ErrorTypeInvalidResponse              // Malformed or unparseable payload
	ErrorTypeCanceled                     // Caller gave up
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeServiceUnavailable:
		return "service_unavailable"
	case ErrorTypeResourceNotFound:
		return "resource_not_found"
	case ErrorTypeInvalidResponse:
		return "invalid_response"
	case ErrorTypeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ClassifiedError wraps an error with type information
type ClassifiedError struct {
	Original error
	Type     ErrorType
	Message  string

	// ServiceFault is true when the failure points at the remote service
	// being unhealthy rather than at this particular request.
	ServiceFault bool
}

func (e *ClassifiedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Original == nil {
		return e.Type.String()
	}
	return e.Original.Error()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Original
}

// StatusError reports a non-success HTTP status from a collaborator.
type StatusError struct {
	Service string
	Code    int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d %s", e.Service, e.Code, http.StatusText(e.Code))
}

// ClassifyError categorizes an error for appropriate handling
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, context.Canceled) {
		return &ClassifiedError{Original: err, Type: ErrorTypeCanceled}
	}

	if isTimeoutError(err) {
		return &ClassifiedError{
			Original:     err,
			Type:         ErrorTypeTimeout,
			Message:      fmt.Sprintf("Timeout error: %v", err),
			ServiceFault: true,
		}
	}

	if isNetworkError(err) {
		return &ClassifiedError{
			Original:     err,
			Type:         ErrorTypeTransient,
			Message:      fmt.Sprintf("Network error: %v", err),
			ServiceFault: true,
		}
	}

	var status *StatusError
	if errors.As(err, &status) {
		switch {
		case status.Code == http.StatusTooManyRequests || status.Code >= 500:
			return &ClassifiedError{
				Original:     err,
				Type:         ErrorTypeServiceUnavailable,
				Message:      fmt.Sprintf("Service unavailable: %v", err),
				ServiceFault: true,
			}
		case status.Code == http.StatusNotFound:
			return &ClassifiedError{
				Original:     err,
				Type:         ErrorTypeResourceNotFound,
				Message:      fmt.Sprintf("Resource not found: %v", err),
				ServiceFault: true,
			}
		}
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "invalid") || strings.Contains(errStr, "malformed") ||
		strings.Contains(errStr, "decode") || strings.Contains(errStr, "unmarshal") {
		return &ClassifiedError{
			Original: err,
			Type:     ErrorTypeInvalidResponse,
			Message:  fmt.Sprintf("Invalid response: %v", err),
		}
	}

	return &ClassifiedError{
		Original: err,
		Type:     ErrorTypeUnknown,
		Message:  fmt.Sprintf("Unknown error: %v", err),
	}
}

// isNetworkError checks if an error is network-related
func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH)
}

// isTimeoutError checks if an error is timeout-related
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}
