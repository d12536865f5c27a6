// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package paths resolves file paths supplied by tool callers.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// PathValidationError reports a path that cannot name a file.
type PathValidationError struct {
	Path   string
	Reason string
}

func (e *PathValidationError) Error() string {
	return "invalid path '" + e.Path + "': " + e.Reason
}

// Resolve validates path, expands a leading "~" to the home directory and
// returns the cleaned absolute form.
func Resolve(path string) (string, error) {
	if err := Validate(path); err != nil {
		return "", err
	}

	expanded, err := expandHome(path)
	if err != nil {
		return "", err
	}
	return filepath.Abs(filepath.Clean(expanded))
}

// Validate rejects empty paths and characters the platform forbids.
func Validate(path string) error {
	if strings.TrimSpace(path) == "" {
		return &PathValidationError{Path: path, Reason: "path is empty"}
	}
	if strings.ContainsRune(path, 0) {
		return &PathValidationError{Path: path, Reason: "contains null byte"}
	}
	if runtime.GOOS == "windows" {
		return validateWindowsPath(path)
	}
	return nil
}

func validateWindowsPath(path string) error {
	for i, char := range path {
		if !strings.ContainsRune(`<>:"|?*`, char) {
			continue
		}
		// Drive letter, as in C:
		if char == ':' && i == 1 {
			continue
		}
		return &PathValidationError{Path: path, Reason: "contains invalid character: " + string(char)}
	}
	if len(path) > 32767 {
		return &PathValidationError{Path: path, Reason: "path exceeds maximum length of 32,767 characters"}
	}
	return nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", &PathValidationError{Path: path, Reason: "cannot expand home directory: " + err.Error()}
	}
	return filepath.Join(home, path[1:]), nil
}
