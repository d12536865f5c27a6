// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestResolve(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"absolute", filepath.Join(wd, "a", "..", "b.txt"), filepath.Join(wd, "b.txt")},
		{"relative", "docs/report.docx", filepath.Join(wd, "docs", "report.docx")},
		{"home", "~/notes.md", filepath.Join(home, "notes.md")},
		{"tilde inside name", "a~/b.txt", filepath.Join(wd, "a~", "b.txt")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.in)
			if err != nil {
				t.Fatalf("Resolve(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolve_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "bad\x00name.txt"} {
		_, err := Resolve(in)
		var pve *PathValidationError
		if !errors.As(err, &pve) {
			t.Errorf("Resolve(%q) error = %v, want PathValidationError", in, err)
		}
	}
}
