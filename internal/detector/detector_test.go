// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestAllows(t *testing.T) {
	tests := []struct {
		name   string
		req    Request
		typ    string
		expect bool
	}{
		{"empty request allows all", Request{}, "PERSON", true},
		{"listed type", Request{Types: []string{"PERSON"}}, "PERSON", true},
		{"unlisted type", Request{Types: []string{"PERSON"}}, "EMAIL_ADDRESS", false},
		{"disabled wins", Request{Types: []string{"PERSON"}, Disabled: []string{"PERSON"}}, "PERSON", false},
		{"disabled without types", Request{Disabled: []string{"US_SSN"}}, "US_SSN", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.req.Allows(tt.typ))
		})
	}
}

func TestSpanOverlaps(t *testing.T) {
	a := Span{Start: 0, End: 5}
	assert.True(t, a.Overlaps(Span{Start: 4, End: 8}))
	assert.False(t, a.Overlaps(Span{Start: 5, End: 8}), "touching spans do not overlap")
	assert.Equal(t, 5, a.Len())
	assert.Equal(t, "hello", a.Text("hello world"))
}
