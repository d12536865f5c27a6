// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package reviewer

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Finding is one item reported by the model.
type Finding struct {
	Text       string `json:"text"`
	EntityType string `json:"entity_type"`
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// parseFindings extracts the JSON array from a model reply. Models wrap their
// answer in prose, code fences or reasoning blocks often enough that the
// outermost brackets are taken rather than the whole reply.
func parseFindings(content string) ([]Finding, bool) {
	content = thinkBlock.ReplaceAllString(content, "")
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, false
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, false
	}

	findings := make([]Finding, 0, len(raw))
	for _, item := range raw {
		var f Finding
		if err := json.Unmarshal(item, &f); err != nil || f.Text == "" {
			continue
		}
		if f.EntityType == "" {
			f.EntityType = "UNKNOWN"
		}
		f.EntityType = strings.ToUpper(strings.TrimSpace(f.EntityType))
		findings = append(findings, f)
	}
	return findings, true
}
